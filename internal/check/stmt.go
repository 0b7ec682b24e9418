package check

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/diag"
	"github.com/lumen-lang/lumen/internal/scope"
	"github.com/lumen-lang/lumen/internal/types"
)

// funcCtx threads the bits statement-checking needs that don't belong on
// Checker itself: the enclosing function's declared return type, and how
// many loop bodies deep the current statement sits (for break/continue).
type funcCtx struct {
	returnType types.Index
	loopDepth  int
}

func (c *Checker) lookupFuncSymbol(d ast.FuncDecl, receiver string) (*scope.Symbol, bool) {
	name := d.Name
	if receiver != "" {
		name = MethodLookupName(receiver, d.Name)
	}
	return c.Global.LookupLocal(name)
}

// checkFuncBody opens a fresh scope for d's parameters and checks its
// body, then verifies every path returns when the signature is non-void
// (spec §4.3/§4.4's missing-return diagnostic).
func (c *Checker) checkFuncBody(d ast.FuncDecl, receiver string, node ast.NodeIndex) {
	if d.Body == ast.NullNode {
		return // extern: no body
	}
	sym, ok := c.lookupFuncSymbol(d, receiver)
	if !ok {
		return
	}
	sig := c.Reg.Get(sym.Type)

	fnScope := scope.New(c.Global)
	for _, p := range sig.Params {
		fnScope.Define(&scope.Symbol{Name: p.Name, Kind: scope.Parameter, Type: p.Type, Mutable: true})
	}

	ctx := &funcCtx{returnType: sig.Results}
	bodyNode := c.File.GetNode(d.Body)
	block := bodyNode.Variant.(ast.BlockStmt)
	c.checkBlockStmtIn(fnScope, block, ctx)

	if sig.Results != types.VOID && !c.blockAlwaysReturns(block) {
		c.Rep.ErrorWithCode(d.Span, diag.EMissingReturn,
			fmt.Sprintf("function %q does not return a value on all paths", d.Name))
	}
}

func (c *Checker) checkBlockStmtIn(sc *scope.Scope, b ast.BlockStmt, ctx *funcCtx) {
	for _, s := range b.Stmts {
		c.checkStmt(sc, s, ctx)
	}
}

// checkBlockAsNewScope checks the KindBlockStmt at n in a fresh child
// scope of parent, for an if/while/for body.
func (c *Checker) checkBlockAsNewScope(parent *scope.Scope, n ast.NodeIndex, ctx *funcCtx) {
	node := c.File.GetNode(n)
	b := node.Variant.(ast.BlockStmt)
	inner := scope.New(parent)
	c.checkBlockStmtIn(inner, b, ctx)
}

func (c *Checker) checkStmt(sc *scope.Scope, n ast.NodeIndex, ctx *funcCtx) {
	node := c.File.GetNode(n)
	switch v := node.Variant.(type) {
	case ast.VarStmt:
		c.checkVarStmt(sc, v, ctx)
	case ast.AssignStmt:
		c.checkAssignStmt(sc, v, ctx)
	case ast.IfStmt:
		c.checkIfStmt(sc, v, ctx)
	case ast.WhileStmt:
		c.checkWhileStmt(sc, v, ctx)
	case ast.ForStmt:
		c.checkForStmt(sc, v, ctx)
	case ast.BlockStmt:
		inner := scope.New(sc)
		c.checkBlockStmtIn(inner, v, ctx)
	case ast.BreakStmt:
		if ctx == nil || ctx.loopDepth == 0 {
			c.Rep.ErrorWithCode(v.Span, diag.EBreakOutsideLoop, "break outside of a loop")
		}
	case ast.ContinueStmt:
		if ctx == nil || ctx.loopDepth == 0 {
			c.Rep.ErrorWithCode(v.Span, diag.EContinueOutside, "continue outside of a loop")
		}
	case ast.ReturnStmt:
		c.checkReturnStmt(sc, v, ctx)
	case ast.DeferStmt:
		c.checkExpr(sc, v.Expr, ctx)
	case ast.ExprStmt:
		c.checkExpr(sc, v.Expr, ctx)
	case ast.BadStmt:
		// already diagnosed upstream
	}
}

func (c *Checker) checkVarStmt(sc *scope.Scope, v ast.VarStmt, ctx *funcCtx) {
	declType := types.INVALID
	if v.TypeExpr != ast.NullNode {
		declType = c.resolveTypeExpr(v.TypeExpr)
	}

	var constVal *int64
	valueType := types.INVALID
	if v.Value != ast.NullNode {
		valueType = c.checkExpr(sc, v.Value, ctx)
		if v.IsConst {
			if val, ok := c.EvalConstExpr(v.Value); ok {
				constVal = &val
			}
		}
	}

	if declType == types.INVALID {
		declType = c.Reg.Materialize(valueType)
	} else if v.Value != ast.NullNode && !c.Reg.IsAssignable(valueType, declType) {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch,
			fmt.Sprintf("cannot assign value of type %v to variable %q of declared type %v", valueType, v.Name, declType))
	}

	sym := &scope.Symbol{
		Name: v.Name, Kind: scope.Variable, Type: declType,
		Mutable: v.Mutable && !v.IsConst, ConstValue: constVal,
	}
	if v.IsConst {
		sym.Kind = scope.Constant
	}
	c.define(sc, sym, v.Span)
}

func (c *Checker) checkAssignStmt(sc *scope.Scope, v ast.AssignStmt, ctx *funcCtx) {
	targetType := c.checkAssignTarget(sc, v.Target, ctx)
	valType := c.checkExpr(sc, v.Value, ctx)
	if v.Op != ast.AssignSet && !c.isNumericOrInvalid(targetType) {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "compound assignment requires a numeric target")
	}
	if !c.Reg.IsAssignable(valType, targetType) {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "value is not assignable to the assignment target")
	}
}

// checkAssignTarget validates that n denotes a mutable storage location
// (identifier, field, index, or dereference) and returns its type.
func (c *Checker) checkAssignTarget(sc *scope.Scope, n ast.NodeIndex, ctx *funcCtx) types.Index {
	node := c.File.GetNode(n)
	switch v := node.Variant.(type) {
	case ast.Ident:
		sym, ok := sc.Lookup(v.Name)
		if !ok {
			c.Rep.ErrorWithCode(node.Span, diag.EUndefinedIdent, fmt.Sprintf("undefined identifier %q", v.Name))
			return types.INVALID
		}
		if !sym.Mutable {
			c.Rep.ErrorWithCode(node.Span, diag.ETypeMismatch, fmt.Sprintf("cannot assign to immutable %q", v.Name))
		}
		return sym.Type
	case ast.FieldAccess, ast.Index, ast.Deref:
		return c.checkExpr(sc, n, ctx)
	}
	c.Rep.ErrorWithCode(node.Span, diag.ETypeMismatch, "invalid assignment target")
	return types.INVALID
}

func (c *Checker) checkIfStmt(sc *scope.Scope, v ast.IfStmt, ctx *funcCtx) {
	cond := c.checkExpr(sc, v.Cond, ctx)
	if !c.isBoolOrInvalid(cond) {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "if condition must be bool")
	}
	c.checkBlockAsNewScope(sc, v.Then, ctx)
	if v.Else == ast.NullNode {
		return
	}
	elseNode := c.File.GetNode(v.Else)
	if _, ok := elseNode.Variant.(ast.IfStmt); ok {
		c.checkStmt(sc, v.Else, ctx)
		return
	}
	c.checkBlockAsNewScope(sc, v.Else, ctx)
}

func (c *Checker) checkWhileStmt(sc *scope.Scope, v ast.WhileStmt, ctx *funcCtx) {
	cond := c.checkExpr(sc, v.Cond, ctx)
	if !c.isBoolOrInvalid(cond) {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "while condition must be bool")
	}
	inner := innerLoopCtx(ctx)
	c.checkBlockAsNewScope(sc, v.Body, inner)
}

func (c *Checker) checkForStmt(sc *scope.Scope, v ast.ForStmt, ctx *funcCtx) {
	iterType := c.checkExpr(sc, v.Iterable, ctx)
	elemType := types.INVALID
	switch {
	case c.Reg.IsSlice(iterType), c.Reg.IsArray(iterType):
		elemType = c.Reg.ElemType(iterType)
	case c.Reg.Get(iterType).Kind == types.KindList:
		elemType = c.Reg.ElemType(iterType)
	case iterType != types.INVALID:
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "for-in requires a slice, array, or list")
	}

	bodyScope := scope.New(sc)
	bodyScope.Define(&scope.Symbol{Name: v.Binding, Kind: scope.Variable, Type: elemType})

	inner := innerLoopCtx(ctx)
	bodyNode := c.File.GetNode(v.Body)
	block := bodyNode.Variant.(ast.BlockStmt)
	c.checkBlockStmtIn(bodyScope, block, inner)
}

// innerLoopCtx derives the funcCtx a while/for body checks against: one
// loop deeper than ctx, or a bare depth-1 context when ctx is nil (a
// loop sitting in a global initializer's block-expression, outside any
// function). break/continue inside such a loop are still valid; a
// return inside it is caught by checkReturnStmt's own nil guard.
func innerLoopCtx(ctx *funcCtx) *funcCtx {
	inner := funcCtx{}
	if ctx != nil {
		inner = *ctx
	}
	inner.loopDepth++
	return &inner
}

func (c *Checker) checkReturnStmt(sc *scope.Scope, v ast.ReturnStmt, ctx *funcCtx) {
	if ctx == nil {
		c.Rep.ErrorWithCode(v.Span, diag.EReturnMismatch, "return outside of a function body")
		if v.Value != ast.NullNode {
			c.checkExpr(sc, v.Value, ctx)
		}
		return
	}
	if v.Value == ast.NullNode {
		if ctx.returnType != types.VOID {
			c.Rep.ErrorWithCode(v.Span, diag.EReturnMismatch, "missing return value")
		}
		return
	}
	valType := c.checkExpr(sc, v.Value, ctx)
	if !c.Reg.IsAssignable(valType, ctx.returnType) {
		c.Rep.ErrorWithCode(v.Span, diag.EReturnMismatch, "return value does not match the declared return type")
	}
}

// blockAlwaysReturns conservatively reports whether every path through b
// ends in a return statement, per spec §4.4's missing-return check:
// an if/else whose arms both always-return counts; a loop never does,
// since its body might run zero times.
func (c *Checker) blockAlwaysReturns(b ast.BlockStmt) bool {
	for _, s := range b.Stmts {
		if c.stmtAlwaysReturns(s) {
			return true
		}
	}
	return false
}

func (c *Checker) stmtAlwaysReturns(n ast.NodeIndex) bool {
	node := c.File.GetNode(n)
	switch v := node.Variant.(type) {
	case ast.ReturnStmt:
		return true
	case ast.BlockStmt:
		return c.blockAlwaysReturns(v)
	case ast.IfStmt:
		if v.Else == ast.NullNode {
			return false
		}
		return c.stmtAlwaysReturns(v.Then) && c.stmtAlwaysReturns(v.Else)
	}
	return false
}
