package check

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/diag"
	"github.com/lumen-lang/lumen/internal/scope"
	"github.com/lumen-lang/lumen/internal/types"
)

// checkExpr type-checks n in scope sc and returns its type, per the
// table in spec §4.3. The result is memoized into the expression type
// cache keyed by n. ctx carries the enclosing function's return type and
// loop depth so a block-expression nested anywhere in n can still check
// a `return`, `while`, or `for` against the right context; ctx is nil
// when n sits outside any function body (e.g. a global initializer).
func (c *Checker) checkExpr(sc *scope.Scope, n ast.NodeIndex, ctx *funcCtx) types.Index {
	if n == ast.NullNode {
		return types.VOID
	}
	if cached, ok := c.cachedType(n); ok {
		return cached
	}
	node := c.File.GetNode(n)
	result := c.checkExprUncached(sc, n, node, ctx)
	return c.cacheType(n, result)
}

func (c *Checker) checkExprUncached(sc *scope.Scope, n ast.NodeIndex, node ast.Node, ctx *funcCtx) types.Index {
	switch v := node.Variant.(type) {
	case ast.Literal:
		return c.checkLiteral(v)
	case ast.Ident:
		return c.checkIdent(sc, v, node.Span)
	case ast.Binary:
		return c.checkBinary(sc, v, ctx)
	case ast.Unary:
		return c.checkUnary(sc, v, ctx)
	case ast.Call:
		return c.checkCall(sc, v, ctx)
	case ast.Index:
		return c.checkIndex(sc, v, ctx)
	case ast.SliceExpr:
		return c.checkSliceExpr(sc, v, ctx)
	case ast.FieldAccess:
		return c.checkFieldAccess(sc, v, node.Span, ctx)
	case ast.ArrayLiteral:
		return c.checkArrayLiteral(sc, v, ctx)
	case ast.Paren:
		return c.checkExpr(sc, v.Inner, ctx)
	case ast.IfExpr:
		return c.checkIfExpr(sc, v, ctx)
	case ast.SwitchExpr:
		return c.checkSwitchExpr(sc, v, ctx)
	case ast.BlockExpr:
		return c.checkBlockExpr(sc, v, ctx)
	case ast.StructInit:
		return c.checkStructInit(sc, v, node.Span, ctx)
	case ast.NewExpr:
		return c.resolveTypeExpr(v.TypeNode)
	case ast.BuiltinCall:
		return c.checkBuiltin(sc, v, ctx)
	case ast.StringInterp:
		for _, seg := range v.Segments {
			if seg.Expr != ast.NullNode {
				c.checkExpr(sc, seg.Expr, ctx)
			}
		}
		return types.STRING
	case ast.AddrOf:
		elem := c.checkExpr(sc, v.Operand, ctx)
		return c.Reg.MakePointer(elem)
	case ast.Deref:
		ptr := c.checkExpr(sc, v.Operand, ctx)
		if !c.Reg.IsPointer(ptr) {
			c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "cannot dereference a non-pointer")
			return types.INVALID
		}
		return c.Reg.PointerElem(ptr)
	case ast.BadExpr:
		return types.INVALID
	}
	c.Rep.ErrorWithCode(node.Span, diag.ETypeMismatch, "unrecognized expression node")
	return types.INVALID
}

func (c *Checker) checkLiteral(v ast.Literal) types.Index {
	switch v.Kind {
	case ast.LitInt:
		return types.UNTYPED_INT
	case ast.LitFloat:
		return types.UNTYPED_FLOAT
	case ast.LitString:
		return types.STRING
	case ast.LitChar:
		return types.U8IDX
	case ast.LitTrue, ast.LitFalse:
		return types.UNTYPED_BOOL
	case ast.LitNull, ast.LitUndefined:
		return types.UNTYPED_NULL
	}
	return types.INVALID
}

func (c *Checker) checkIdent(sc *scope.Scope, v ast.Ident, pos ast.Pos) types.Index {
	sym, ok := sc.Lookup(v.Name)
	if !ok {
		c.Rep.ErrorWithCode(pos, diag.EUndefinedIdent, fmt.Sprintf("undefined identifier %q", v.Name))
		return types.INVALID
	}
	return sym.Type
}

func (c *Checker) isNumericOrInvalid(t types.Index) bool {
	return t == types.INVALID || c.Reg.IsNumeric(t)
}

func (c *Checker) checkBinary(sc *scope.Scope, v ast.Binary, ctx *funcCtx) types.Index {
	// Short-circuit operators: both sides must be bool.
	if v.Op == ast.OpAnd || v.Op == ast.OpOr {
		l := c.checkExpr(sc, v.Left, ctx)
		r := c.checkExpr(sc, v.Right, ctx)
		if !c.isBoolOrInvalid(l) || !c.isBoolOrInvalid(r) {
			c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "operands of `and`/`or` must be bool")
		}
		return types.BOOL
	}

	l := c.checkExpr(sc, v.Left, ctx)
	r := c.checkExpr(sc, v.Right, ctx)

	switch v.Op {
	case ast.OpAdd:
		if l == types.STRING && r == types.STRING {
			return types.STRING
		}
		if c.Reg.IsPointer(l) && c.Reg.IsInteger(r) {
			return l
		}
		if c.Reg.IsPointer(r) && c.Reg.IsInteger(l) {
			return r
		}
		return c.binaryNumeric(v.Span, l, r)
	case ast.OpSub:
		if c.Reg.IsPointer(l) && c.Reg.IsInteger(r) {
			return l
		}
		return c.binaryNumeric(v.Span, l, r)
	case ast.OpMul, ast.OpDiv, ast.OpMod:
		return c.binaryNumeric(v.Span, l, r)
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if !c.comparable(l, r) {
			c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "operands are not comparable")
		}
		return types.BOOL
	case ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShl, ast.OpShr:
		if !c.Reg.IsInteger(l) && l != types.INVALID || !c.Reg.IsInteger(r) && r != types.INVALID {
			c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "bitwise operands must be integers")
		}
		return c.Reg.Materialize(l)
	case ast.OpCoalesce:
		if c.Reg.IsOptional(l) {
			return c.Reg.ElemType(l)
		}
		return l
	}
	return types.INVALID
}

// binaryNumeric implements "result materialized from left" for
// arithmetic operators (spec §4.3, §8 property #4).
func (c *Checker) binaryNumeric(span ast.Pos, l, r types.Index) types.Index {
	if !c.isNumericOrInvalid(l) || !c.isNumericOrInvalid(r) {
		c.Rep.ErrorWithCode(span, diag.ETypeMismatch, "operands must be numeric")
		return types.INVALID
	}
	return c.Reg.Materialize(l)
}

func (c *Checker) isBoolOrInvalid(t types.Index) bool {
	return t == types.INVALID || t == types.BOOL || t == types.UNTYPED_BOOL
}

func (c *Checker) comparable(l, r types.Index) bool {
	if l == types.INVALID || r == types.INVALID {
		return true
	}
	if c.Reg.Equal(l, r) {
		return true
	}
	if c.Reg.IsNumeric(l) && c.Reg.IsNumeric(r) {
		return true
	}
	if c.Reg.IsSlice(l) && c.Reg.IsSlice(r) {
		return true
	}
	isNullable := func(t types.Index) bool {
		return c.Reg.IsPointer(t) || c.Reg.IsOptional(t)
	}
	isNullLit := func(t types.Index) bool { return t == types.UNTYPED_NULL }
	if (isNullable(l) && isNullLit(r)) || (isNullLit(l) && isNullable(r)) {
		return true
	}
	return false
}

func (c *Checker) checkUnary(sc *scope.Scope, v ast.Unary, ctx *funcCtx) types.Index {
	operand := c.checkExpr(sc, v.Operand, ctx)
	switch v.Op {
	case ast.UnaryNeg:
		if !c.isNumericOrInvalid(operand) {
			c.Rep.ErrorWithCode(v.Span, diag.EInvalidUnary, "unary `-` requires a numeric operand")
			return types.INVALID
		}
		return operand
	case ast.UnaryNot:
		if !c.isBoolOrInvalid(operand) {
			c.Rep.ErrorWithCode(v.Span, diag.EInvalidUnary, "unary `!`/`not` requires a bool operand")
			return types.INVALID
		}
		return types.BOOL
	case ast.UnaryBitNot:
		if operand != types.INVALID && !c.Reg.IsInteger(operand) {
			c.Rep.ErrorWithCode(v.Span, diag.EInvalidUnary, "unary `~` requires an integer operand")
			return types.INVALID
		}
		return operand
	case ast.UnaryOptUnwrap:
		if !c.Reg.IsOptional(operand) {
			c.Rep.ErrorWithCode(v.Span, diag.EInvalidUnary, "`.?` requires an optional operand")
			return types.INVALID
		}
		return c.Reg.ElemType(operand)
	}
	return types.INVALID
}

func (c *Checker) checkIndex(sc *scope.Scope, v ast.Index, ctx *funcCtx) types.Index {
	base := c.checkExpr(sc, v.Base, ctx)
	idx := c.checkExpr(sc, v.Idx, ctx)
	if idx != types.INVALID && !c.Reg.IsInteger(idx) {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "index must be an integer")
	}
	if base == types.STRING {
		return types.U8IDX
	}
	switch {
	case c.Reg.IsArray(base), c.Reg.IsSlice(base):
		return c.Reg.ElemType(base)
	case c.Reg.Get(base).Kind == types.KindList:
		return c.Reg.ElemType(base)
	case base == types.INVALID:
		return types.INVALID
	}
	c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "cannot index this type")
	return types.INVALID
}

func (c *Checker) checkSliceExpr(sc *scope.Scope, v ast.SliceExpr, ctx *funcCtx) types.Index {
	base := c.checkExpr(sc, v.Base, ctx)
	if v.Start != ast.NullNode {
		c.checkExpr(sc, v.Start, ctx)
	}
	if v.End != ast.NullNode {
		c.checkExpr(sc, v.End, ctx)
	}
	if c.Reg.IsArray(base) {
		return c.Reg.MakeSlice(c.Reg.ElemType(base))
	}
	if c.Reg.IsSlice(base) {
		return base
	}
	if base == types.INVALID {
		return types.INVALID
	}
	c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "cannot slice this type")
	return types.INVALID
}

func (c *Checker) checkArrayLiteral(sc *scope.Scope, v ast.ArrayLiteral, ctx *funcCtx) types.Index {
	if len(v.Elements) == 0 {
		return c.Reg.MakeArray(types.UNTYPED_INT, 0)
	}
	elemType := c.checkExpr(sc, v.Elements[0], ctx)
	for _, e := range v.Elements[1:] {
		t := c.checkExpr(sc, e, ctx)
		if !c.Reg.IsAssignable(t, elemType) && !c.Reg.IsAssignable(elemType, t) {
			c.Rep.ErrorWithCode(c.File.GetNode(e).Span, diag.ETypeMismatch, "array elements must be mutually assignable")
		}
		// Keep the element type untyped when possible so a later
		// assignment to a typed array can coerce element-wise.
		if !c.Reg.Get(elemType).Basic.IsUntyped() {
			elemType = t
		}
	}
	return c.Reg.MakeArray(elemType, int64(len(v.Elements)))
}

func (c *Checker) checkIfExpr(sc *scope.Scope, v ast.IfExpr, ctx *funcCtx) types.Index {
	cond := c.checkExpr(sc, v.Cond, ctx)
	if !c.isBoolOrInvalid(cond) {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "if-expression condition must be bool")
	}
	then := c.checkExpr(sc, v.Then, ctx)
	if v.Else == ast.NullNode {
		return types.VOID
	}
	els := c.checkExpr(sc, v.Else, ctx)
	if !c.Reg.Equal(then, els) && then != types.INVALID && els != types.INVALID {
		c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "if-expression branches must have the same type")
	}
	return then
}

func (c *Checker) checkSwitchExpr(sc *scope.Scope, v ast.SwitchExpr, ctx *funcCtx) types.Index {
	subject := c.checkExpr(sc, v.Subject, ctx)
	var result types.Index = types.VOID
	for i, cs := range v.Cases {
		for _, p := range cs.Patterns {
			pt := c.checkExpr(sc, p, ctx)
			if !c.comparable(subject, pt) {
				c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "case pattern is not comparable to the switch subject")
			}
		}
		caseScope := sc
		if cs.Capture != "" {
			caseScope = scope.New(sc)
			caseScope.Define(&scope.Symbol{Name: cs.Capture, Kind: scope.Variable, Type: c.Reg.ElemType(subject)})
		}
		bodyType := c.checkExpr(caseScope, cs.Body, ctx)
		if i == 0 {
			result = bodyType
		}
	}
	if v.ElseBody != ast.NullNode {
		c.checkExpr(sc, v.ElseBody, ctx)
	}
	return result
}

// checkBlockExpr checks a `{ stmts; expr }` block-expression. It opens a
// fresh scope like any block, but is not a function boundary: ctx (the
// enclosing function's return type and loop depth) is forwarded as-is,
// so a `return`, `while`, or `for` nested inside the block-expression
// still resolves against the right function.
func (c *Checker) checkBlockExpr(sc *scope.Scope, v ast.BlockExpr, ctx *funcCtx) types.Index {
	inner := scope.New(sc)
	for _, s := range v.Stmts {
		c.checkStmt(inner, s, ctx)
	}
	if v.Expr == ast.NullNode {
		return types.VOID
	}
	return c.checkExpr(inner, v.Expr, ctx)
}

func (c *Checker) checkCall(sc *scope.Scope, v ast.Call, ctx *funcCtx) types.Index {
	calleeNode := c.File.GetNode(v.Callee)
	var sig types.Type
	implicitSelf := false

	switch cv := calleeNode.Variant.(type) {
	case ast.Ident:
		sym, ok := sc.Lookup(cv.Name)
		if !ok {
			c.Rep.ErrorWithCode(v.Span, diag.EUndefinedIdent, fmt.Sprintf("undefined function %q", cv.Name))
			for _, a := range v.Args {
				c.checkExpr(sc, a, ctx)
			}
			return types.INVALID
		}
		if !c.Reg.IsFunc(sym.Type) {
			c.Rep.ErrorWithCode(v.Span, diag.ENotCallable, fmt.Sprintf("%q is not callable", cv.Name))
			for _, a := range v.Args {
				c.checkExpr(sc, a, ctx)
			}
			return types.INVALID
		}
		sig = c.Reg.Get(sym.Type)
	case ast.FieldAccess:
		recvType := c.checkExpr(sc, cv.Base, ctx)
		deref := recvType
		if c.Reg.IsPointer(deref) {
			deref = c.Reg.PointerElem(deref)
		}
		typeName := c.Reg.Get(deref).Name
		info, ok := c.Reg.LookupMethod(typeName, cv.Field)
		if !ok {
			c.Rep.ErrorWithCode(v.Span, diag.ENotCallable, fmt.Sprintf("no method %q on %q", cv.Field, typeName))
			for _, a := range v.Args {
				c.checkExpr(sc, a, ctx)
			}
			return types.INVALID
		}
		sig = c.Reg.Get(info.SigType)
		implicitSelf = true
	default:
		c.Rep.ErrorWithCode(v.Span, diag.ENotCallable, "expression is not callable")
		for _, a := range v.Args {
			c.checkExpr(sc, a, ctx)
		}
		return types.INVALID
	}

	params := sig.Params
	if implicitSelf && len(params) > 0 {
		params = params[1:]
	}
	if len(v.Args) != len(params) {
		c.Rep.ErrorWithCode(v.Span, diag.EArgCount,
			fmt.Sprintf("expected %d arguments, got %d", len(params), len(v.Args)))
	}
	n := len(v.Args)
	if len(params) < n {
		n = len(params)
	}
	for i := 0; i < n; i++ {
		argType := c.checkExpr(sc, v.Args[i], ctx)
		if !c.Reg.IsAssignable(argType, params[i].Type) {
			c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch,
				fmt.Sprintf("argument %d not assignable to parameter %q", i+1, params[i].Name))
		}
	}
	for i := n; i < len(v.Args); i++ {
		c.checkExpr(sc, v.Args[i], ctx)
	}
	return sig.Results
}

func (c *Checker) checkFieldAccess(sc *scope.Scope, v ast.FieldAccess, pos ast.Pos, ctx *funcCtx) types.Index {
	if v.Base == ast.NullNode {
		c.Rep.ErrorWithCode(pos, diag.EFieldNotFound, fmt.Sprintf("cannot resolve implicit field %q", v.Field))
		return types.INVALID
	}
	if baseNode := c.File.GetNode(v.Base); baseNode.Kind == ast.KindIdent {
		ident := baseNode.Variant.(ast.Ident)
		if _, isVar := sc.Lookup(ident.Name); !isVar {
			if idx, ok := c.Reg.LookupByName(ident.Name); ok {
				return c.checkStaticFieldAccess(idx, ident.Name, v.Field, pos)
			}
		}
	}
	base := c.checkExpr(sc, v.Base, ctx)
	return c.fieldOf(base, v.Field, pos)
}

// checkStaticFieldAccess resolves `EnumOrUnionName.Variant`, the one case
// of field access whose base names a type rather than a value.
func (c *Checker) checkStaticFieldAccess(typeIdx types.Index, typeName, field string, pos ast.Pos) types.Index {
	t := c.Reg.Get(typeIdx)
	switch t.Kind {
	case types.KindEnum:
		for _, variant := range t.Variants {
			if variant.Name == field {
				return typeIdx
			}
		}
	case types.KindUnion:
		for _, variant := range t.UVariants {
			if variant.Name == field {
				return typeIdx
			}
		}
	}
	c.Rep.ErrorWithCode(pos, diag.EFieldNotFound, fmt.Sprintf("%q has no variant %q", typeName, field))
	return types.INVALID
}

func (c *Checker) fieldOf(base types.Index, field string, pos ast.Pos) types.Index {
	if base == types.INVALID {
		return types.INVALID
	}
	t := base
	if c.Reg.IsPointer(t) {
		t = c.Reg.PointerElem(t)
	}
	if c.Reg.IsStruct(t) {
		if _, fieldType, ok := c.Reg.FieldOffset(t, field); ok {
			return fieldType
		}
	}
	if c.Reg.IsSlice(t) {
		switch field {
		case "ptr":
			return c.Reg.MakePointer(c.Reg.ElemType(t))
		case "len":
			return types.I64IDX
		}
	}
	if c.Reg.IsArray(t) && field == "len" {
		return types.I64IDX
	}
	c.Rep.ErrorWithCode(pos, diag.EFieldNotFound, fmt.Sprintf("no field %q", field))
	return types.INVALID
}

// checkBuiltin type-checks the @-prefixed and bare compiler builtins
// (spec §4.3). Arguments are always checked, even on an unresolvable
// builtin, so downstream diagnostics still see a fully-annotated subtree.
func (c *Checker) checkBuiltin(sc *scope.Scope, v ast.BuiltinCall, ctx *funcCtx) types.Index {
	for _, a := range v.Args {
		c.checkExpr(sc, a, ctx)
	}
	switch v.Name {
	case ast.BuiltinSizeOf, ast.BuiltinAlignOf:
		if v.TypeArg != ast.NullNode {
			c.resolveTypeExpr(v.TypeArg)
		}
		return types.I64IDX
	case ast.BuiltinString:
		return types.STRING
	case ast.BuiltinIntCast:
		if v.TypeArg != ast.NullNode {
			return c.resolveTypeExpr(v.TypeArg)
		}
		return types.INVALID
	case ast.BuiltinPtrCast:
		if v.TypeArg == ast.NullNode {
			return types.INVALID
		}
		t := c.resolveTypeExpr(v.TypeArg)
		if t != types.INVALID && !c.Reg.IsPointer(t) {
			c.Rep.ErrorWithCode(v.Span, diag.ETypeMismatch, "@ptrCast requires a pointer type argument")
			return types.INVALID
		}
		return t
	case ast.BuiltinIntToPtr:
		if v.TypeArg != ast.NullNode {
			return c.Reg.MakePointer(c.resolveTypeExpr(v.TypeArg))
		}
		return types.INVALID
	case ast.BuiltinPtrToInt:
		return types.I64IDX
	case ast.BuiltinAssert:
		return types.VOID
	case ast.BuiltinLen:
		return types.I64IDX
	case ast.BuiltinPrint, ast.BuiltinPrintln, ast.BuiltinEprint, ast.BuiltinEprintln:
		return types.VOID
	}
	return types.INVALID
}

func (c *Checker) checkStructInit(sc *scope.Scope, v ast.StructInit, pos ast.Pos, ctx *funcCtx) types.Index {
	idx, ok := c.Reg.LookupByName(v.TypeName)
	if !ok || !c.Reg.IsStruct(idx) {
		c.Rep.ErrorWithCode(pos, diag.EUndefinedIdent, fmt.Sprintf("undefined struct type %q", v.TypeName))
		for _, f := range v.Fields {
			c.checkExpr(sc, f.Value, ctx)
		}
		return types.INVALID
	}
	for _, f := range v.Fields {
		valType := c.checkExpr(sc, f.Value, ctx)
		_, fieldType, ok := c.Reg.FieldOffset(idx, f.Name)
		if !ok {
			c.Rep.ErrorWithCode(pos, diag.EFieldNotFound, fmt.Sprintf("%q has no field %q", v.TypeName, f.Name))
			continue
		}
		if !c.Reg.IsAssignable(valType, fieldType) {
			c.Rep.ErrorWithCode(pos, diag.ETypeMismatch, fmt.Sprintf("field %q: value not assignable", f.Name))
		}
	}
	return idx
}
