package check

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/diag"
	"github.com/lumen-lang/lumen/internal/scope"
	"github.com/lumen-lang/lumen/internal/types"
)

// resolveTypeExpr converts an ast type-expression node into a
// types.Index, registering composite types on demand via the Registry's
// make* helpers.
func (c *Checker) resolveTypeExpr(n ast.NodeIndex) types.Index {
	if n == ast.NullNode {
		return types.VOID
	}
	node := c.File.GetNode(n)
	data, ok := node.Variant.(ast.TypeExprData)
	if !ok {
		c.Rep.ErrorWithCode(node.Span, diag.ETypeMismatch, "expected a type expression")
		return types.INVALID
	}
	switch data.Kind {
	case ast.TypeNamed:
		if idx, ok := c.Reg.LookupByName(data.Name); ok {
			return idx
		}
		c.Rep.ErrorWithCode(data.Span, diag.EUndefinedIdent, fmt.Sprintf("undefined type %q", data.Name))
		return types.INVALID
	case ast.TypePointer:
		return c.Reg.MakePointer(c.resolveTypeExpr(data.Elem))
	case ast.TypeOptional, ast.TypeErrorUnion:
		return c.Reg.MakeOptional(c.resolveTypeExpr(data.Elem))
	case ast.TypeSlice:
		return c.Reg.MakeSlice(c.resolveTypeExpr(data.Elem))
	case ast.TypeArray:
		length, ok := c.EvalConstExpr(data.Size)
		if !ok {
			c.Rep.ErrorWithCode(data.Span, diag.ETypeMismatch, "array length must be a compile-time constant")
			length = 0
		}
		return c.Reg.MakeArray(c.resolveTypeExpr(data.Elem), length)
	case ast.TypeMap:
		return c.Reg.MakeMap(c.resolveTypeExpr(data.Key), c.resolveTypeExpr(data.Value))
	case ast.TypeList:
		return c.Reg.MakeList(c.resolveTypeExpr(data.Elem))
	case ast.TypeFunction:
		params := make([]types.FuncParam, len(data.Params))
		for i, p := range data.Params {
			params[i] = types.FuncParam{Type: c.resolveTypeExpr(p)}
		}
		ret := types.VOID
		if data.Ret != ast.NullNode {
			ret = c.resolveTypeExpr(data.Ret)
		}
		return c.Reg.MakeFunc(params, ret)
	}
	return types.INVALID
}

func (c *Checker) declareStruct(d ast.StructDecl) {
	fields := make([]types.StructField, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = types.StructField{Name: f.Name, Type: c.resolveTypeExpr(f.TypeExpr)}
	}
	t := c.Reg.LayoutStruct(d.Name, fields)
	c.Reg.RegisterNamed(d.Name, t)
}

func (c *Checker) declareEnum(d ast.EnumDecl) {
	backing := types.INVALID
	if d.BackingType != ast.NullNode {
		backing = c.resolveTypeExpr(d.BackingType)
	}
	variants := make([]types.EnumVariant, len(d.Variants))
	next := int64(0)
	for i, v := range d.Variants {
		val := next
		if v.Value != ast.NullNode {
			if folded, ok := c.EvalConstExpr(v.Value); ok {
				val = folded
			}
		}
		variants[i] = types.EnumVariant{Name: v.Name, Value: val}
		next = val + 1
	}
	t := types.LayoutEnum(d.Name, variants, backing)
	c.Reg.RegisterNamed(d.Name, t)
}

func (c *Checker) declareUnion(d ast.UnionDecl) {
	variants := make([]types.UnionVariant, len(d.Variants))
	for i, v := range d.Variants {
		payload := types.INVALID
		if v.Payload != ast.NullNode {
			payload = c.resolveTypeExpr(v.Payload)
		}
		variants[i] = types.UnionVariant{Name: v.Name, Payload: payload}
	}
	t := types.LayoutUnion(d.Name, variants)
	c.Reg.RegisterNamed(d.Name, t)
}

func (c *Checker) declareAlias(d ast.TypeAlias) {
	target := c.resolveTypeExpr(d.Target)
	c.Reg.RegisterNamed(d.Name, c.Reg.Get(target))
}

func paramTypes(c *Checker, params []ast.Param, receiver string) []types.FuncParam {
	out := make([]types.FuncParam, 0, len(params)+1)
	if receiver != "" {
		if idx, ok := c.Reg.LookupByName(receiver); ok {
			out = append(out, types.FuncParam{Name: "self", Type: c.Reg.MakePointer(idx)})
		}
	}
	for _, p := range params {
		out = append(out, types.FuncParam{Name: p.Name, Type: c.resolveTypeExpr(p.TypeExpr)})
	}
	return out
}

func (c *Checker) declareFunc(d ast.FuncDecl, receiver string, node ast.NodeIndex) {
	ret := types.VOID
	if d.ReturnType != ast.NullNode {
		ret = c.resolveTypeExpr(d.ReturnType)
	}
	params := paramTypes(c, d.Params, receiver)
	sig := c.Reg.MakeFunc(params, ret)

	name := d.Name
	if receiver != "" {
		name = MethodLookupName(receiver, d.Name)
		c.Reg.RegisterMethod(receiver, types.MethodInfo{
			Name: d.Name, SigType: sig, DefiningID: int64(node),
		})
	}

	sym := &scope.Symbol{
		Name: name, Kind: scope.Function, Type: sig,
		DefiningNode: int64(node), IsExtern: d.IsExtern,
	}
	c.define(c.Global, sym, d.Span)
}

func (c *Checker) declareGlobal(d ast.VarDecl, node ast.NodeIndex) {
	declType := types.INVALID
	if d.TypeExpr != ast.NullNode {
		declType = c.resolveTypeExpr(d.TypeExpr)
	}

	var constVal *int64
	if d.IsConst && d.Value != ast.NullNode {
		if v, ok := c.EvalConstExpr(d.Value); ok {
			constVal = &v
			c.setConst(d.Name, v)
		}
	}

	valueType := types.INVALID
	if d.Value != ast.NullNode {
		valueType = c.checkExprNoScope(d.Value)
	}
	if declType == types.INVALID {
		declType = c.Reg.Materialize(valueType)
	} else if d.Value != ast.NullNode && !c.Reg.IsAssignable(valueType, declType) {
		c.Rep.ErrorWithCode(d.Span, diag.ETypeMismatch,
			fmt.Sprintf("cannot assign value of type %v to variable %q of declared type %v", valueType, d.Name, declType))
	}

	sym := &scope.Symbol{
		Name: d.Name, Kind: scope.Variable, Type: declType,
		DefiningNode: int64(node), Mutable: !d.IsConst, ConstValue: constVal,
	}
	if d.IsConst {
		sym.Kind = scope.Constant
	}
	c.define(c.Global, sym, d.Span)
}

// checkExprNoScope type-checks a global initializer, which may only
// reference other globals/constants (it runs before any function scope
// exists).
func (c *Checker) checkExprNoScope(n ast.NodeIndex) types.Index {
	return c.checkExpr(c.Global, n, nil)
}
