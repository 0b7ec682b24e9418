package check

import "github.com/lumen-lang/lumen/internal/ast"

// EvalConstExpr implements spec §4.3's compile-time constant evaluator:
// literals, unary -/~/!, binary arithmetic/bitwise/comparison/shift,
// parentheses, and identifier references to other folded constants.
// Only integer semantics are required (spec §8 S7).
func (c *Checker) EvalConstExpr(n ast.NodeIndex) (int64, bool) {
	if n == ast.NullNode {
		return 0, false
	}
	node := c.File.GetNode(n)
	switch v := node.Variant.(type) {
	case ast.Literal:
		switch v.Kind {
		case ast.LitInt:
			return v.Int, true
		case ast.LitTrue:
			return 1, true
		case ast.LitFalse:
			return 0, true
		}
		return 0, false
	case ast.Paren:
		return c.EvalConstExpr(v.Inner)
	case ast.Ident:
		if val, ok := c.getConst(v.Name); ok {
			return val, true
		}
		if sym, ok := c.Global.Lookup(v.Name); ok && sym.ConstValue != nil {
			return *sym.ConstValue, true
		}
		return 0, false
	case ast.Unary:
		operand, ok := c.EvalConstExpr(v.Operand)
		if !ok {
			return 0, false
		}
		switch v.Op {
		case ast.UnaryNeg:
			return -operand, true
		case ast.UnaryBitNot:
			return ^operand, true
		case ast.UnaryNot:
			if operand == 0 {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	case ast.Binary:
		l, ok := c.EvalConstExpr(v.Left)
		if !ok {
			return 0, false
		}
		r, ok := c.EvalConstExpr(v.Right)
		if !ok {
			return 0, false
		}
		switch v.Op {
		case ast.OpAdd:
			return l + r, true
		case ast.OpSub:
			return l - r, true
		case ast.OpMul:
			return l * r, true
		case ast.OpDiv:
			if r == 0 {
				return 0, false
			}
			return l / r, true
		case ast.OpMod:
			if r == 0 {
				return 0, false
			}
			return l % r, true
		case ast.OpBitAnd:
			return l & r, true
		case ast.OpBitOr:
			return l | r, true
		case ast.OpBitXor:
			return l ^ r, true
		case ast.OpShl:
			return l << uint64(r), true
		case ast.OpShr:
			return l >> uint64(r), true
		case ast.OpEq:
			return boolInt(l == r), true
		case ast.OpNe:
			return boolInt(l != r), true
		case ast.OpLt:
			return boolInt(l < r), true
		case ast.OpLe:
			return boolInt(l <= r), true
		case ast.OpGt:
			return boolInt(l > r), true
		case ast.OpGe:
			return boolInt(l >= r), true
		}
	}
	return 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
