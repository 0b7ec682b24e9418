package lower_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/check"
	"github.com/lumen-lang/lumen/internal/diag"
	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/lower"
	"github.com/lumen-lang/lumen/internal/scope"
	"github.com/lumen-lang/lumen/internal/types"
)

func checkAndLower(t *testing.T, b *ast.Builder) (*check.Checker, []*ir.Func) {
	t.Helper()
	reg := types.NewRegistry()
	rep := diag.New(nil)
	global := scope.New(nil)
	c := check.New(reg, rep, global, b.File)
	c.CheckFile()
	require.False(t, rep.HasErrors(), "unexpected diagnostics: %v", rep.Entries())

	l := lower.New(reg, c, b.File)
	return c, l.LowerFile()
}

func findFunc(funcs []*ir.Func, name string) *ir.Func {
	for _, f := range funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func TestLowerReturnConstant(t *testing.T) {
	b := ast.NewBuilder("const.lumen")
	i64 := b.Named("i64")
	body := b.Block(b.Return(b.Int(42)))
	b.Func("answer", nil, i64, body, false)

	_, funcs := checkAndLower(t, b)
	f := findFunc(funcs, "answer")
	require.NotNil(t, f)
	require.Len(t, f.Blocks, 1)

	last := f.Blocks[0].Nodes[len(f.Blocks[0].Nodes)-1]
	assert.Equal(t, ir.OpRet, f.Node(last).Op)
}

func TestLowerIfElseProducesThreeBlocks(t *testing.T) {
	b := ast.NewBuilder("ifelse.lumen")
	i64, boolT := b.Named("i64"), b.Named("bool")
	thenBlk := b.Block(b.Return(b.Int(1)))
	elseBlk := b.Block(b.Return(b.Int(2)))
	body := b.Block(b.If(b.Ident("c"), thenBlk, elseBlk))
	b.Func("test", []ast.Param{b.P("c", boolT)}, i64, body, false)

	_, funcs := checkAndLower(t, b)
	f := findFunc(funcs, "test")
	require.NotNil(t, f)
	assert.Len(t, f.Blocks, 3)

	entryTerm := f.Node(f.Blocks[0].Terminator(f))
	assert.Equal(t, ir.OpBranch, entryTerm.Op)
}

func TestLowerExternSkipsBody(t *testing.T) {
	b := ast.NewBuilder("extern.lumen")
	i64 := b.Named("i64")
	b.Func("puts", []ast.Param{b.P("s", b.Named("i64"))}, i64, ast.NullNode, true)

	_, funcs := checkAndLower(t, b)
	assert.Nil(t, findFunc(funcs, "puts"), "extern functions must not produce an ir.Func")
}

func TestLowerWhileLoopHasCondBodyExitBlocks(t *testing.T) {
	b := ast.NewBuilder("while.lumen")
	i64 := b.Named("i64")
	body := b.Block(
		b.VarStmtNode("x", i64, b.Int(0), false, true),
		b.While(b.Bin(ast.OpLt, b.Ident("x"), b.Int(10)),
			b.Block(b.Assign(ast.AssignAdd, b.Ident("x"), b.Int(1)))),
		b.Return(b.Ident("x")),
	)
	b.Func("count", nil, i64, body, false)

	_, funcs := checkAndLower(t, b)
	f := findFunc(funcs, "count")
	require.NotNil(t, f)
	assert.GreaterOrEqual(t, len(f.Blocks), 4, "entry + cond + body + exit")
}

func TestLowerStringEqualityNeverCallsByteCompareHelper(t *testing.T) {
	b := ast.NewBuilder("streq.lumen")
	boolT := b.Named("bool")
	body := b.Block(b.Return(b.Bin(ast.OpEq, b.Str("a"), b.Str("b"))))
	b.Func("eq", nil, boolT, body, false)

	_, funcs := checkAndLower(t, b)
	f := findFunc(funcs, "eq")
	require.NotNil(t, f)
	for i := 0; i < f.NumNodes(); i++ {
		n := f.Node(ir.NodeIndex(i))
		if n.Op == ir.OpCallDirect {
			assert.NotEqual(t, "__lumen_memeq", n.Aux, "string equality must use the length+pointer shortcut, not a byte-compare call")
		}
	}
}
