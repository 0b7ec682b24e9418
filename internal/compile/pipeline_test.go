package compile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/compile"
	"github.com/lumen-lang/lumen/internal/ssa"
)

func countOp(f *ssa.Func, op ssa.Op) int {
	n := 0
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op == op {
				n++
			}
		}
	}
	return n
}

func mustFunc(t *testing.T, res *compile.Result, name string) *ssa.Func {
	t.Helper()
	for _, f := range res.Funcs {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no function named %q in result (have %d funcs)", name, len(res.Funcs))
	return nil
}

// TestScenarioAnswer is S1: a single constant return.
func TestScenarioAnswer(t *testing.T) {
	b := ast.NewBuilder("s1.lumen")
	i64 := b.Named("i64")
	body := b.Block(b.Return(b.Int(42)))
	b.Func("answer", nil, i64, body, false)

	c := compile.NewCompilation(compile.NewOptions())
	res, err := c.Run([]*ast.File{b.File})
	require.NoError(t, err)
	require.True(t, res.Ok(), "%v", res.Diagnostics)

	f := mustFunc(t, res, "answer")
	require.Len(t, f.Blocks, 1)
	assert.Equal(t, ssa.BlockRet, f.Blocks[0].Kind)
	assert.Equal(t, 1, countOp(f, ssa.OpConstInt))
	require.NotNil(t, f.Blocks[0].Control)
}

// TestScenarioLocalArithmetic is S2: a mutable local, read back, added to
// a constant.
func TestScenarioLocalArithmetic(t *testing.T) {
	b := ast.NewBuilder("s2.lumen")
	i64 := b.Named("i64")
	body := b.Block(
		b.VarStmtNode("x", i64, b.Int(40), false, true),
		b.Return(b.Bin(ast.OpAdd, b.Ident("x"), b.Int(2))),
	)
	b.Func("main", nil, i64, body, false)

	c := compile.NewCompilation(compile.NewOptions())
	res, err := c.Run([]*ast.File{b.File})
	require.NoError(t, err)
	require.True(t, res.Ok(), "%v", res.Diagnostics)

	f := mustFunc(t, res, "main")
	assert.GreaterOrEqual(t, countOp(f, ssa.OpLocalAddr), 1)
	assert.GreaterOrEqual(t, countOp(f, ssa.OpStore), 1)
	assert.GreaterOrEqual(t, countOp(f, ssa.OpAdd), 1)
}

// TestScenarioIfElseBothReturn is S3: each branch of an if/else returns
// directly, so no merge block is needed.
func TestScenarioIfElseBothReturn(t *testing.T) {
	b := ast.NewBuilder("s3.lumen")
	i64, boolT := b.Named("i64"), b.Named("bool")
	thenBlk := b.Block(b.Return(b.Int(1)))
	elseBlk := b.Block(b.Return(b.Int(2)))
	body := b.Block(b.If(b.Ident("c"), thenBlk, elseBlk))
	b.Func("test", []ast.Param{b.P("c", boolT)}, i64, body, false)

	c := compile.NewCompilation(compile.NewOptions())
	res, err := c.Run([]*ast.File{b.File})
	require.NoError(t, err)
	require.True(t, res.Ok(), "%v", res.Diagnostics)

	f := mustFunc(t, res, "test")
	require.Len(t, f.Blocks, 3)
	assert.Equal(t, ssa.BlockIf, f.Blocks[0].Kind)
	assert.Equal(t, ssa.BlockRet, f.Blocks[1].Kind)
	assert.Equal(t, ssa.BlockRet, f.Blocks[2].Kind)
}

// TestScenarioConstFolding is S5: a folded constant is never materialized
// as a global; FOUR lowers directly to a const_int wherever referenced.
func TestScenarioConstFolding(t *testing.T) {
	b := ast.NewBuilder("s5.lumen")
	i64 := b.Named("i64")
	b.GlobalVar("FOUR", i64, b.Bin(ast.OpAdd, b.Int(2), b.Int(2)), true)
	body := b.Block(b.Return(b.Bin(ast.OpMul, b.Ident("FOUR"), b.Int(10))))
	b.Func("main", nil, i64, body, false)

	c := compile.NewCompilation(compile.NewOptions())
	res, err := c.Run([]*ast.File{b.File})
	require.NoError(t, err)
	require.True(t, res.Ok(), "%v", res.Diagnostics)

	require.Len(t, res.Funcs, 1, "FOUR must not lower to a separate IR function/global")
	f := res.Funcs[0]
	assert.Equal(t, "main", f.Name)
	assert.GreaterOrEqual(t, countOp(f, ssa.OpConstInt), 1)
}

// TestScenarioTenArgs is S6: ten scalar parameters each consume exactly
// one physical register (aux_int 0..9) and are stored before any
// arithmetic runs.
func TestScenarioTenArgs(t *testing.T) {
	b := ast.NewBuilder("s6.lumen")
	i64 := b.Named("i64")
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	var params []ast.Param
	sum := b.Ident("a")
	for idx, n := range names {
		params = append(params, b.P(n, i64))
		if idx > 0 {
			sum = b.Bin(ast.OpAdd, sum, b.Ident(n))
		}
	}
	body := b.Block(b.Return(sum))
	b.Func("sum10", params, i64, body, false)

	c := compile.NewCompilation(compile.NewOptions())
	res, err := c.Run([]*ast.File{b.File})
	require.NoError(t, err)
	require.True(t, res.Ok(), "%v", res.Diagnostics)

	f := mustFunc(t, res, "sum10")
	entry := f.Blocks[0]
	var args []*ssa.Value
	for _, v := range entry.Values {
		if v.Op == ssa.OpArg {
			args = append(args, v)
		}
	}
	require.Len(t, args, 10)
	seen := make(map[int64]bool)
	for _, a := range args {
		seen[a.AuxInt] = true
	}
	for i := int64(0); i < 10; i++ {
		assert.True(t, seen[i], "missing arg register index %d", i)
	}
	assert.GreaterOrEqual(t, countOp(f, ssa.OpAdd), 9)
}

// TestConcurrentAndSequentialAgree checks that bounding Phase 2 to one
// worker (the spec's sequential baseline) and letting it run unbounded
// produce the same set of function names and SSA value counts, per
// spec.md §5's concurrency note.
func TestConcurrentAndSequentialAgree(t *testing.T) {
	b := ast.NewBuilder("agree.lumen")
	i64 := b.Named("i64")
	for i := 0; i < 8; i++ {
		name := string(rune('a' + i))
		body := b.Block(b.Return(b.Bin(ast.OpAdd, b.Int(int64(i)), b.Int(1))))
		b.Func(name, nil, i64, body, false)
	}

	seqOpts := compile.NewOptions()
	seqOpts.Workers = 1
	seq, err := compile.NewCompilation(seqOpts).Run([]*ast.File{b.File})
	require.NoError(t, err)
	require.True(t, seq.Ok())

	parOpts := compile.NewOptions()
	parOpts.Workers = 8
	par, err := compile.NewCompilation(parOpts).Run([]*ast.File{b.File})
	require.NoError(t, err)
	require.True(t, par.Ok())

	require.Equal(t, len(seq.Funcs), len(par.Funcs))
	seqCounts := map[string]int{}
	for _, f := range seq.Funcs {
		seqCounts[f.Name] = f.NumValues()
	}
	for _, f := range par.Funcs {
		assert.Equal(t, seqCounts[f.Name], f.NumValues(), "function %s disagreed between sequential and concurrent runs", f.Name)
	}
}
