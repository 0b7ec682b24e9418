package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/types"
)

func newTestRegistry() *types.Registry {
	return types.NewRegistry()
}

// TestBuildStraightLine exercises a function with no control flow: it
// should produce one SSA block, no fwd_ref/phi values, and pass Verify.
func TestBuildStraightLine(t *testing.T) {
	reg := newTestRegistry()
	f := ir.NewFunc("straight")
	f.ReturnType = types.I64IDX
	entry := f.NewBlock("entry")
	c := f.Emit(entry, ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 42})
	f.Emit(entry, ir.Node{Op: ir.OpRet, Args: []ir.NodeIndex{c}})

	sf, problems := Build(reg, f)
	require.Empty(t, problems)
	require.Len(t, sf.Blocks, 1)
	require.Equal(t, BlockRet, sf.Blocks[0].Kind)
}

// TestBuildIfMergePhi builds `var x; if cond { x = 1 } else { x = 2 };
// return x` directly in IR form and checks the merge block's load of x
// resolves to a two-argument phi over distinct witnesses (spec §4.5.5).
func TestBuildIfMergePhi(t *testing.T) {
	reg := newTestRegistry()
	f := ir.NewFunc("ifmerge")
	f.ReturnType = types.I64IDX
	xLocal := f.AddLocal(ir.Local{Name: "x", Type: types.I64IDX, Size: 8, IsMutable: true})

	entry := f.NewBlock("entry")
	thenB := f.NewBlock("then")
	elseB := f.NewBlock("else")
	mergeB := f.NewBlock("merge")

	condArg := f.AddLocal(ir.Local{Name: "cond", Type: types.BOOL, Size: 1, IsParam: true})
	f.Params = append(f.Params, types.BOOL)
	condVal := f.Emit(entry, ir.Node{Op: ir.OpLoadLocal, Type: types.BOOL, AuxInt: int64(condArg)})
	f.Emit(entry, ir.Node{Op: ir.OpBranch, Args: []ir.NodeIndex{condVal}, Targets: []ir.BlockIndex{thenB, elseB}})
	f.Link(entry, thenB)
	f.Link(entry, elseB)

	one := f.Emit(thenB, ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 1})
	f.Emit(thenB, ir.Node{Op: ir.OpStoreLocal, Type: types.I64IDX, AuxInt: int64(xLocal), Args: []ir.NodeIndex{one}})
	f.Emit(thenB, ir.Node{Op: ir.OpJump, Targets: []ir.BlockIndex{mergeB}})
	f.Link(thenB, mergeB)

	two := f.Emit(elseB, ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 2})
	f.Emit(elseB, ir.Node{Op: ir.OpStoreLocal, Type: types.I64IDX, AuxInt: int64(xLocal), Args: []ir.NodeIndex{two}})
	f.Emit(elseB, ir.Node{Op: ir.OpJump, Targets: []ir.BlockIndex{mergeB}})
	f.Link(elseB, mergeB)

	loaded := f.Emit(mergeB, ir.Node{Op: ir.OpLoadLocal, Type: types.I64IDX, AuxInt: int64(xLocal)})
	f.Emit(mergeB, ir.Node{Op: ir.OpRet, Args: []ir.NodeIndex{loaded}})

	sf, problems := Build(reg, f)
	require.Empty(t, problems)

	merge := sf.Blocks[3]
	require.NotEmpty(t, merge.Values)
	require.Equal(t, OpPhi, merge.Values[0].Op)
	require.Len(t, merge.Values[0].Args, 2)
	require.NotEqual(t, merge.Values[0].Args[0], merge.Values[0].Args[1])
}
