package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/types"
)

// TestCompareNarrowAgainstWideExtendsFromActualWidth guards spec.md's
// 3x3xsignedness extension table: comparing an i8 to an i64 must widen
// the i8 operand with sign_ext8to64, never the 32-bit variant.
func TestCompareNarrowAgainstWideExtendsFromActualWidth(t *testing.T) {
	reg := newTestRegistry()
	f := ir.NewFunc("cmp8")
	f.ReturnType = types.BOOL
	entry := f.NewBlock("entry")

	narrow := f.Emit(entry, ir.Node{Op: ir.OpConstInt, Type: types.I8IDX, AuxInt: 1})
	wide := f.Emit(entry, ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 100})
	cmp := f.Emit(entry, ir.Node{Op: ir.OpBinary, Type: types.BOOL, AuxInt: int64(ir.BinLt), Args: []ir.NodeIndex{narrow, wide}})
	f.Emit(entry, ir.Node{Op: ir.OpRet, Args: []ir.NodeIndex{cmp}})

	sf, problems := Build(reg, f)
	require.Empty(t, problems)

	var sawExt8, saw32 bool
	for _, v := range sf.Blocks[0].Values {
		if v.Op == OpSignExt8to64 {
			sawExt8 = true
		}
		if v.Op == OpSignExt32to64 {
			saw32 = true
		}
	}
	require.True(t, sawExt8, "expected sign_ext8to64 for the i8 operand")
	require.False(t, saw32, "should not emit sign_ext32to64 for an 8-bit operand")
}

// TestConvertI64ToI16Truncates guards the truncation half of the same
// table: narrowing i64 -> i16 must emit trunc64to16, not trunc64to32.
func TestConvertI64ToI16Truncates(t *testing.T) {
	reg := newTestRegistry()
	f := ir.NewFunc("trunc16")
	f.ReturnType = types.I16IDX
	entry := f.NewBlock("entry")

	wide := f.Emit(entry, ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 300})
	narrowed := f.Emit(entry, ir.Node{Op: ir.OpConvert, Type: types.I16IDX, Args: []ir.NodeIndex{wide}})
	f.Emit(entry, ir.Node{Op: ir.OpRet, Args: []ir.NodeIndex{narrowed}})

	sf, problems := Build(reg, f)
	require.Empty(t, problems)

	var sawTrunc16, sawTrunc32 bool
	for _, v := range sf.Blocks[0].Values {
		if v.Op == OpTrunc64to16 {
			sawTrunc16 = true
		}
		if v.Op == OpTrunc64to32 {
			sawTrunc32 = true
		}
	}
	require.True(t, sawTrunc16, "expected trunc64to16 when narrowing to i16")
	require.False(t, sawTrunc32, "should not emit trunc64to32 when narrowing to i16")
}
