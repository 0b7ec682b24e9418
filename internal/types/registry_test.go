package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/internal/types"
)

func TestReservedSlots(t *testing.T) {
	r := types.NewRegistry()
	assert.Equal(t, types.Invalid, r.Get(types.INVALID).Basic)
	assert.Equal(t, types.Bool, r.Get(types.BOOL).Basic)
	assert.Equal(t, types.I64, r.Get(types.I64IDX).Basic)
	assert.Equal(t, types.U8, r.Get(types.U8IDX).Basic)
	assert.Equal(t, types.KindSlice, r.Get(types.STRING).Kind)
	assert.Equal(t, types.U8IDX, r.Get(types.STRING).Elem)
}

func TestNameAliases(t *testing.T) {
	r := types.NewRegistry()
	idx, ok := r.LookupByName("int")
	require.True(t, ok)
	assert.Equal(t, types.I64IDX, idx)

	idx, ok = r.LookupByName("string")
	require.True(t, ok)
	assert.Equal(t, types.STRING, idx)
}

// Property: Add returns strictly increasing indices, and previously
// returned indices keep pointing at the same type forever (spec §8 #1).
func TestInterningMonotonicity(t *testing.T) {
	r := types.NewRegistry()
	before := r.Len()
	var idxs []types.Index
	for i := 0; i < 50; i++ {
		idx := r.Add(types.Type{Kind: types.KindBasic, Basic: types.I64})
		idxs = append(idxs, idx)
	}
	for i, idx := range idxs {
		assert.Equal(t, types.Index(before+i), idx)
		assert.Equal(t, types.I64, r.Get(idx).Basic)
	}
}

func TestStringAndSliceU8Interchangeable(t *testing.T) {
	r := types.NewRegistry()
	fresh := r.MakeSlice(types.U8IDX)
	assert.Equal(t, types.STRING, fresh, "MakeSlice(u8) should alias STRING")
	assert.True(t, r.Equal(types.STRING, fresh))
}

func TestStructLayout(t *testing.T) {
	r := types.NewRegistry()
	st := r.LayoutStruct("Point", []types.StructField{
		{Name: "x", Type: types.I32IDX},
		{Name: "y", Type: types.I64IDX},
	})
	idx := r.RegisterNamed("Point", st)
	off, fty, ok := r.FieldOffset(idx, "y")
	require.True(t, ok)
	assert.Equal(t, int64(8), off, "y should be 8-byte aligned after the i32 x field")
	assert.Equal(t, types.I64IDX, fty)
	assert.Equal(t, int64(16), r.SizeOf(idx))
	assert.Equal(t, int64(8), r.AlignmentOf(idx))
}

func TestEnumDefaultBacking(t *testing.T) {
	r := types.NewRegistry()
	e := types.LayoutEnum("Color", []types.EnumVariant{{Name: "Red"}, {Name: "Green"}}, types.INVALID)
	idx := r.RegisterNamed("Color", e)
	assert.Equal(t, types.I32IDX, r.Get(idx).Backing)
	assert.Equal(t, int64(4), r.SizeOf(idx))
}

func TestUnionTagWidth(t *testing.T) {
	small := types.LayoutUnion("Small", make([]types.UnionVariant, 10))
	assert.Equal(t, types.U8IDX, small.Backing)

	big := types.LayoutUnion("Big", make([]types.UnionVariant, 300))
	assert.Equal(t, types.U16IDX, big.Backing)
}

// Property: assignability is reflexive for every non-invalid type (spec §8 #3).
func TestAssignabilityReflexive(t *testing.T) {
	r := types.NewRegistry()
	candidates := []types.Index{
		types.BOOL, types.I8IDX, types.I64IDX, types.U8IDX, types.F32IDX, types.F64IDX,
		types.STRING, r.MakePointer(types.I64IDX), r.MakeSlice(types.I32IDX),
		r.MakeArray(types.U8IDX, 4), r.MakeOptional(types.I64IDX),
	}
	for _, idx := range candidates {
		assert.True(t, r.IsAssignable(idx, idx), "type %v should be assignable to itself", idx)
	}
}

func TestInvalidSuppressesCascade(t *testing.T) {
	r := types.NewRegistry()
	assert.True(t, r.IsAssignable(types.INVALID, types.I64IDX))
	assert.True(t, r.IsAssignable(types.I64IDX, types.INVALID))
}

func TestUntypedCoercion(t *testing.T) {
	r := types.NewRegistry()
	assert.True(t, r.IsAssignable(types.UNTYPED_INT, types.I32IDX))
	assert.True(t, r.IsAssignable(types.UNTYPED_INT, types.F64IDX))
	assert.False(t, r.IsAssignable(types.UNTYPED_FLOAT, types.I32IDX))
	assert.True(t, r.IsAssignable(types.UNTYPED_BOOL, types.BOOL))
}

func TestOptionalWrapping(t *testing.T) {
	r := types.NewRegistry()
	opt := r.MakeOptional(types.I64IDX)
	assert.True(t, r.IsAssignable(types.I64IDX, opt))
	assert.False(t, r.IsAssignable(opt, types.I64IDX))
}

func TestArrayToSliceAssignable(t *testing.T) {
	r := types.NewRegistry()
	arr := r.MakeArray(types.U8IDX, 4)
	sl := r.MakeSlice(types.U8IDX)
	assert.True(t, r.IsAssignable(arr, sl))
}

// Round-trip law: materialize(materialize(t)) == materialize(t).
func TestMaterializeIdempotent(t *testing.T) {
	r := types.NewRegistry()
	inputs := []types.Index{
		types.UNTYPED_INT, types.UNTYPED_FLOAT, types.UNTYPED_BOOL, types.I64IDX,
		r.MakeArray(types.UNTYPED_INT, 3),
	}
	for _, idx := range inputs {
		once := r.Materialize(idx)
		twice := r.Materialize(once)
		assert.Equal(t, once, twice)
	}
}

func TestMaterializeThenAssignable(t *testing.T) {
	r := types.NewRegistry()
	for _, from := range []types.Index{types.UNTYPED_INT, types.UNTYPED_FLOAT, types.UNTYPED_BOOL} {
		to := r.Materialize(from)
		assert.True(t, r.IsAssignable(from, to))
	}
}

func TestMethodRegistry(t *testing.T) {
	r := types.NewRegistry()
	sig := r.MakeFunc(nil, types.VOID)
	r.RegisterMethod("Counter", types.MethodInfo{Name: "incr", SigType: sig})
	m, ok := r.LookupMethod("Counter", "incr")
	require.True(t, ok)
	assert.Equal(t, sig, m.SigType)

	_, ok = r.LookupMethod("Counter", "missing")
	assert.False(t, ok)
}
