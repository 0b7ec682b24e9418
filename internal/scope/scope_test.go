package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/internal/scope"
	"github.com/lumen-lang/lumen/internal/types"
)

// Property: for a scope chain L ⊂ M ⊂ G, L.Lookup(x) returns M's binding
// if present, else G's, else nothing, and never a sibling's (spec §8 #2).
func TestLookupDominance(t *testing.T) {
	g := scope.New(nil)
	defineSym(g, "x", types.I64IDX)

	m := scope.New(g)
	defineSym(m, "y", types.BOOL)

	l := scope.New(m)

	sibling := scope.New(m)
	defineSym(sibling, "z", types.F64IDX)

	sym, ok := l.Lookup("y")
	require.True(t, ok)
	assert.Equal(t, types.BOOL, sym.Type)

	sym, ok = l.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, types.I64IDX, sym.Type)

	_, ok = l.Lookup("z")
	assert.False(t, ok, "must not see a sibling's binding")

	_, ok = l.Lookup("nope")
	assert.False(t, ok)
}

func TestShadowing(t *testing.T) {
	g := scope.New(nil)
	defineSym(g, "x", types.I64IDX)
	l := scope.New(g)
	defineSym(l, "x", types.BOOL)

	sym, ok := l.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, types.BOOL, sym.Type, "inner x shadows outer x")

	sym, ok = g.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, types.I64IDX, sym.Type, "outer scope is untouched")
}

func TestLookupLocalDoesNotWalkParents(t *testing.T) {
	g := scope.New(nil)
	defineSym(g, "x", types.I64IDX)
	l := scope.New(g)

	_, ok := l.LookupLocal("x")
	assert.False(t, ok)

	_, ok = l.Lookup("x")
	assert.True(t, ok)
}

func TestIsDefinedGatesRedefinition(t *testing.T) {
	s := scope.New(nil)
	assert.False(t, s.IsDefined("f"))
	defineSym(s, "f", types.VOID)
	assert.True(t, s.IsDefined("f"))
}

func defineSym(s *scope.Scope, name string, t types.Index) {
	s.Define(&scope.Symbol{Name: name, Kind: scope.Variable, Type: t})
}
