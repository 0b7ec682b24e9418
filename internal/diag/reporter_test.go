package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/diag"
)

func TestReporterAccumulates(t *testing.T) {
	r := diag.New(nil)
	assert.False(t, r.HasErrors())

	r.ErrorWithCode(ast.Pos{Line: 3, Col: 5}, diag.EUndefinedIdent, "undefined: x")
	r.ErrorWithCode(ast.Pos{Line: 1, Col: 1}, diag.ERedefinedIdent, "redefined: f")

	assert.True(t, r.HasErrors())
	assert.Equal(t, 2, r.Count())

	sorted := r.SortedByPosition()
	assert.Equal(t, diag.ERedefinedIdent, sorted[0].Code, "line 1 should sort before line 3")
	assert.Equal(t, diag.EUndefinedIdent, sorted[1].Code)
}

func TestVerificationFailuresAggregate(t *testing.T) {
	var v diag.VerificationFailures
	assert.Nil(t, v.ErrorOrNil())

	v.Add(diag.InternalError("phi argument count mismatch in block %d", 2))
	v.Add(diag.InternalError("unresolved forward reference for local %d", 1))

	err := v.ErrorOrNil()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "phi argument count mismatch")
	assert.Contains(t, err.Error(), "unresolved forward reference")
}
