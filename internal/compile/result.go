package compile

import (
	"github.com/lumen-lang/lumen/internal/diag"
	"github.com/lumen-lang/lumen/internal/ssa"
)

// Result is everything a Compilation.Run call produces: one ssa.Func per
// checked, lowered, and verified source function, plus every diagnostic
// recorded along the way (spec §6's external interfaces: the SSA Func
// snapshot is the boundary handed to a not-implemented codegen stage).
type Result struct {
	Funcs       []*ssa.Func
	Diagnostics []diag.Entry
}

// Ok reports whether the checker recorded no diagnostics. SSA
// verification failures are not diagnostics: Run leaves those functions
// out of Funcs and returns the failures as its error. A caller with
// Ok() == false should not trust Funcs for functions whose diagnostics
// include an error.
func (r *Result) Ok() bool {
	return len(r.Diagnostics) == 0
}
