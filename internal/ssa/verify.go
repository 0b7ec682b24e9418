package ssa

import "strconv"

// Verify checks the SSA invariants of spec §4.5.8 and §3.5. Failures are
// returned as human-readable strings; internal/compile leaves the function
// out of its result and returns the failures, wrapped, as Run's error
// rather than recording them in the diagnostic Reporter.
func Verify(f *Func) []string {
	var problems []string
	idom := Dominators(f)

	for _, b := range f.Blocks {
		seenNonPhi := false
		for _, v := range b.Values {
			if v.Op == OpPhi {
				if seenNonPhi {
					problems = append(problems, blockErr(b, "phi value follows a non-phi value"))
				}
				if len(v.Args) != len(b.Preds) {
					problems = append(problems, valueErr(v, "phi argument count does not match predecessor count"))
				}
			} else {
				seenNonPhi = true
			}
			if v.Op == OpFwdRef {
				problems = append(problems, valueErr(v, "unresolved forward reference survived construction"))
			}
		}

		switch b.Kind {
		case BlockIf:
			if len(b.Succs) != 2 {
				problems = append(problems, blockErr(b, "if block must have exactly two successors"))
			}
			if b.Control == nil {
				problems = append(problems, blockErr(b, "if block requires a control value"))
			}
		case BlockRet:
			if len(b.Succs) != 0 {
				problems = append(problems, blockErr(b, "ret block must have no successors"))
			}
		case BlockPlain:
			if len(b.Succs) != 1 {
				problems = append(problems, blockErr(b, "plain block must have exactly one successor"))
			}
		}

		for _, v := range b.Values {
			for i, a := range v.Args {
				if a.Op == OpPhi && a.Block == v.Block {
					continue // same-block phi precedes by construction
				}
				// A phi's i-th argument is used at the end of the i-th
				// predecessor, so dominance is checked against that block.
				use := v.Block
				if v.Op == OpPhi && i < len(b.Preds) {
					use = b.Preds[i]
				}
				if a.Block == use {
					continue // same-block ordering already enforced by emission order
				}
				if !Dominates(idom, a.Block, use) {
					problems = append(problems, valueErr(v, "argument's defining block does not dominate this value's block"))
				}
			}
		}
	}
	return problems
}

func blockErr(b *Block, msg string) string {
	return "block " + strconv.Itoa(int(b.ID)) + ": " + msg
}

func valueErr(v *Value, msg string) string {
	return "value v" + strconv.Itoa(int(v.ID)) + ": " + msg
}
