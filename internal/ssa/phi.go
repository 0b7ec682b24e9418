package ssa

import (
	"github.com/lumen-lang/lumen/internal/types"
)

// resolvePhis implements spec §4.5.5's deferred phi insertion work list:
// every fwd_ref created while converting a block is revisited once all
// blocks are populated, and rewritten in place to phi, copy, or left as an
// (unreachable) fwd_ref.
func resolvePhis(f *Func, fwdRefs []*Value, defvars map[*Block]map[int]*Value) {
	for _, v := range fwdRefs {
		local := int(v.AuxInt)
		blk := v.Block
		if defvars[blk] == nil {
			defvars[blk] = make(map[int]*Value)
		}
		if _, ok := defvars[blk][local]; !ok {
			defvars[blk][local] = v
		}
	}

	work := append([]*Value{}, fwdRefs...)
	inWork := make(map[*Value]bool, len(fwdRefs))
	for _, v := range work {
		inWork[v] = true
	}

	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		inWork[v] = false

		blk := v.Block
		local := int(v.AuxInt)
		if len(blk.Preds) == 0 {
			continue // unreachable use; left as fwd_ref, verify will flag it
		}

		args := make([]*Value, 0, len(blk.Preds))
		for _, p := range blk.Preds {
			args = append(args, lookupVarOutgoing(f, p, local, v.Type, defvars, &work, inWork))
		}

		witnesses := make(map[*Value]bool)
		for _, a := range args {
			if a != v {
				witnesses[a] = true
			}
		}
		switch len(witnesses) {
		case 0:
			// all self-references: leave as fwd_ref for Verify to flag.
		case 1:
			var only *Value
			for w := range witnesses {
				only = w
			}
			v.Op = OpCopy
			v.Args = []*Value{only}
		default:
			v.Op = OpPhi
			v.Args = args
		}
	}
}

// lookupVarOutgoing finds the value of local L visible leaving block,
// per spec §4.5.5: it skips single-predecessor pass-through blocks with
// no recorded definition, then either returns the recorded definition or
// synthesizes a fresh fwd_ref to be resolved by a later work-list pass.
func lookupVarOutgoing(f *Func, block *Block, local int, typ types.Index, defvars map[*Block]map[int]*Value, work *[]*Value, inWork map[*Value]bool) *Value {
	for len(block.Preds) == 1 {
		if _, ok := defvars[block][local]; ok {
			break
		}
		block = block.Preds[0]
	}
	if m, ok := defvars[block]; ok {
		if v, ok2 := m[local]; ok2 {
			return v
		}
	}
	v := &Value{ID: f.nextValueID, Op: OpFwdRef, Type: typ, Block: block, AuxInt: int64(local)}
	f.nextValueID++
	block.Values = append(block.Values, v)
	if defvars[block] == nil {
		defvars[block] = make(map[int]*Value)
	}
	defvars[block][local] = v
	if !inWork[v] {
		*work = append(*work, v)
		inWork[v] = true
	}
	return v
}
