package ssa

import (
	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/types"
)

// Build converts one lowered IR function to SSA form (spec §4.5): three-
// phase parameter setup, a main conversion loop over every IR block, then
// deferred phi insertion and verification. and/or and string-equality have
// already been expanded into ordinary branches by the lower package (see
// DESIGN.md), so the pre-scan that spec §4.5.3 describes for excluding
// logical operands from the main loop is not needed here — every IR node
// converts exactly once, in block order.
func Build(reg *types.Registry, f *ir.Func) (*Func, []string) {
	b := &builder{
		reg:         reg,
		irf:         f,
		f:           NewFunc(f.Name),
		blockMap:    make(map[ir.BlockIndex]*Block),
		nodeValues:  make(map[ir.NodeIndex]*Value),
		localAddrs:  make(map[int]*Value),
		vars:        make(map[int]*Value),
		fwdVars:     make(map[int]*Value),
		defvars:     make(map[*Block]map[int]*Value),
	}
	return b.run()
}

type builder struct {
	reg *types.Registry
	irf *ir.Func
	f   *Func

	blockMap   map[ir.BlockIndex]*Block
	nodeValues map[ir.NodeIndex]*Value
	localAddrs map[int]*Value

	cur *Block

	// vars/fwdVars hold the state of the block currently being populated
	// (spec §4.5.1); defvars snapshots them at the end of each finished
	// block for lookupVarOutgoing to consult.
	vars    map[int]*Value
	fwdVars map[int]*Value
	defvars map[*Block]map[int]*Value

	fwdRefs []*Value // all fwd_ref values created, for the deferred phi pass
}

func (b *builder) run() (*Func, []string) {
	b.f.Params = append(b.f.Params, b.irf.Params...)
	b.f.ReturnType = b.irf.ReturnType
	b.f.Strings = b.irf.Strings

	for bi, irb := range b.irf.Blocks {
		kind := BlockPlain
		term := b.irf.Node(irb.Terminator(b.irf))
		switch term.Op {
		case ir.OpRet:
			kind = BlockRet
		case ir.OpBranch:
			kind = BlockIf
		}
		b.blockMap[ir.BlockIndex(bi)] = b.f.NewBlock(kind, irb.Label)
	}
	for bi, irb := range b.irf.Blocks {
		sb := b.blockMap[ir.BlockIndex(bi)]
		for _, succ := range irb.Successors {
			linkSSA(sb, b.blockMap[succ])
		}
	}

	entry := b.blockMap[0]
	b.cur = entry
	b.installParams()

	for bi := range b.irf.Blocks {
		b.startBlock(ir.BlockIndex(bi))
		b.convertBlockBody(ir.BlockIndex(bi))
	}

	resolvePhis(b.f, b.fwdRefs, b.defvars)
	scheduleFunc(b.f)

	return b.f, Verify(b.f)
}

// startBlock saves the previous block's vars into defvars and clears vars
// for the new block, per spec §4.5.3 ("if not the entry, start the block").
func (b *builder) startBlock(bi ir.BlockIndex) {
	sb := b.blockMap[bi]
	if bi != 0 {
		b.defvars[b.cur] = b.vars
		b.vars = make(map[int]*Value)
	}
	b.fwdVars = make(map[int]*Value)
	b.cur = sb
}

func (b *builder) convertBlockBody(bi ir.BlockIndex) {
	irb := b.irf.Blocks[bi]
	for _, n := range irb.Nodes {
		b.convertNode(n)
	}
	b.defvars[b.cur] = copyVars(b.vars)
}

func copyVars(m map[int]*Value) map[int]*Value {
	out := make(map[int]*Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// localAddr returns (creating once) the stack-slot address of local idx,
// emitted into the entry block so every later use dominates correctly.
func (b *builder) localAddr(idx int) *Value {
	if v, ok := b.localAddrs[idx]; ok {
		return v
	}
	entry := b.blockMap[0]
	v := b.f.NewValue(entry, OpLocalAddr, types.INVALID, nil, int64(idx), "")
	b.localAddrs[idx] = v
	return v
}

func (b *builder) isSlicey(t types.Index) bool {
	m := b.reg.Materialize(t)
	return b.reg.IsSlice(m) || m == types.STRING
}

// variable implements the forward-reference read rule of spec §4.5.4.
func (b *builder) variable(local int, typ types.Index) *Value {
	if v, ok := b.vars[local]; ok {
		return v
	}
	if v, ok := b.fwdVars[local]; ok {
		return v
	}
	v := b.f.NewValue(b.cur, OpFwdRef, typ, nil, int64(local), "")
	b.fwdVars[local] = v
	b.fwdRefs = append(b.fwdRefs, v)
	return v
}

func (b *builder) defineLocal(local int, v *Value) {
	b.vars[local] = v
}

// installParams implements the three-phase ABI setup of spec §4.5.2.
func (b *builder) installParams() {
	type paramInfo struct {
		localIdx int
		regs     int
		kind     string // "scalar", "string", "struct1", "struct2", "structref"
	}
	var infos []paramInfo
	for i, l := range b.irf.Locals {
		if !l.IsParam {
			continue
		}
		mt := b.reg.Materialize(l.Type)
		info := paramInfo{localIdx: i}
		switch {
		case b.isSlicey(l.Type):
			info.kind, info.regs = "string", 2
		case b.reg.IsStruct(mt):
			sz := b.reg.SizeOf(mt)
			switch {
			case sz <= 8:
				info.kind, info.regs = "struct1", 1
			case sz <= 16:
				info.kind, info.regs = "struct2", 2
			default:
				info.kind, info.regs = "structref", 1
			}
		default:
			info.kind, info.regs = "scalar", 1
		}
		infos = append(infos, info)
	}

	// Phase 1: create all arg values, consuming physical registers in order.
	argVals := make(map[int][]*Value, len(infos))
	regIdx := 0
	for _, info := range infos {
		l := b.irf.Locals[info.localIdx]
		var vs []*Value
		for r := 0; r < info.regs; r++ {
			argType := l.Type
			if info.kind == "string" {
				argType = types.I64IDX // pointer/len register slot, either half
			}
			vs = append(vs, b.f.NewValue(b.cur, OpArg, argType, nil, int64(regIdx), l.Name))
			regIdx++
		}
		argVals[info.localIdx] = vs
	}

	// Phase 2: construct composite values (string/slice parameters only).
	composite := make(map[int]*Value, len(infos))
	for _, info := range infos {
		if info.kind != "string" {
			continue
		}
		vs := argVals[info.localIdx]
		l := b.irf.Locals[info.localIdx]
		composite[info.localIdx] = b.f.NewValue(b.cur, OpSliceMake, l.Type, []*Value{vs[0], vs[1]}, 0, "")
	}

	// Phase 3: store every parameter to its stack slot.
	for _, info := range infos {
		l := b.irf.Locals[info.localIdx]
		addr := b.localAddr(info.localIdx)
		switch info.kind {
		case "scalar":
			v := argVals[info.localIdx][0]
			b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, v}, 0, "")
			b.defineLocal(info.localIdx, v)
		case "string":
			v := composite[info.localIdx]
			ptr := b.f.NewValue(b.cur, OpSlicePtr, types.I64IDX, []*Value{v}, 0, "")
			length := b.f.NewValue(b.cur, OpSliceLen, types.I64IDX, []*Value{v}, 0, "")
			b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, ptr}, 0, "")
			off8 := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{addr}, 8, "")
			b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off8, length}, 0, "")
			b.defineLocal(info.localIdx, v)
		case "struct1":
			v := argVals[info.localIdx][0]
			b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, v}, 0, "")
		case "struct2":
			lo, hi := argVals[info.localIdx][0], argVals[info.localIdx][1]
			b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, lo}, 0, "")
			off8 := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{addr}, 8, "")
			b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off8, hi}, 0, "")
		case "structref":
			srcPtr := argVals[info.localIdx][0]
			b.f.NewValue(b.cur, OpMove, types.MEM, []*Value{addr, srcPtr}, b.reg.SizeOf(l.Type), "")
		}
	}
}
