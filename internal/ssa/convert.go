package ssa

import (
	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/types"
)

// convertNode translates one IR node to one or more SSA values, memoized
// via nodeValues (spec §4.5.3). It returns the value representing the IR
// node's result (nil for nodes with no value, such as stores).
func (b *builder) convertNode(n ir.NodeIndex) *Value {
	if v, ok := b.nodeValues[n]; ok {
		return v
	}
	node := b.irf.Node(n)
	v := b.convertNodeUncached(n, node)
	if v != nil {
		b.nodeValues[n] = v
	}
	return v
}

func (b *builder) arg(n ir.NodeIndex) *Value { return b.convertNode(n) }

func (b *builder) convertNodeUncached(n ir.NodeIndex, node *ir.Node) *Value {
	switch node.Op {
	case ir.OpNop:
		return nil

	case ir.OpConstInt:
		return b.f.NewValue(b.cur, OpConstInt, node.Type, nil, node.AuxInt, "")
	case ir.OpConstFloat:
		return b.f.NewValue(b.cur, OpConstFloat, node.Type, nil, node.AuxInt, "")
	case ir.OpConstBool:
		return b.f.NewValue(b.cur, OpConstBool, node.Type, nil, node.AuxInt, "")
	case ir.OpConstNull:
		return b.f.NewValue(b.cur, OpConstNil, node.Type, nil, 0, "")
	case ir.OpConstString:
		return b.f.NewValue(b.cur, OpConstString, types.STRING, nil, node.AuxInt, "")

	case ir.OpLoadLocal:
		return b.convertLoadLocal(node)
	case ir.OpStoreLocal:
		return b.convertStoreLocal(node)

	case ir.OpLoadGlobal:
		return b.convertLoadGlobal(node)
	case ir.OpStoreGlobal:
		val := b.arg(node.Args[0])
		addr := b.f.NewValue(b.cur, OpGlobalAddr, types.INVALID, nil, 0, node.Aux)
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, val}, 0, "")
		return val

	case ir.OpBinary:
		return b.convertBinary(node)
	case ir.OpUnary:
		return b.convertUnary(node)

	case ir.OpStrConcat:
		left, right := b.arg(node.Args[0]), b.arg(node.Args[1])
		return b.f.NewValue(b.cur, OpStringConcat, types.STRING, []*Value{left, right}, 0, "")
	case ir.OpStringMake:
		ptr, length := b.arg(node.Args[0]), b.arg(node.Args[1])
		return b.f.NewValue(b.cur, OpStringMake, types.STRING, []*Value{ptr, length}, 0, "")

	case ir.OpCallDirect:
		var args []*Value
		for _, a := range node.Args {
			args = append(args, b.arg(a))
		}
		return b.f.NewValue(b.cur, OpStaticCall, node.Type, args, 0, node.Aux)
	case ir.OpCallIndirect:
		var args []*Value
		for _, a := range node.Args[1:] {
			args = append(args, b.arg(a))
		}
		callee := b.arg(node.Args[0])
		return b.f.NewValue(b.cur, OpClosureCall, node.Type, append([]*Value{callee}, args...), 0, "")

	case ir.OpAddrLocal:
		return b.localAddr(int(node.AuxInt))
	case ir.OpAddrGlobal:
		return b.f.NewValue(b.cur, OpGlobalAddr, node.Type, nil, 0, node.Aux)
	case ir.OpAddrIndex:
		base, index := b.arg(node.Args[0]), b.arg(node.Args[1])
		return b.scaledOffset(base, index, node.AuxInt)
	case ir.OpAddrOffset:
		base := b.arg(node.Args[0])
		return b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{base}, node.AuxInt, "")
	case ir.OpFuncAddr:
		return b.f.NewValue(b.cur, OpFuncAddr, node.Type, nil, 0, node.Aux)

	case ir.OpPtrLoad:
		ptr := b.arg(node.Args[0])
		return b.f.NewValue(b.cur, OpLoad, node.Type, []*Value{ptr}, 0, "")
	case ir.OpPtrStore:
		ptr, val := b.arg(node.Args[0]), b.arg(node.Args[1])
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{ptr, val}, 0, "")
		return val

	case ir.OpFieldLocalRead:
		addr := b.localAddr(int(node.AuxInt))
		off := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{addr}, node.AuxInt2, "")
		return b.f.NewValue(b.cur, OpLoad, node.Type, []*Value{off}, 0, "")
	case ir.OpFieldLocalWrite:
		val := b.arg(node.Args[0])
		addr := b.localAddr(int(node.AuxInt))
		off := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{addr}, node.AuxInt2, "")
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off, val}, 0, "")
		return val
	case ir.OpFieldValueRead:
		base := b.arg(node.Args[0])
		off := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{base}, node.AuxInt, "")
		return b.f.NewValue(b.cur, OpLoad, node.Type, []*Value{off}, 0, "")
	case ir.OpFieldValueWrite:
		base, val := b.arg(node.Args[0]), b.arg(node.Args[1])
		off := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{base}, node.AuxInt, "")
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off, val}, 0, "")
		return val

	case ir.OpIndexLocalRead:
		index := b.arg(node.Args[0])
		addr := b.localAddr(int(node.AuxInt))
		elemSize := b.reg.SizeOf(b.reg.ElemType(b.irf.Locals[int(node.AuxInt)].Type))
		off := b.scaledOffset(addr, index, elemSize)
		return b.f.NewValue(b.cur, OpLoad, node.Type, []*Value{off}, 0, "")
	case ir.OpIndexLocalWrite:
		index, val := b.arg(node.Args[0]), b.arg(node.Args[1])
		addr := b.localAddr(int(node.AuxInt))
		elemSize := b.reg.SizeOf(b.reg.ElemType(b.irf.Locals[int(node.AuxInt)].Type))
		off := b.scaledOffset(addr, index, elemSize)
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off, val}, 0, "")
		return val
	case ir.OpIndexValueRead:
		base, index := b.arg(node.Args[0]), b.arg(node.Args[1])
		off := b.scaledOffset(base, index, node.AuxInt)
		return b.f.NewValue(b.cur, OpLoad, node.Type, []*Value{off}, 0, "")
	case ir.OpIndexValueWrite:
		base, index, val := b.arg(node.Args[0]), b.arg(node.Args[1]), b.arg(node.Args[2])
		off := b.scaledOffset(base, index, node.AuxInt)
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off, val}, 0, "")
		return val

	case ir.OpAddrIndexLocal:
		index := b.arg(node.Args[0])
		addr := b.localAddr(int(node.AuxInt))
		return b.scaledOffset(addr, index, node.AuxInt2)
	case ir.OpAddrIndexValue:
		base, index := b.arg(node.Args[0]), b.arg(node.Args[1])
		return b.scaledOffset(base, index, node.AuxInt)

	case ir.OpSliceLocal:
		ptr, length := b.arg(node.Args[0]), b.arg(node.Args[1])
		sv := b.f.NewValue(b.cur, OpSliceMake, node.Type, []*Value{ptr, length}, 0, "")
		b.storeSliceToLocal(int(node.AuxInt), sv)
		return sv
	case ir.OpSliceValue:
		ptr, length := b.arg(node.Args[0]), b.arg(node.Args[1])
		return b.f.NewValue(b.cur, OpSliceMake, node.Type, []*Value{ptr, length}, 0, "")
	case ir.OpSlicePtr:
		s := b.arg(node.Args[0])
		return b.f.NewValue(b.cur, OpSlicePtr, types.I64IDX, []*Value{s}, 0, "")
	case ir.OpSliceLen:
		s := b.arg(node.Args[0])
		return b.f.NewValue(b.cur, OpSliceLen, types.I64IDX, []*Value{s}, 0, "")

	case ir.OpSelect:
		cond, then, els := b.arg(node.Args[0]), b.arg(node.Args[1]), b.arg(node.Args[2])
		return b.f.NewValue(b.cur, OpCondSelect, node.Type, []*Value{cond, then, els}, 0, "")

	case ir.OpConvert:
		return b.convertConversion(node)

	case ir.OpRet:
		var ctrl *Value
		if len(node.Args) == 1 {
			ctrl = b.arg(node.Args[0])
		}
		b.cur.Control = ctrl
		return ctrl
	case ir.OpJump:
		return nil
	case ir.OpBranch:
		cond := b.arg(node.Args[0])
		b.cur.Control = cond
		return nil
	}
	return nil
}

// scaledOffset computes base + index*size as add_ptr(base, index*size);
// index is dynamic, so a compile-time off_ptr cannot express it.
func (b *builder) scaledOffset(base, index *Value, size int64) *Value {
	sizeConst := b.f.NewValue(b.cur, OpConstInt, types.I64IDX, nil, size, "")
	scaled := b.f.NewValue(b.cur, OpMul, types.I64IDX, []*Value{index, sizeConst}, 0, "")
	return b.f.NewValue(b.cur, OpAddPtr, types.INVALID, []*Value{base, scaled}, 0, "")
}

// convertLoadLocal implements spec §4.5.3's slice-decomposition rule and
// §4.5.4's vars/fwd_ref rule for scalars, falling back to memory for any
// other aggregate type (struct, array-by-value) per the "memory-backed
// variables" note in §4.5.4.
func (b *builder) convertLoadLocal(node *ir.Node) *Value {
	local := int(node.AuxInt)
	l := b.irf.Locals[local]
	if b.isSlicey(l.Type) {
		addr := b.localAddr(local)
		ptr := b.f.NewValue(b.cur, OpLoad, types.I64IDX, []*Value{addr}, 0, "")
		off8 := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{addr}, 8, "")
		length := b.f.NewValue(b.cur, OpLoad, types.I64IDX, []*Value{off8}, 0, "")
		return b.f.NewValue(b.cur, OpSliceMake, node.Type, []*Value{ptr, length}, 0, "")
	}
	mt := b.reg.Materialize(l.Type)
	if b.reg.IsStruct(mt) || b.reg.IsArray(mt) {
		return b.localAddr(local)
	}
	return b.variable(local, node.Type)
}

// convertStoreLocal implements the ordering rule of spec §4.5.3 (slice_len
// before slice_ptr) and the vars+memory dual-write of §4.5.4.
func (b *builder) convertStoreLocal(node *ir.Node) *Value {
	local := int(node.AuxInt)
	l := b.irf.Locals[local]
	val := b.arg(node.Args[0])
	addr := b.localAddr(local)

	if b.isSlicey(l.Type) {
		length := b.f.NewValue(b.cur, OpSliceLen, types.I64IDX, []*Value{val}, 0, "")
		ptr := b.f.NewValue(b.cur, OpSlicePtr, types.I64IDX, []*Value{val}, 0, "")
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, ptr}, 0, "")
		off8 := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{addr}, 8, "")
		b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off8, length}, 0, "")
		return val
	}
	mt := b.reg.Materialize(l.Type)
	if b.reg.IsStruct(mt) {
		b.f.NewValue(b.cur, OpMove, types.MEM, []*Value{addr, val}, l.Size, "")
		return val
	}
	b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, val}, 0, "")
	b.defineLocal(local, val)
	return val
}

func (b *builder) storeSliceToLocal(local int, sv *Value) {
	addr := b.localAddr(local)
	ptr := b.f.NewValue(b.cur, OpSlicePtr, types.I64IDX, []*Value{sv}, 0, "")
	length := b.f.NewValue(b.cur, OpSliceLen, types.I64IDX, []*Value{sv}, 0, "")
	b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{addr, ptr}, 0, "")
	off8 := b.f.NewValue(b.cur, OpOffPtr, types.INVALID, []*Value{addr}, 8, "")
	b.f.NewValue(b.cur, OpStore, types.MEM, []*Value{off8, length}, 0, "")
}

// convertLoadGlobal implements the "globals are never held in SSA
// registers as aggregates" rule of spec §4.5.3: a struct wider than 8
// bytes yields just its address.
func (b *builder) convertLoadGlobal(node *ir.Node) *Value {
	mt := b.reg.Materialize(node.Type)
	addr := b.f.NewValue(b.cur, OpGlobalAddr, types.INVALID, nil, 0, node.Aux)
	if b.reg.IsStruct(mt) && b.reg.SizeOf(mt) > 8 {
		return addr
	}
	return b.f.NewValue(b.cur, OpLoad, node.Type, []*Value{addr}, 0, "")
}

func binCompare(op ir.BinOp) (Op, bool) {
	switch op {
	case ir.BinEq:
		return OpEq, true
	case ir.BinNe:
		return OpNe, true
	case ir.BinLt:
		return OpLt, true
	case ir.BinLe:
		return OpLe, true
	case ir.BinGt:
		return OpGt, true
	case ir.BinGe:
		return OpGe, true
	}
	return 0, false
}

var binOpTable = map[ir.BinOp]Op{
	ir.BinAdd:    OpAdd,
	ir.BinSub:    OpSub,
	ir.BinMul:    OpMul,
	ir.BinDiv:    OpDiv,
	ir.BinMod:    OpMod,
	ir.BinBitAnd: OpBitAnd,
	ir.BinBitOr:  OpBitOr,
	ir.BinBitXor: OpBitXor,
	ir.BinShl:    OpShl,
	ir.BinShr:    OpShr,
	ir.BinAddPtr: OpAddPtr,
	ir.BinSubPtr: OpSubPtr,
}

// convertBinary implements spec §4.5.3's extension-before-comparison rule:
// the narrower integer operand is sign/zero-extended to the wider width
// before the comparison is emitted.
func (b *builder) convertBinary(node *ir.Node) *Value {
	op := ir.BinOp(node.AuxInt)
	left, right := b.arg(node.Args[0]), b.arg(node.Args[1])

	if ssaOp, ok := binCompare(op); ok {
		left, right = b.matchWidths(left, right)
		return b.f.NewValue(b.cur, ssaOp, types.BOOL, []*Value{left, right}, 0, "")
	}
	if ssaOp, ok := binOpTable[op]; ok {
		return b.f.NewValue(b.cur, ssaOp, node.Type, []*Value{left, right}, 0, "")
	}
	return b.f.NewValue(b.cur, OpAdd, node.Type, []*Value{left, right}, 0, "")
}

func (b *builder) convertUnary(node *ir.Node) *Value {
	operand := b.arg(node.Args[0])
	switch ir.UnOp(node.AuxInt) {
	case ir.UnNeg:
		return b.f.NewValue(b.cur, OpNeg, node.Type, []*Value{operand}, 0, "")
	case ir.UnNot, ir.UnBitNot:
		return b.f.NewValue(b.cur, OpNot, node.Type, []*Value{operand}, 0, "")
	}
	return operand
}

func basicKindOf(reg *types.Registry, idx types.Index) (types.BasicKind, bool) {
	t := reg.Get(idx)
	if t.Kind != types.KindBasic {
		return types.Invalid, false
	}
	return t.Basic, true
}

func widthOf(k types.BasicKind) int {
	switch k {
	case types.I8, types.U8:
		return 8
	case types.I16, types.U16:
		return 16
	case types.I32, types.U32:
		return 32
	default:
		return 64
	}
}

// matchWidths extends the narrower integer operand up to the wider
// width, choosing sign- or zero-extension from its own signedness.
func (b *builder) matchWidths(left, right *Value) (*Value, *Value) {
	lk, lok := basicKindOf(b.reg, left.Type)
	rk, rok := basicKindOf(b.reg, right.Type)
	if !lok || !rok || !lk.IsInteger() || !rk.IsInteger() {
		return left, right
	}
	lw, rw := widthOf(lk), widthOf(rk)
	if lw == rw {
		return left, right
	}
	if lw < rw {
		return b.extend(left, lk.IsSigned(), lw, right.Type), right
	}
	return left, b.extend(right, rk.IsSigned(), rw, left.Type)
}

// signExtOp and zeroExtOp pick the extension op from the operand's
// actual source width (spec §4.5's 3x3xsignedness extension table);
// truncOp picks the truncation op from the destination width. Every
// extension op widens to the 64-bit register a value is carried in.
func signExtOp(srcWidth int) Op {
	switch srcWidth {
	case 8:
		return OpSignExt8to64
	case 16:
		return OpSignExt16to64
	default:
		return OpSignExt32to64
	}
}

func zeroExtOp(srcWidth int) Op {
	switch srcWidth {
	case 8:
		return OpZeroExt8to64
	case 16:
		return OpZeroExt16to64
	default:
		return OpZeroExt32to64
	}
}

func truncOp(dstWidth int) Op {
	switch dstWidth {
	case 8:
		return OpTrunc64to8
	case 16:
		return OpTrunc64to16
	default:
		return OpTrunc64to32
	}
}

func (b *builder) extend(v *Value, signed bool, srcWidth int, target types.Index) *Value {
	var op Op
	if signed {
		op = signExtOp(srcWidth)
	} else {
		op = zeroExtOp(srcWidth)
	}
	return b.f.NewValue(b.cur, op, target, []*Value{v}, 0, "")
}

func (b *builder) convertConversion(node *ir.Node) *Value {
	operand := b.arg(node.Args[0])
	srcK, srcOk := basicKindOf(b.reg, operand.Type)
	dstK, dstOk := basicKindOf(b.reg, node.Type)
	if !srcOk || !dstOk || !srcK.IsInteger() || !dstK.IsInteger() {
		return b.f.NewValue(b.cur, OpCopy, node.Type, []*Value{operand}, 0, "")
	}
	sw, dw := widthOf(srcK), widthOf(dstK)
	switch {
	case sw == dw:
		return b.f.NewValue(b.cur, OpCopy, node.Type, []*Value{operand}, 0, "")
	case sw < dw:
		if srcK.IsSigned() {
			return b.f.NewValue(b.cur, signExtOp(sw), node.Type, []*Value{operand}, 0, "")
		}
		return b.f.NewValue(b.cur, zeroExtOp(sw), node.Type, []*Value{operand}, 0, "")
	default:
		return b.f.NewValue(b.cur, truncOp(dw), node.Type, []*Value{operand}, 0, "")
	}
}
