// Package ir implements the linear intermediate representation the
// lowerer emits (spec §3.4): a flat, per-function node pool organized
// into basic blocks with explicit terminators, plus locals and a string
// literal table.
package ir

import "github.com/lumen-lang/lumen/internal/types"

// NodeIndex addresses a Node within a Func's flat pool.
type NodeIndex int32

const NullNode NodeIndex = -1

// BlockIndex addresses a Block within a Func.
type BlockIndex int32

// Op tags an IR node's variant.
type Op uint8

const (
	OpNop Op = iota

	OpConstInt
	OpConstFloat
	OpConstBool
	OpConstNull
	OpConstString // AuxInt = string table index

	OpLoadLocal  // AuxInt = local index
	OpStoreLocal // AuxInt = local index, Args[0] = value

	OpLoadGlobal  // Aux = global name
	OpStoreGlobal // Aux = global name, Args[0] = value

	OpBinary // AuxInt = BinOp, Args = [left, right]
	OpUnary  // AuxInt = UnOp, Args = [operand]

	OpStrConcat   // Args = [left, right]
	OpStringMake  // "string_header": Args = [ptr, len]

	OpCallDirect   // Aux = callee name, Args = call arguments
	OpCallIndirect // Args[0] = callee value, Args[1:] = call arguments

	OpAddrLocal  // AuxInt = local index
	OpAddrGlobal // Aux = global name
	OpAddrIndex  // Args = [baseAddr, index], AuxInt = element size
	OpAddrOffset // Args = [baseAddr], AuxInt = byte offset
	OpFuncAddr   // Aux = function name

	OpPtrLoad  // Args = [ptr]
	OpPtrStore // Args = [ptr, value]

	OpFieldLocalRead   // AuxInt = local index, AuxInt2 = byte offset
	OpFieldLocalWrite  // AuxInt = local index, AuxInt2 = byte offset, Args = [value]
	OpFieldValueRead   // Args = [baseAddr], AuxInt = byte offset
	OpFieldValueWrite  // Args = [baseAddr, value], AuxInt = byte offset

	OpIndexLocalRead  // AuxInt = local index, Args = [index]
	OpIndexLocalWrite // AuxInt = local index, Args = [index, value]
	OpIndexValueRead  // Args = [baseAddr, index], AuxInt = element size
	OpIndexValueWrite // Args = [baseAddr, index, value], AuxInt = element size

	OpAddrIndexLocal // AuxInt = local index, Args = [index], AuxInt2 = element size
	OpAddrIndexValue // Args = [baseAddr, index], AuxInt = element size

	OpSliceLocal // "slice_local": AuxInt = local index, Args = [ptr, len]
	OpSliceValue // "slice_value": Args = [ptr, len]
	OpSlicePtr   // Args = [slice]
	OpSliceLen   // Args = [slice]

	OpSelect // conditional select: Args = [cond, then, else]

	OpConvert // Type = target type, Args = [operand]

	OpRet    // Args = [value]? (0 or 1 arg)
	OpJump   // Targets = [target]
	OpBranch // Args = [cond], Targets = [then, else]
)

// BinOp enumerates IR-level binary operators (post-desugaring; `and`/`or`
// never reach the IR as OpBinary — the lowerer expands them into explicit
// branches over a synthetic temp local instead, one stage earlier than
// where the SSA builder would otherwise split blocks around them; see
// DESIGN.md's "internal/lower" entry).
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinAddPtr // pointer + scaled int
	BinSubPtr // pointer - scaled int
)

// UnOp enumerates IR-level unary operators.
type UnOp uint8

const (
	UnNeg UnOp = iota
	UnNot
	UnBitNot
)

// Node is one entry in a Func's flat pool.
type Node struct {
	Op      Op
	Type    types.Index
	Args    []NodeIndex
	AuxInt  int64
	AuxInt2 int64
	Aux     string
	Targets []BlockIndex // jump/branch successors, in order
}
