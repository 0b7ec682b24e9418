// Package ssa implements the IR-to-SSA conversion pass (spec §3.5, §4.5):
// Go's "simple phi" algorithm with a forward-reference work list, run over
// the basic-block IR the lower package produces.
package ssa

import "github.com/lumen-lang/lumen/internal/types"

// Op tags an SSA Value's variant (spec §3.5).
type Op uint8

const (
	OpInvalid Op = iota

	OpConstInt
	OpConstFloat
	OpConstBool
	OpConstNil
	OpConstString // AuxInt = string table index

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAddPtr // pointer + scaled int
	OpSubPtr // pointer - scaled int

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr

	OpNeg
	OpNot // bitwise/logical complement, per operand type

	OpSignExt8to64
	OpSignExt16to64
	OpSignExt32to64
	OpZeroExt8to64
	OpZeroExt16to64
	OpZeroExt32to64
	OpTrunc64to8
	OpTrunc64to16
	OpTrunc64to32

	OpLoad  // Args = [ptr]
	OpStore // Args = [ptr, value]
	OpMove  // Args = [dst, src], AuxInt = byte count

	OpLocalAddr  // AuxInt = local index
	OpGlobalAddr // Aux = global name
	OpOffPtr     // Args = [ptr], AuxInt = byte offset
	OpFuncAddr   // Aux = function name

	OpSliceMake // Args = [ptr, len]
	OpSlicePtr  // Args = [slice]
	OpSliceLen  // Args = [slice]

	OpStringMake   // Args = [ptr, len]
	OpStringConcat // Args = [left, right]

	OpStaticCall   // Aux = callee name, Args = arguments
	OpClosureCall  // Args[0] = callee value, Args[1:] = arguments
	OpArg          // AuxInt = physical register index
	OpCondSelect   // Args = [cond, then, else]
	OpConvert      // Type = target type

	OpFwdRef // AuxInt = local index; resolved during phi insertion
	OpPhi    // Args in predecessor order
	OpCopy   // Args = [source]
)

// Value is one SSA instruction (spec §3.5): a unique, monotonically
// assigned ID within its function, typed, living in exactly one block.
type Value struct {
	ID     int32
	Op     Op
	Type   types.Index
	Block  *Block
	Args   []*Value
	AuxInt int64
	Aux    string
}

// BlockKind classifies a Block by its terminator shape (spec §3.5).
type BlockKind uint8

const (
	BlockPlain BlockKind = iota
	BlockIf
	BlockRet
	BlockExit
)

// Block groups Values under one control-flow node. `if` blocks carry
// exactly two successors and a required control value; `ret` has zero
// successors and an optional control value; `plain` has exactly one
// successor and no control value.
type Block struct {
	ID      int32
	Kind    BlockKind
	Label   string
	Values  []*Value
	Preds   []*Block
	Succs   []*Block
	Control *Value
}

// Func is one function converted to SSA form.
type Func struct {
	Name       string
	Params     []types.Index
	ReturnType types.Index
	Strings    [][]byte

	Blocks []*Block

	nextValueID int32
	nextBlockID int32
}

func NewFunc(name string) *Func {
	return &Func{Name: name}
}

func (f *Func) NewBlock(kind BlockKind, label string) *Block {
	b := &Block{ID: f.nextBlockID, Kind: kind, Label: label}
	f.nextBlockID++
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewValue appends v to block b, assigning it the next monotonic ID.
func (f *Func) NewValue(b *Block, op Op, typ types.Index, args []*Value, auxInt int64, aux string) *Value {
	v := &Value{ID: f.nextValueID, Op: op, Type: typ, Block: b, Args: args, AuxInt: auxInt, Aux: aux}
	f.nextValueID++
	b.Values = append(b.Values, v)
	return v
}

func linkSSA(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// NumValues reports the number of Values ever allocated (including those
// later rewritten in place), for sizing auxiliary per-value tables.
func (f *Func) NumValues() int { return int(f.nextValueID) }
