package ir

import (
	"strconv"

	"github.com/lumen-lang/lumen/internal/types"
)

// Local describes one stack slot: parameters precede non-parameters, and
// every local carries a byte-precise size for stack layout (spec §3.4).
type Local struct {
	Name      string
	Type      types.Index
	Size      int64
	IsParam   bool
	IsMutable bool
}

// Block is a maximal node sequence ending in exactly one terminator.
// Block 0 is always the entry block.
type Block struct {
	Label        string
	Nodes        []NodeIndex
	Predecessors []BlockIndex
	Successors   []BlockIndex
}

// Terminator returns the index of b's terminating node, which must be the
// last node added to the block.
func (b *Block) Terminator(f *Func) NodeIndex {
	if len(b.Nodes) == 0 {
		return NullNode
	}
	return b.Nodes[len(b.Nodes)-1]
}

func (b *Block) IsTerminated(f *Func) bool {
	if len(b.Nodes) == 0 {
		return false
	}
	op := f.Node(b.Nodes[len(b.Nodes)-1]).Op
	return op == OpRet || op == OpJump || op == OpBranch
}

// Func is one lowered function: a flat node pool partitioned into
// blocks, an ordered local list, and a per-function string literal
// table.
type Func struct {
	Name       string
	Params     []types.Index
	ReturnType types.Index

	Locals  []Local
	Strings [][]byte

	nodes  []Node
	Blocks []*Block
}

func NewFunc(name string) *Func {
	return &Func{Name: name}
}

// Node returns the node at idx.
func (f *Func) Node(idx NodeIndex) *Node {
	return &f.nodes[idx]
}

// NumNodes reports the size of the flat node pool.
func (f *Func) NumNodes() int { return len(f.nodes) }

// AddLocal appends a local and returns its index.
func (f *Func) AddLocal(l Local) int {
	f.Locals = append(f.Locals, l)
	return len(f.Locals) - 1
}

// AddString interns raw bytes into the string literal table (no
// cross-function dedup is required, spec §5) and returns its index.
func (f *Func) AddString(b []byte) int64 {
	f.Strings = append(f.Strings, b)
	return int64(len(f.Strings) - 1)
}

// NewBlock appends a new, empty block and returns its index. Node
// indices assigned while populating this block remain stable; block
// ordering between lowering and SSA construction must not change (spec
// §3.4).
func (f *Func) NewBlock(label string) BlockIndex {
	idx := BlockIndex(len(f.Blocks))
	f.Blocks = append(f.Blocks, &Block{Label: label})
	return idx
}

func (f *Func) Block(idx BlockIndex) *Block { return f.Blocks[idx] }

// Emit appends n to the flat pool and records it in block bi, in
// emission order (monotonic node indices, spec §5).
func (f *Func) Emit(bi BlockIndex, n Node) NodeIndex {
	idx := NodeIndex(len(f.nodes))
	f.nodes = append(f.nodes, n)
	f.Blocks[bi].Nodes = append(f.Blocks[bi].Nodes, idx)
	return idx
}

// Link records a predecessor/successor edge from -> to.
func (f *Func) Link(from, to BlockIndex) {
	f.Blocks[from].Successors = append(f.Blocks[from].Successors, to)
	f.Blocks[to].Predecessors = append(f.Blocks[to].Predecessors, from)
}

// Verify checks the IR invariants of spec §3.4: every block ends in
// exactly one terminator, branch has exactly two successors, jump has
// one, ret has none.
func (f *Func) Verify() []string {
	var problems []string
	for bi, b := range f.Blocks {
		if len(b.Nodes) == 0 {
			problems = append(problems, blockMsg(bi, "has no nodes (missing terminator)"))
			continue
		}
		term := f.Node(b.Nodes[len(b.Nodes)-1])
		switch term.Op {
		case OpRet:
			if len(term.Targets) != 0 {
				problems = append(problems, blockMsg(bi, "ret must have no successors"))
			}
		case OpJump:
			if len(term.Targets) != 1 {
				problems = append(problems, blockMsg(bi, "jump must have exactly one successor"))
			}
		case OpBranch:
			if len(term.Targets) != 2 {
				problems = append(problems, blockMsg(bi, "branch must have exactly two successors"))
			}
		default:
			problems = append(problems, blockMsg(bi, "does not end in ret/jump/branch"))
		}
		for _, nidx := range b.Nodes[:len(b.Nodes)-1] {
			switch f.Node(nidx).Op {
			case OpRet, OpJump, OpBranch:
				problems = append(problems, blockMsg(bi, "terminator appears before the end of the block"))
			}
		}
	}
	return problems
}

func blockMsg(bi int, msg string) string {
	return "block " + strconv.Itoa(bi) + ": " + msg
}
