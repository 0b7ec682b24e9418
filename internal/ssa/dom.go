package ssa

// Dominators computes each block's immediate dominator using the
// standard iterative data-flow algorithm (Cooper, Harvey, Kennedy 2001).
// The teacher's own dominator pass (ssa/sparsetreemap.go) builds a sparse
// tree over postorder numbers to support fast ancestor-range queries for
// register allocation; this compiler only ever needs a yes/no dominance
// check during verification (spec §3.5's "every value argument was
// created in a block that dominates the using block"), so the simpler
// iterative fixed-point form is used instead and the sparse-tree
// structure was not carried over.
func Dominators(f *Func) map[*Block]*Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	order := postorder(f)
	idom := make(map[*Block]*Block, len(order))
	entry := f.Blocks[0]
	idom[entry] = entry

	rpo := make([]*Block, len(order))
	for i, b := range order {
		rpo[len(order)-1-i] = b
	}
	index := make(map[*Block]int, len(rpo))
	for i, b := range rpo {
		index[b] = i
	}

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			var newIdom *Block
			for _, p := range b.Preds {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, index)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(a, b *Block, idom map[*Block]*Block, index map[*Block]int) *Block {
	for a != b {
		for index[a] > index[b] {
			a = idom[a]
		}
		for index[b] > index[a] {
			b = idom[b]
		}
	}
	return a
}

func postorder(f *Func) []*Block {
	visited := make(map[*Block]bool, len(f.Blocks))
	var order []*Block
	var visit func(b *Block)
	visit = func(b *Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		order = append(order, b)
	}
	visit(f.Blocks[0])
	return order
}

// Dominates reports whether a dominates b (reflexively).
func Dominates(idom map[*Block]*Block, a, b *Block) bool {
	for {
		if a == b {
			return true
		}
		parent, ok := idom[b]
		if !ok || parent == b {
			return a == b
		}
		b = parent
	}
}
