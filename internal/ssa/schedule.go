package ssa

import "container/heap"

// scorePhi/scoreDefault rank a value for scheduling within its block: phi values
// sort first, everything else keeps its conversion order. Grounded on the
// teacher's ssa/schedule.go ValHeap, whose score table additionally
// orders memory/flags/control operands around register-allocator
// constraints this compiler has no equivalent of (no physical register
// allocation happens in this middle end); only the phi-first rule spec
// §4.5.8 actually requires survives here.
const (
	scorePhi = iota
	scoreDefault
)

type valueHeap struct {
	vals  []*Value
	score []int
}

func (h valueHeap) Len() int { return len(h.vals) }
func (h valueHeap) Less(i, j int) bool {
	if h.score[i] != h.score[j] {
		return h.score[i] < h.score[j]
	}
	return h.vals[i].ID < h.vals[j].ID
}
func (h valueHeap) Swap(i, j int) {
	h.vals[i], h.vals[j] = h.vals[j], h.vals[i]
	h.score[i], h.score[j] = h.score[j], h.score[i]
}
func (h *valueHeap) Push(x any) {
	v := x.(scoredValue)
	h.vals = append(h.vals, v.val)
	h.score = append(h.score, v.score)
}
func (h *valueHeap) Pop() any {
	old := h.vals
	n := len(old)
	v := old[n-1]
	h.vals = old[:n-1]
	s := h.score[n-1]
	h.score = h.score[:n-1]
	return scoredValue{v, s}
}

type scoredValue struct {
	val   *Value
	score int
}

// scheduleFunc orders each block's values with phi first, preserving
// relative order otherwise — the only ordering spec §4.5.8 requires.
func scheduleFunc(f *Func) {
	for _, b := range f.Blocks {
		h := &valueHeap{}
		for _, v := range b.Values {
			s := scoreDefault
			if v.Op == OpPhi {
				s = scorePhi
			}
			heap.Push(h, scoredValue{v, s})
		}
		ordered := make([]*Value, 0, len(b.Values))
		for h.Len() > 0 {
			sv := heap.Pop(h).(scoredValue)
			ordered = append(ordered, sv.val)
		}
		b.Values = ordered
	}
}
