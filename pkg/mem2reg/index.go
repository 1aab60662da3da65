package mem2reg

import "github.com/raymyers/ralph-ra/pkg/ir"

// positionIndex memoizes the position of memory instructions within their
// block. A block is scanned once, the first time any of its instructions
// is queried; only alloca, load and store positions are recorded.
type positionIndex struct {
	pos     map[ir.InstID]int
	scanned map[ir.BlockID]bool
}

func newPositionIndex() *positionIndex {
	return &positionIndex{
		pos:     make(map[ir.InstID]int),
		scanned: make(map[ir.BlockID]bool),
	}
}

func isInteresting(op ir.Opcode) bool {
	return op == ir.Alloca || op == ir.Load || op == ir.Store
}

// get returns the position of id in its block. The pass only removes
// instructions, so positions recorded by one scan keep their relative order
// for the rest of the run.
func (x *positionIndex) get(fn *ir.Function, id ir.InstID) int {
	if p, ok := x.pos[id]; ok {
		return p
	}
	inst := fn.MustInst(id)
	if !x.scanned[inst.Parent] {
		x.scan(fn, inst.Parent)
	}
	return x.pos[id]
}

func (x *positionIndex) scan(fn *ir.Function, b ir.BlockID) {
	x.scanned[b] = true
	bb, err := fn.Block(b)
	if err != nil {
		return
	}
	for i, id := range bb.Insts {
		if isInteresting(fn.MustInst(id).Op) {
			x.pos[id] = i
		}
	}
}
