package machine

import (
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/arena"
	"github.com/raymyers/ralph-ra/pkg/frame"
)

// Function is a machine function: blocks in layout order, an instruction
// arena, its virtual register table and its stack slots.
type Function struct {
	Name   string
	Layout []BlockID
	Regs   *RegTable
	Frame  *frame.LocalManager

	blocks *arena.Arena[*BasicBlock]
	instrs *arena.Arena[*Instr]
	linked map[InstrID]bool
}

// NewFunction creates an empty machine function
func NewFunction(name string) *Function {
	return &Function{
		Name:   name,
		Regs:   NewRegTable(),
		Frame:  frame.NewLocalManager(),
		blocks: arena.New[*BasicBlock]("block"),
		instrs: arena.New[*Instr]("instruction"),
		linked: make(map[InstrID]bool),
	}
}

// AddBlock appends a new empty block to the layout
func (f *Function) AddBlock(name string) BlockID {
	b := &BasicBlock{Name: name}
	id := BlockID(f.blocks.Alloc(b))
	b.ID = id
	f.Layout = append(f.Layout, id)
	return id
}

// Block dereferences a block handle
func (f *Function) Block(id BlockID) (*BasicBlock, error) {
	return f.blocks.Get(int(id))
}

// Instr dereferences an instruction handle
func (f *Function) Instr(id InstrID) (*Instr, error) {
	return f.instrs.Get(int(id))
}

// MustInstr is Instr for handles known to be live by construction
func (f *Function) MustInstr(id InstrID) *Instr {
	return f.instrs.MustGet(int(id))
}

// Blocks returns the blocks in layout order
func (f *Function) Blocks() []*BasicBlock {
	bbs := make([]*BasicBlock, 0, len(f.Layout))
	for _, id := range f.Layout {
		bbs = append(bbs, f.blocks.MustGet(int(id)))
	}
	return bbs
}

// Alloc stores an instruction in the arena without placing it in a block
// and without touching the register table. Use InsertBefore/InsertAfter
// (or an editor that keeps liveness in sync) to link it.
func (f *Function) Alloc(instr *Instr) InstrID {
	id := InstrID(f.instrs.Alloc(instr))
	instr.ID = id
	return id
}

// IsLinked reports whether id has been placed in a block
func (f *Function) IsLinked(id InstrID) bool {
	return f.linked[id]
}

// Append allocates instr, links it at the end of block b and records its
// defs and register reads in the register table
func (f *Function) Append(b BlockID, instr *Instr) (InstrID, error) {
	bb, err := f.Block(b)
	if err != nil {
		return 0, err
	}
	for _, v := range append(append([]VReg(nil), instr.Defs...), instr.UsedRegs()...) {
		if _, err := f.Regs.Info(v); err != nil {
			return 0, err
		}
	}
	instr.Parent = b
	id := f.Alloc(instr)
	bb.Instrs = append(bb.Instrs, id)
	f.linked[id] = true
	for _, v := range instr.Defs {
		f.Regs.MustInfo(v).AddDef(id)
	}
	for _, v := range instr.UsedRegs() {
		f.Regs.MustInfo(v).AddUse(id)
	}
	return id, nil
}

// InsertBefore links the unlinked instruction id immediately before anchor
func (f *Function) InsertBefore(anchor, id InstrID) error {
	return f.insert(anchor, id, 0)
}

// InsertAfter links the unlinked instruction id immediately after anchor
func (f *Function) InsertAfter(anchor, id InstrID) error {
	return f.insert(anchor, id, 1)
}

func (f *Function) insert(anchor, id InstrID, delta int) error {
	a, err := f.Instr(anchor)
	if err != nil {
		return err
	}
	instr, err := f.Instr(id)
	if err != nil {
		return err
	}
	if f.linked[id] {
		return fmt.Errorf("instruction %d is already linked", id)
	}
	bb, err := f.Block(a.Parent)
	if err != nil {
		return err
	}
	pos := indexOf(bb.Instrs, anchor)
	if pos < 0 {
		return fmt.Errorf("instruction %d is not in block %s", anchor, bb.Name)
	}
	pos += delta
	bb.Instrs = append(bb.Instrs, 0)
	copy(bb.Instrs[pos+1:], bb.Instrs[pos:])
	bb.Instrs[pos] = id
	instr.Parent = a.Parent
	f.linked[id] = true
	return nil
}

// Position returns the block and index of a linked instruction
func (f *Function) Position(id InstrID) (BlockID, int, error) {
	instr, err := f.Instr(id)
	if err != nil {
		return 0, 0, err
	}
	bb, err := f.Block(instr.Parent)
	if err != nil {
		return 0, 0, err
	}
	pos := indexOf(bb.Instrs, id)
	if pos < 0 {
		return 0, 0, arena.Missing("linked instruction", int(id))
	}
	return bb.ID, pos, nil
}

// Successors returns the blocks named as branch targets in block b
func (f *Function) Successors(b BlockID) []BlockID {
	bb, err := f.Block(b)
	if err != nil {
		return nil
	}
	var succs []BlockID
	seen := make(map[BlockID]bool)
	for _, id := range bb.Instrs {
		for _, t := range f.MustInstr(id).Labels() {
			if !seen[t] {
				seen[t] = true
				succs = append(succs, t)
			}
		}
	}
	return succs
}

func indexOf(list []InstrID, id InstrID) int {
	for k, x := range list {
		if x == id {
			return k
		}
	}
	return -1
}
