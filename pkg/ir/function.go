package ir

import (
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/arena"
	"github.com/raymyers/ralph-ra/pkg/types"
)

// Function owns its blocks and instructions. Blocks are kept in layout
// order; the first block is the entry.
type Function struct {
	Name   string
	Params []types.Type
	RetTy  types.Type
	Layout []BlockID

	blocks *arena.Arena[*BasicBlock]
	insts  *arena.Arena[*Instruction]
}

// NewFunction creates an empty function
func NewFunction(name string, params []types.Type, ret types.Type) *Function {
	return &Function{
		Name:   name,
		Params: params,
		RetTy:  ret,
		blocks: arena.New[*BasicBlock]("block"),
		insts:  arena.New[*Instruction]("instruction"),
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

// Entry returns the entry block, or 0 for an empty function
func (f *Function) Entry() BlockID {
	if len(f.Layout) == 0 {
		return 0
	}
	return f.Layout[0]
}

// Block dereferences a block handle
func (f *Function) Block(id BlockID) (*BasicBlock, error) {
	return f.blocks.Get(int(id))
}

// Inst dereferences an instruction handle
func (f *Function) Inst(id InstID) (*Instruction, error) {
	return f.insts.Get(int(id))
}

// MustInst is Inst for handles known to be live by construction
func (f *Function) MustInst(id InstID) *Instruction {
	return f.insts.MustGet(int(id))
}

// HasInst reports whether id refers to a live instruction
func (f *Function) HasInst(id InstID) bool {
	return f.insts.Contains(int(id))
}

// NumInsts returns the number of live instructions
func (f *Function) NumInsts() int {
	return f.insts.Len()
}

// Blocks returns the blocks in layout order
func (f *Function) Blocks() []*BasicBlock {
	bbs := make([]*BasicBlock, 0, len(f.Layout))
	for _, id := range f.Layout {
		bbs = append(bbs, f.blocks.MustGet(int(id)))
	}
	return bbs
}

// Append adds inst at the end of block b and records it as a user of each
// instruction operand. It returns the new handle.
func (f *Function) Append(b BlockID, inst *Instruction) (InstID, error) {
	bb, err := f.Block(b)
	if err != nil {
		return 0, err
	}
	for _, op := range inst.Operands {
		if v, ok := op.(Inst); ok && !f.HasInst(v.ID) {
			return 0, arena.Missing("instruction", int(v.ID))
		}
	}
	id := InstID(f.insts.Alloc(inst))
	inst.ID = id
	inst.Parent = b
	for _, op := range inst.Operands {
		if v, ok := op.(Inst); ok {
			f.MustInst(v.ID).addUser(id)
		}
	}
	bb.Insts = append(bb.Insts, id)
	return id, nil
}

// RemoveInst unlinks an instruction from its block, drops it from the users
// lists of its operands and tombstones its handle. Handles of all other
// instructions remain valid. Users of the removed instruction are not
// touched; callers rewrite them first.
func (f *Function) RemoveInst(id InstID) error {
	inst, err := f.Inst(id)
	if err != nil {
		return err
	}
	for _, op := range inst.Operands {
		if v, ok := op.(Inst); ok && f.HasInst(v.ID) {
			f.MustInst(v.ID).removeUser(id)
		}
	}
	bb, err := f.Block(inst.Parent)
	if err != nil {
		return err
	}
	for k, x := range bb.Insts {
		if x == id {
			bb.Insts = append(bb.Insts[:k], bb.Insts[k+1:]...)
			break
		}
	}
	return f.insts.Remove(int(id))
}

// ReplaceOperand substitutes every occurrence of from in user's operands
// with to, keeping both users lists exact.
func (f *Function) ReplaceOperand(user InstID, from, to Value) error {
	inst, err := f.Inst(user)
	if err != nil {
		return err
	}
	if v, ok := to.(Inst); ok && !f.HasInst(v.ID) {
		return arena.Missing("instruction", int(v.ID))
	}
	replaced := false
	for k, op := range inst.Operands {
		if op == from {
			inst.Operands[k] = to
			replaced = true
		}
	}
	if !replaced {
		return nil
	}
	if v, ok := from.(Inst); ok && f.HasInst(v.ID) {
		f.MustInst(v.ID).removeUser(user)
	}
	if v, ok := to.(Inst); ok {
		f.MustInst(v.ID).addUser(user)
	}
	return nil
}

// TypeOf returns the type of a value in this function
func (f *Function) TypeOf(v Value) types.Type {
	switch v := v.(type) {
	case Const:
		return v.Ty
	case Param:
		return v.Ty
	case Inst:
		if inst, err := f.Inst(v.ID); err == nil {
			return inst.Ty
		}
	}
	return types.Void
}

// Successors returns the successor blocks named by b's terminator
func (f *Function) Successors(b BlockID) []BlockID {
	bb, err := f.Block(b)
	if err != nil {
		return nil
	}
	term := bb.Terminator()
	if term == 0 {
		return nil
	}
	return append([]BlockID(nil), f.MustInst(term).Targets...)
}

// Predecessors returns, for every block, the blocks branching to it
func (f *Function) Predecessors() map[BlockID][]BlockID {
	preds := make(map[BlockID][]BlockID, len(f.Layout))
	for _, b := range f.Layout {
		for _, s := range f.Successors(b) {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// Verify checks the structural invariants the passes depend on: every
// handle referenced by a block, an operand or a users list is live, and
// users lists agree with operands.
func (f *Function) Verify() error {
	for _, bb := range f.Blocks() {
		for _, id := range bb.Insts {
			inst, err := f.Inst(id)
			if err != nil {
				return fmt.Errorf("block %s: %w", bb.Name, err)
			}
			if inst.Parent != bb.ID {
				return fmt.Errorf("instruction %d: parent %d, found in block %d", id, inst.Parent, bb.ID)
			}
			for _, op := range inst.Operands {
				v, ok := op.(Inst)
				if !ok {
					continue
				}
				def, err := f.Inst(v.ID)
				if err != nil {
					return fmt.Errorf("instruction %d operand: %w", id, err)
				}
				found := false
				for _, u := range def.users {
					if u == id {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("instruction %d uses %%%d but is not among its users", id, v.ID)
				}
			}
			for _, u := range inst.users {
				user, err := f.Inst(u)
				if err != nil {
					return fmt.Errorf("instruction %d users: %w", id, err)
				}
				if !user.uses(Inst{ID: id}) {
					return fmt.Errorf("instruction %d lists %d as user, but it has no such operand", id, u)
				}
			}
		}
	}
	return nil
}
