// Virtual register table.
// The table is the only owner of register metadata: type, the instructions
// that write the register and the instructions that read it. Everything
// else refers to registers by VReg and looks the metadata up here.

package machine

import (
	"github.com/raymyers/ralph-ra/pkg/arena"
	"github.com/raymyers/ralph-ra/pkg/types"
)

// RegInfo is the metadata of one virtual register
type RegInfo struct {
	VReg    VReg
	Ty      types.Type
	DefList []InstrID // instructions writing the register
	UseList []InstrID // instructions reading the register
}

// AddDef records id as a definition site
func (r *RegInfo) AddDef(id InstrID) {
	r.DefList = appendUnique(r.DefList, id)
}

// AddUse records id as a use site
func (r *RegInfo) AddUse(id InstrID) {
	r.UseList = appendUnique(r.UseList, id)
}

// RemoveUse drops id from the use list
func (r *RegInfo) RemoveUse(id InstrID) {
	r.UseList = removeID(r.UseList, id)
}

// RemoveDef drops id from the def list
func (r *RegInfo) RemoveDef(id InstrID) {
	r.DefList = removeID(r.DefList, id)
}

func appendUnique(list []InstrID, id InstrID) []InstrID {
	for _, x := range list {
		if x == id {
			return list
		}
	}
	return append(list, id)
}

func removeID(list []InstrID, id InstrID) []InstrID {
	for k, x := range list {
		if x == id {
			return append(list[:k], list[k+1:]...)
		}
	}
	return list
}

// RegTable generates virtual registers and owns their metadata
type RegTable struct {
	regs []*RegInfo // index = VReg; slot 0 unused
}

// NewRegTable creates an empty table. Register numbers start at 1.
func NewRegTable() *RegTable {
	return &RegTable{regs: []*RegInfo{nil}}
}

// Gen creates a fresh virtual register of type ty
func (t *RegTable) Gen(ty types.Type) VReg {
	v := VReg(len(t.regs))
	t.regs = append(t.regs, &RegInfo{VReg: v, Ty: ty})
	return v
}

// GenN creates n fresh registers of type ty
func (t *RegTable) GenN(ty types.Type, n int) []VReg {
	regs := make([]VReg, n)
	for i := range regs {
		regs[i] = t.Gen(ty)
	}
	return regs
}

// Info returns the metadata for v
func (t *RegTable) Info(v VReg) (*RegInfo, error) {
	if v == 0 || int(v) >= len(t.regs) {
		return nil, arena.Missing("vreg", int(v))
	}
	return t.regs[v], nil
}

// MustInfo is Info for registers known to exist by construction
func (t *RegTable) MustInfo(v VReg) *RegInfo {
	info, err := t.Info(v)
	if err != nil {
		panic(err)
	}
	return info
}

// Len returns the number of registers generated so far
func (t *RegTable) Len() int {
	return len(t.regs) - 1
}

// NextVReg returns the register Gen will return next
func (t *RegTable) NextVReg() VReg {
	return VReg(len(t.regs))
}

// All returns the metadata of every register in numbering order
func (t *RegTable) All() []*RegInfo {
	return append([]*RegInfo(nil), t.regs[1:]...)
}
