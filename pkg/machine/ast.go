// Package machine defines the machine-level IR produced by instruction
// selection: target opcodes over virtual registers, organized in basic
// blocks. Unlike the SSA IR, a virtual register may be defined more than
// once (two-address forms redefine their first operand in place).
package machine

import (
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/frame"
	"github.com/raymyers/ralph-ra/pkg/types"
)

// VReg is a virtual register (positive, infinite supply; 0 is invalid)
type VReg uint32

func (v VReg) String() string { return fmt.Sprintf("v%d", uint32(v)) }

// PhysReg is a physical register number; targets assign the names
type PhysReg uint16

// InstrID is a stable handle to a machine instruction
type InstrID int

// BlockID is a stable handle to a machine basic block
type BlockID int

// Opcode identifies a machine instruction. Values below FirstTargetOpcode
// are target-independent pseudo operations; targets number theirs from
// FirstTargetOpcode upwards.
type Opcode uint16

const (
	OpInvalid      Opcode = iota
	OpCopy                // dst = copy src
	OpLoad                // dst = load [frame index]
	OpStore               // store [frame index], src
	OpPhi                 // dst = phi (src, block)...
	OpRet                 // return marker
	OpBr                  // unconditional branch marker
	OpBrCond              // conditional branch marker
	OpAdjStackDown        // call frame setup
	OpAdjStackUp          // call frame teardown

	FirstTargetOpcode Opcode = 64
)

var pseudoNames = map[Opcode]string{
	OpInvalid:      "invalid",
	OpCopy:         "copy",
	OpLoad:         "load",
	OpStore:        "store",
	OpPhi:          "phi",
	OpRet:          "ret.marker",
	OpBr:           "br",
	OpBrCond:       "brcond",
	OpAdjStackDown: "adjstackdown",
	OpAdjStackUp:   "adjstackup",
}

// IsPseudo reports whether o is a target-independent pseudo operation
func (o Opcode) IsPseudo() bool {
	return o < FirstTargetOpcode
}

// PseudoName returns the printed name of a pseudo opcode
func (o Opcode) PseudoName() (string, bool) {
	name, ok := pseudoNames[o]
	return name, ok
}

// ParsePseudo returns the pseudo opcode with the given printed name
func ParsePseudo(name string) (Opcode, bool) {
	for op, n := range pseudoNames {
		if n == name && op != OpInvalid {
			return op, true
		}
	}
	return OpInvalid, false
}

// --- Operands ---

// Operand is an explicit (use-side) operand of a machine instruction
type Operand interface {
	implOperand()
	String() string
}

// Reg reads a virtual register
type Reg struct {
	R VReg
}

// Phys reads a fixed physical register
type Phys struct {
	R PhysReg
}

// Imm is an immediate
type Imm struct {
	Val int64
	Ty  types.Type
}

// FrameIndex addresses a stack slot
type FrameIndex struct {
	Slot frame.FrameIndexInfo
}

// Label names a branch target
type Label struct {
	Block BlockID
}

// Symbol names a global or function
type Symbol struct {
	Name string
}

func (Reg) implOperand()        {}
func (Phys) implOperand()       {}
func (Imm) implOperand()        {}
func (FrameIndex) implOperand() {}
func (Label) implOperand()      {}
func (Symbol) implOperand()     {}

func (r Reg) String() string        { return r.R.String() }
func (p Phys) String() string       { return fmt.Sprintf("p%d", p.R) }
func (i Imm) String() string        { return fmt.Sprintf("$%d", i.Val) }
func (f FrameIndex) String() string { return fmt.Sprintf("[%s]", f.Slot) }
func (l Label) String() string      { return fmt.Sprintf("bb%d", l.Block) }
func (s Symbol) String() string     { return "@" + s.Name }

// --- Instructions ---

// Instr is a machine instruction. Defs are the explicit registers it
// writes; Operands are what it reads.
type Instr struct {
	ID       InstrID
	Opcode   Opcode
	Defs     []VReg
	Operands []Operand
	Parent   BlockID
}

// NewInstr creates an unlinked instruction
func NewInstr(op Opcode, operands []Operand, parent BlockID) *Instr {
	return &Instr{Opcode: op, Operands: operands, Parent: parent}
}

// WithDefs sets the defined registers and returns the instruction
func (i *Instr) WithDefs(defs ...VReg) *Instr {
	i.Defs = defs
	return i
}

// UsedRegs returns the virtual registers read by the instruction, without
// duplicates, in operand order
func (i *Instr) UsedRegs() []VReg {
	var regs []VReg
	seen := make(map[VReg]bool)
	for _, op := range i.Operands {
		if r, ok := op.(Reg); ok && !seen[r.R] {
			seen[r.R] = true
			regs = append(regs, r.R)
		}
	}
	return regs
}

// ReplaceOperandReg rewrites every read of from into a read of to.
// It reports whether anything changed. Defs are not touched.
func (i *Instr) ReplaceOperandReg(from, to VReg) bool {
	changed := false
	for k, op := range i.Operands {
		if r, ok := op.(Reg); ok && r.R == from {
			i.Operands[k] = Reg{R: to}
			changed = true
		}
	}
	return changed
}

// Labels returns the branch targets named by the operands
func (i *Instr) Labels() []BlockID {
	var out []BlockID
	for _, op := range i.Operands {
		if l, ok := op.(Label); ok {
			out = append(out, l.Block)
		}
	}
	return out
}

// BasicBlock is an ordered list of machine instructions
type BasicBlock struct {
	ID     BlockID
	Name   string
	Instrs []InstrID
}
