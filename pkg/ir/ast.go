// Package ir defines the SSA-style intermediate representation consumed by
// the promotion pass. Instructions and blocks live in per-function arenas
// and are addressed by stable handles; every value-producing instruction
// keeps an exact, incrementally maintained list of its users.
package ir

import (
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/types"
)

// InstID is a stable handle to an instruction within its function
type InstID int

// BlockID is a stable handle to a basic block within its function
type BlockID int

// Opcode identifies an IR instruction kind
type Opcode int

const (
	Alloca Opcode = iota // %r = alloca T          reserve a stack slot
	Load                 // %r = load T, %slot
	Store                // store %v, %slot
	Add                  // %r = add %a, %b
	Sub                  // %r = sub %a, %b
	Mul                  // %r = mul %a, %b
	ICmp                 // %r = icmp cond %a, %b
	Br                   // br label
	CondBr               // condbr %c, then, else
	Ret                  // ret [%v]
)

var opcodeNames = []string{"alloca", "load", "store", "add", "sub", "mul", "icmp", "br", "condbr", "ret"}

func (o Opcode) String() string {
	if int(o) >= 0 && int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("op%d", int(o))
}

// ParseOpcode returns the opcode with the given printed name
func ParseOpcode(s string) (Opcode, bool) {
	for i, name := range opcodeNames {
		if name == s {
			return Opcode(i), true
		}
	}
	return 0, false
}

// IsTerminator reports whether the opcode ends a basic block
func (o Opcode) IsTerminator() bool {
	return o == Br || o == CondBr || o == Ret
}

// Cond is an integer comparison predicate
type Cond int

const (
	Ceq Cond = iota
	Cne
	Clt
	Cle
	Cgt
	Cge
)

var condNames = []string{"eq", "ne", "lt", "le", "gt", "ge"}

func (c Cond) String() string {
	if int(c) >= 0 && int(c) < len(condNames) {
		return condNames[c]
	}
	return "?"
}

// ParseCond returns the predicate with the given printed name
func ParseCond(s string) (Cond, bool) {
	for i, name := range condNames {
		if name == s {
			return Cond(i), true
		}
	}
	return 0, false
}

// --- Values ---

// Value is an instruction operand
type Value interface {
	implValue()
	String() string
}

// Const is an integer constant
type Const struct {
	Ty  types.Type
	Val int64
}

// Inst is the result of an instruction
type Inst struct {
	ID InstID
}

// Param is a function parameter
type Param struct {
	Index int
	Ty    types.Type
}

func (Const) implValue() {}
func (Inst) implValue()  {}
func (Param) implValue() {}

func (c Const) String() string { return fmt.Sprintf("%d", c.Val) }
func (v Inst) String() string  { return fmt.Sprintf("%%%d", v.ID) }
func (p Param) String() string { return fmt.Sprintf("%%arg%d", p.Index) }

// --- Instructions ---

// Instruction is a single IR instruction
type Instruction struct {
	ID       InstID
	Op       Opcode
	Ty       types.Type // result type, Void if none
	AllocTy  types.Type // slot type (alloca only)
	Cond     Cond       // predicate (icmp only)
	Operands []Value
	Targets  []BlockID // successors (br, condbr)
	Parent   BlockID

	users []InstID
}

// Users returns the instructions that consume this instruction's result,
// in the order they were first recorded
func (i *Instruction) Users() []InstID {
	return append([]InstID(nil), i.users...)
}

// NumUsers returns the length of the users list
func (i *Instruction) NumUsers() int {
	return len(i.users)
}

// HasResult reports whether the instruction defines a value
func (i *Instruction) HasResult() bool {
	return i.Ty != types.Void
}

func (i *Instruction) addUser(u InstID) {
	for _, x := range i.users {
		if x == u {
			return
		}
	}
	i.users = append(i.users, u)
}

func (i *Instruction) removeUser(u InstID) {
	for k, x := range i.users {
		if x == u {
			i.users = append(i.users[:k], i.users[k+1:]...)
			return
		}
	}
}

// uses reports whether v appears among the operands
func (i *Instruction) uses(v Value) bool {
	for _, op := range i.Operands {
		if op == v {
			return true
		}
	}
	return false
}

// BasicBlock is a named, ordered sequence of instructions
type BasicBlock struct {
	ID    BlockID
	Name  string
	Insts []InstID
}

// Terminator returns the last instruction handle, or 0 if the block is empty
func (b *BasicBlock) Terminator() InstID {
	if len(b.Insts) == 0 {
		return 0
	}
	return b.Insts[len(b.Insts)-1]
}

// Module is a collection of functions
type Module struct {
	Name      string
	Functions []*Function
}
