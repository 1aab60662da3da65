package x64

import (
	"strings"

	"github.com/raymyers/ralph-ra/pkg/machine"
	"github.com/raymyers/ralph-ra/pkg/types"
	"golang.org/x/arch/x86/x86asm"
)

// RegClass is a set of interchangeable physical registers
type RegClass int

const (
	GR8 RegClass = iota
	GR32
	GR64
	XMM
)

func (c RegClass) String() string {
	switch c {
	case GR8:
		return "GR8"
	case GR32:
		return "GR32"
	case GR64:
		return "GR64"
	case XMM:
		return "XMM"
	}
	return "RegClass(?)"
}

// Contains reports whether the physical register r belongs to the class
func (c RegClass) Contains(r x86asm.Reg) bool {
	switch c {
	case GR8:
		return r >= x86asm.AL && r <= x86asm.R15B
	case GR32:
		return r >= x86asm.EAX && r <= x86asm.R15L
	case GR64:
		return r >= x86asm.RAX && r <= x86asm.R15
	case XMM:
		return r >= x86asm.X0 && r <= x86asm.X15
	}
	return false
}

// ClassOf returns the register class that holds values of type ty
func ClassOf(ty types.Type) (RegClass, bool) {
	switch ty {
	case types.I1, types.I8:
		return GR8, true
	case types.I32:
		return GR32, true
	case types.I64, types.Ptr:
		return GR64, true
	case types.F64:
		return XMM, true
	}
	return 0, false
}

// Phys converts a hardware register into a machine operand
func Phys(r x86asm.Reg) machine.Phys {
	return machine.Phys{R: machine.PhysReg(r)}
}

// RegName returns the assembler name of a physical register
func RegName(r machine.PhysReg) string {
	return strings.ToLower(x86asm.Reg(r).String())
}

// ParseReg returns the allocatable register with the given assembler name
func ParseReg(name string) (x86asm.Reg, bool) {
	for r := x86asm.AL; r <= x86asm.X15; r++ {
		if allocatable(r) && strings.EqualFold(r.String(), name) {
			return r, true
		}
	}
	return 0, false
}
