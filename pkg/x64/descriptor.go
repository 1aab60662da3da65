package x64

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/raymyers/ralph-ra/pkg/machine"
	"golang.org/x/arch/x86/x86asm"
)

// OperandKind is the shape an explicit use operand must have
type OperandKind int

const (
	KindReg OperandKind = iota
	KindMem
	KindFrameIndex
	KindImm
	KindLabel
	KindSymbol
)

func (k OperandKind) String() string {
	switch k {
	case KindReg:
		return "reg"
	case KindMem:
		return "mem"
	case KindFrameIndex:
		return "frameindex"
	case KindImm:
		return "imm"
	case KindLabel:
		return "label"
	case KindSymbol:
		return "symbol"
	}
	return "kind(?)"
}

// ImmWidth is the encoded width of an immediate operand in bits
type ImmWidth int

const (
	I8  ImmWidth = 8
	I32 ImmWidth = 32
	I64 ImmWidth = 64
)

// Fits reports whether v is encodable in w bits as a signed immediate
func (w ImmWidth) Fits(v int64) bool {
	if w >= 64 {
		return true
	}
	lim := int64(1) << (w - 1)
	return v >= -lim && v < lim
}

// Constraint describes one use operand
type Constraint struct {
	Kind  OperandKind
	Class RegClass // KindReg only
	Width ImmWidth // KindImm only
}

func (c Constraint) String() string {
	switch c.Kind {
	case KindReg:
		return c.Class.String()
	case KindImm:
		return fmt.Sprintf("i%d", c.Width)
	}
	return c.Kind.String()
}

// Reg, Mem, FI, Imm, Lbl and Sym build constraints for the table
func Reg(c RegClass) Constraint { return Constraint{Kind: KindReg, Class: c} }
func Imm(w ImmWidth) Constraint { return Constraint{Kind: KindImm, Width: w} }
func Mem() Constraint { return Constraint{Kind: KindMem} }
func FI() Constraint { return Constraint{Kind: KindFrameIndex} }
func Lbl() Constraint { return Constraint{Kind: KindLabel} }
func Sym() Constraint { return Constraint{Kind: KindSymbol} }

// Tie binds Defs[Def] to the physical register of Uses[Use]
type Tie struct {
	Def int
	Use int
}

// Descriptor is the operand contract of one opcode
type Descriptor struct {
	Name    string
	Opcode  machine.Opcode
	Op      x86asm.Op // hardware instruction, source of the mnemonic
	Uses    []Constraint
	Defs    []RegClass
	Ties    []Tie
	ImpDefs []x86asm.Reg
	ImpUses []x86asm.Reg
}

// Mnemonic returns the assembler mnemonic
func (d *Descriptor) Mnemonic() string {
	return strings.TrimSuffix(strings.ToLower(d.Op.String()), "_xmm")
}

// TiedUse returns the use index tied to def index def
func (d *Descriptor) TiedUse(def int) (int, bool) {
	for _, t := range d.Ties {
		if t.Def == def {
			return t.Use, true
		}
	}
	return 0, false
}

func (d *Descriptor) check() error {
	var errs []error
	for _, t := range d.Ties {
		if t.Def < 0 || t.Def >= len(d.Defs) {
			errs = append(errs, fmt.Errorf("%s: tied def index %d out of range (%d defs)", d.Name, t.Def, len(d.Defs)))
		}
		if t.Use < 0 || t.Use >= len(d.Uses) {
			errs = append(errs, fmt.Errorf("%s: tied use index %d out of range (%d uses)", d.Name, t.Use, len(d.Uses)))
			continue
		}
		if d.Uses[t.Use].Kind != KindReg {
			errs = append(errs, fmt.Errorf("%s: tied use %d is %s, not a register", d.Name, t.Use, d.Uses[t.Use]))
		} else if t.Def >= 0 && t.Def < len(d.Defs) && d.Uses[t.Use].Class != d.Defs[t.Def] {
			errs = append(errs, fmt.Errorf("%s: tie joins %s and %s", d.Name, d.Defs[t.Def], d.Uses[t.Use].Class))
		}
	}
	for _, r := range append(append([]x86asm.Reg(nil), d.ImpDefs...), d.ImpUses...) {
		if !allocatable(r) {
			errs = append(errs, fmt.Errorf("%s: implicit register %v is not allocatable", d.Name, r))
		}
	}
	return errors.Join(errs...)
}

func allocatable(r x86asm.Reg) bool {
	return GR8.Contains(r) || GR32.Contains(r) || GR64.Contains(r) || XMM.Contains(r)
}

// Registry maps target opcodes to descriptors. It has no mutators.
type Registry struct {
	byOpcode map[machine.Opcode]*Descriptor
}

// NewRegistry builds a registry from defs, rejecting malformed entries:
// out-of-range or non-register ties, duplicate or pseudo opcodes, and
// implicit registers outside the allocatable files.
func NewRegistry(defs []Descriptor) (*Registry, error) {
	r := &Registry{byOpcode: make(map[machine.Opcode]*Descriptor, len(defs))}
	var errs []error
	for i := range defs {
		d := &defs[i]
		if d.Opcode.IsPseudo() {
			errs = append(errs, fmt.Errorf("%s: pseudo opcode %d cannot have a descriptor", d.Name, d.Opcode))
			continue
		}
		if _, dup := r.byOpcode[d.Opcode]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate descriptor for opcode %d", d.Name, d.Opcode))
			continue
		}
		if err := d.check(); err != nil {
			errs = append(errs, err)
			continue
		}
		r.byOpcode[d.Opcode] = d
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("x64 descriptor table: %w", err)
	}
	return r, nil
}

// Lookup returns the descriptor of op. Pseudo opcodes have none and
// impose no allocator constraints.
func (r *Registry) Lookup(op machine.Opcode) (*Descriptor, bool) {
	d, ok := r.byOpcode[op]
	return d, ok
}

// Len returns the number of descriptors
func (r *Registry) Len() int {
	return len(r.byOpcode)
}

var builtin = sync.OnceValues(func() (*Registry, error) {
	return NewRegistry(descriptors())
})

// Default returns the built-in registry, building it on first use
func Default() *Registry {
	r, err := builtin()
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup consults the built-in registry
func Lookup(op machine.Opcode) (*Descriptor, bool) {
	return Default().Lookup(op)
}
