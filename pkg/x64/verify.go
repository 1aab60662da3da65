package x64

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/machine"
	"golang.org/x/arch/x86/x86asm"
)

// Verify checks every linked target instruction of fn against its
// descriptor: operand and def counts, operand shapes, register classes
// and immediate widths. Pseudo instructions are not checked.
func Verify(fn *machine.Function) error {
	return VerifyWith(Default(), fn)
}

// VerifyWith is Verify against an explicit registry
func VerifyWith(r *Registry, fn *machine.Function) error {
	var errs []error
	for _, bb := range fn.Blocks() {
		for _, id := range bb.Instrs {
			instr, err := fn.Instr(id)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if instr.Opcode.IsPseudo() {
				continue
			}
			d, ok := r.Lookup(instr.Opcode)
			if !ok {
				errs = append(errs, fmt.Errorf("%s: instruction %d: unknown opcode %d", bb.Name, id, instr.Opcode))
				continue
			}
			if err := verifyInstr(fn, d, instr); err != nil {
				errs = append(errs, fmt.Errorf("%s: instruction %d (%s): %w", bb.Name, id, d.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func verifyInstr(fn *machine.Function, d *Descriptor, instr *machine.Instr) error {
	if len(instr.Defs) != len(d.Defs) {
		return fmt.Errorf("has %d defs, want %d", len(instr.Defs), len(d.Defs))
	}
	if len(instr.Operands) != len(d.Uses) {
		return fmt.Errorf("has %d operands, want %d", len(instr.Operands), len(d.Uses))
	}
	for k, v := range instr.Defs {
		if err := checkVReg(fn, v, d.Defs[k]); err != nil {
			return fmt.Errorf("def %d: %w", k, err)
		}
	}
	for k, op := range instr.Operands {
		if err := checkOperand(fn, op, d.Uses[k]); err != nil {
			return fmt.Errorf("operand %d: %w", k, err)
		}
	}
	return nil
}

func checkOperand(fn *machine.Function, op machine.Operand, c Constraint) error {
	switch c.Kind {
	case KindReg:
		switch o := op.(type) {
		case machine.Reg:
			return checkVReg(fn, o.R, c.Class)
		case machine.Phys:
			if !c.Class.Contains(x86asm.Reg(o.R)) {
				return fmt.Errorf("%s is not in %s", RegName(o.R), c.Class)
			}
			return nil
		}
	case KindMem:
		switch op.(type) {
		case machine.FrameIndex, machine.Symbol:
			return nil
		}
	case KindFrameIndex:
		if _, ok := op.(machine.FrameIndex); ok {
			return nil
		}
	case KindImm:
		if o, ok := op.(machine.Imm); ok {
			if !c.Width.Fits(o.Val) {
				return fmt.Errorf("immediate %d does not fit in %d bits", o.Val, c.Width)
			}
			return nil
		}
	case KindLabel:
		if _, ok := op.(machine.Label); ok {
			return nil
		}
	case KindSymbol:
		if _, ok := op.(machine.Symbol); ok {
			return nil
		}
	}
	return fmt.Errorf("%s does not satisfy %s", op, c)
}

func checkVReg(fn *machine.Function, v machine.VReg, want RegClass) error {
	info, err := fn.Regs.Info(v)
	if err != nil {
		return err
	}
	got, ok := ClassOf(info.Ty)
	if !ok {
		return fmt.Errorf("%s has type %s with no register class", v, info.Ty)
	}
	if got != want {
		return fmt.Errorf("%s is %s, want %s", v, got, want)
	}
	return nil
}
