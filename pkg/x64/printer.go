package x64

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-ra/pkg/machine"
)

// Printer outputs machine functions with x86-64 mnemonics
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new machine function printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintFunction prints fn block by block in layout order
func (p *Printer) PrintFunction(fn *machine.Function) {
	fmt.Fprintf(p.w, "%s:\n", fn.Name)
	for _, slot := range fn.Frame.Slots() {
		fmt.Fprintf(p.w, "  ; %s: %s\n", slot, slot.Ty)
	}
	for _, bb := range fn.Blocks() {
		fmt.Fprintf(p.w, "bb%d %s:\n", bb.ID, bb.Name)
		for _, id := range bb.Instrs {
			fmt.Fprintf(p.w, "  %s\n", FormatInstr(fn.MustInstr(id)))
		}
	}
}

// FormatInstr renders one instruction as "defs = mnemonic operands"
func FormatInstr(instr *machine.Instr) string {
	var sb strings.Builder
	for k, v := range instr.Defs {
		if k > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	if len(instr.Defs) > 0 {
		sb.WriteString(" = ")
	}
	if d, ok := Lookup(instr.Opcode); ok {
		sb.WriteString(d.Mnemonic())
	} else {
		sb.WriteString(OpcodeName(instr.Opcode))
	}
	for k, op := range instr.Operands {
		if k == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(formatOperand(op))
	}
	return sb.String()
}

func formatOperand(op machine.Operand) string {
	if r, ok := op.(machine.Phys); ok {
		return RegName(r.R)
	}
	return op.String()
}
