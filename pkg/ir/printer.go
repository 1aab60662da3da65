package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes IR in a compact LLVM-like text form
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new IR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintModule prints every function, separated by blank lines
func (p *Printer) PrintModule(m *Module) {
	for i, fn := range m.Functions {
		p.PrintFunction(fn)
		if i < len(m.Functions)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

// PrintFunction prints a function in layout order
func (p *Printer) PrintFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, ty := range fn.Params {
		params[i] = fmt.Sprintf("%s %s", ty, Param{Index: i, Ty: ty})
	}
	fmt.Fprintf(p.w, "define %s @%s(%s) {\n", fn.RetTy, fn.Name, strings.Join(params, ", "))
	for i, bb := range fn.Blocks() {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "%s:\n", bb.Name)
		for _, id := range bb.Insts {
			fmt.Fprintf(p.w, "  %s\n", p.formatInst(fn, fn.MustInst(id)))
		}
	}
	fmt.Fprintln(p.w, "}")
}

func (p *Printer) formatInst(fn *Function, inst *Instruction) string {
	args := make([]string, len(inst.Operands))
	for i, op := range inst.Operands {
		args[i] = op.String()
	}
	var body string
	switch inst.Op {
	case Alloca:
		body = fmt.Sprintf("alloca %s", inst.AllocTy)
	case Load:
		body = fmt.Sprintf("load %s, %s", inst.Ty, strings.Join(args, ", "))
	case ICmp:
		body = fmt.Sprintf("icmp %s %s", inst.Cond, strings.Join(args, ", "))
	case Br:
		body = fmt.Sprintf("br %s", p.blockName(fn, inst.Targets[0]))
	case CondBr:
		body = fmt.Sprintf("condbr %s, %s, %s", args[0],
			p.blockName(fn, inst.Targets[0]), p.blockName(fn, inst.Targets[1]))
	case Ret:
		body = strings.TrimSpace("ret " + strings.Join(args, ", "))
	case Store:
		body = fmt.Sprintf("store %s", strings.Join(args, ", "))
	default:
		body = fmt.Sprintf("%s %s %s", inst.Op, inst.Ty, strings.Join(args, ", "))
	}
	if inst.HasResult() {
		return fmt.Sprintf("%s = %s", Inst{ID: inst.ID}, body)
	}
	return body
}

func (p *Printer) blockName(fn *Function, b BlockID) string {
	bb, err := fn.Block(b)
	if err != nil {
		return fmt.Sprintf("?%d", b)
	}
	return bb.Name
}
