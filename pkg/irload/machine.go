package irload

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-ra/pkg/frame"
	"github.com/raymyers/ralph-ra/pkg/machine"
	"github.com/raymyers/ralph-ra/pkg/types"
	"github.com/raymyers/ralph-ra/pkg/x64"
)

type machineDoc struct {
	Name   string            `yaml:"name"`
	Regs   []string          `yaml:"regs"`
	Frame  []string          `yaml:"frame"`
	Blocks []machineBlockDoc `yaml:"blocks"`
}

type machineBlockDoc struct {
	Name   string     `yaml:"name"`
	Instrs []instrDoc `yaml:"instrs"`
}

type instrDoc struct {
	Op   string   `yaml:"op"`
	Defs []string `yaml:"defs,omitempty"`
	Args []string `yaml:"args,omitempty"`
}

// LoadMachine decodes a machine function fixture. Every instruction is
// appended, so register def and use lists are filled in as it loads.
func LoadMachine(data []byte) (*machine.Function, error) {
	var doc machineDoc
	if err := decode(data, &doc); err != nil {
		return nil, err
	}
	fn := machine.NewFunction(doc.Name)
	for _, r := range doc.Regs {
		ty, err := parseType(r, types.Void)
		if err != nil {
			return nil, err
		}
		fn.Regs.Gen(ty)
	}
	var slots []frame.FrameIndexInfo
	for _, s := range doc.Frame {
		ty, err := parseType(s, types.Void)
		if err != nil {
			return nil, err
		}
		slots = append(slots, fn.Frame.Alloc(ty))
	}

	blocks := make(map[string]machine.BlockID, len(doc.Blocks))
	for _, bd := range doc.Blocks {
		if _, dup := blocks[bd.Name]; dup {
			return nil, syntaxErr("duplicate block %q", bd.Name)
		}
		blocks[bd.Name] = fn.AddBlock(bd.Name)
	}

	for _, bd := range doc.Blocks {
		for k, d := range bd.Instrs {
			instr, err := parseInstr(fn, d, slots, blocks)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", bd.Name, k, err)
			}
			if _, err := fn.Append(blocks[bd.Name], instr); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", bd.Name, k, err)
			}
		}
	}
	return fn, nil
}

func parseInstr(fn *machine.Function, d instrDoc, slots []frame.FrameIndexInfo, blocks map[string]machine.BlockID) (*machine.Instr, error) {
	op, ok := x64.ParseOpcode(d.Op)
	if !ok {
		return nil, syntaxErr("unknown opcode %q", d.Op)
	}
	var defs []machine.VReg
	for _, s := range d.Defs {
		v, err := parseVReg(s)
		if err != nil {
			return nil, err
		}
		defs = append(defs, v)
	}

	// immediates take the width of the first def, else i32
	immTy := types.I32
	if len(defs) > 0 {
		if info, err := fn.Regs.Info(defs[0]); err == nil {
			immTy = info.Ty
		}
	}

	operands := make([]machine.Operand, 0, len(d.Args))
	for _, a := range d.Args {
		o, err := parseOperand(a, immTy, slots, blocks)
		if err != nil {
			return nil, err
		}
		operands = append(operands, o)
	}
	return machine.NewInstr(op, operands, 0).WithDefs(defs...), nil
}

func parseVReg(s string) (machine.VReg, error) {
	if !strings.HasPrefix(s, "v") {
		return 0, syntaxErr("bad register %q", s)
	}
	n, err := parseInt(s[1:])
	if err != nil || n <= 0 {
		return 0, syntaxErr("bad register %q", s)
	}
	return machine.VReg(n), nil
}

func parseOperand(a string, immTy types.Type, slots []frame.FrameIndexInfo, blocks map[string]machine.BlockID) (machine.Operand, error) {
	switch {
	case strings.HasPrefix(a, "$"):
		n, err := parseInt(a[1:])
		if err != nil {
			return nil, syntaxErr("bad immediate %q", a)
		}
		return machine.Imm{Val: n, Ty: immTy}, nil
	case strings.HasPrefix(a, "[fi#") && strings.HasSuffix(a, "]"):
		n, err := parseInt(a[4 : len(a)-1])
		if err != nil || n < 0 || int(n) >= len(slots) {
			return nil, syntaxErr("bad frame slot %q", a)
		}
		return machine.FrameIndex{Slot: slots[n]}, nil
	case strings.HasPrefix(a, "@"):
		return machine.Symbol{Name: a[1:]}, nil
	case strings.HasPrefix(a, "bb:"):
		b, ok := blocks[a[3:]]
		if !ok {
			return nil, syntaxErr("unknown block %q", a[3:])
		}
		return machine.Label{Block: b}, nil
	}
	if v, err := parseVReg(a); err == nil {
		return machine.Reg{R: v}, nil
	}
	if r, ok := x64.ParseReg(a); ok {
		return x64.Phys(r), nil
	}
	return nil, syntaxErr("bad operand %q", a)
}
