package irload

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-ra/pkg/ir"
	"github.com/raymyers/ralph-ra/pkg/types"
)

type moduleDoc struct {
	Module    string        `yaml:"module"`
	Functions []functionDoc `yaml:"functions"`
}

type functionDoc struct {
	Name   string     `yaml:"name"`
	Params []string   `yaml:"params"`
	Ret    string     `yaml:"ret"`
	Blocks []blockDoc `yaml:"blocks"`
}

type blockDoc struct {
	Name  string    `yaml:"name"`
	Insts []instDoc `yaml:"insts"`
}

type instDoc struct {
	Def     string   `yaml:"def,omitempty"`
	Op      string   `yaml:"op"`
	Type    string   `yaml:"type,omitempty"`
	Cond    string   `yaml:"cond,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Targets []string `yaml:"targets,omitempty"`
}

// LoadModule decodes an SSA module fixture. Instructions may only refer
// to results defined earlier in layout order.
func LoadModule(data []byte) (*ir.Module, error) {
	var doc moduleDoc
	if err := decode(data, &doc); err != nil {
		return nil, err
	}
	m := &ir.Module{Name: doc.Module}
	for _, fd := range doc.Functions {
		fn, err := loadFunction(fd)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fd.Name, err)
		}
		m.Functions = append(m.Functions, fn)
	}
	return m, nil
}

func parseType(s string, def types.Type) (types.Type, error) {
	if s == "" {
		return def, nil
	}
	ty, err := types.Parse(s)
	if err != nil {
		return 0, syntaxErr("%v", err)
	}
	return ty, nil
}

type funcLoader struct {
	fn     *ir.Function
	blocks map[string]ir.BlockID
	values map[string]ir.Value
}

func loadFunction(fd functionDoc) (*ir.Function, error) {
	params := make([]types.Type, len(fd.Params))
	for i, p := range fd.Params {
		ty, err := parseType(p, types.Void)
		if err != nil {
			return nil, err
		}
		params[i] = ty
	}
	ret, err := parseType(fd.Ret, types.Void)
	if err != nil {
		return nil, err
	}

	l := &funcLoader{
		fn:     ir.NewFunction(fd.Name, params, ret),
		blocks: make(map[string]ir.BlockID),
		values: make(map[string]ir.Value),
	}
	for _, bd := range fd.Blocks {
		if _, dup := l.blocks[bd.Name]; dup {
			return nil, syntaxErr("duplicate block %q", bd.Name)
		}
		l.blocks[bd.Name] = l.fn.AddBlock(bd.Name)
	}
	for _, bd := range fd.Blocks {
		for k, id := range bd.Insts {
			if err := l.inst(l.blocks[bd.Name], id); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", bd.Name, k, err)
			}
		}
	}
	return l.fn, nil
}

func (l *funcLoader) inst(b ir.BlockID, d instDoc) error {
	op, ok := ir.ParseOpcode(d.Op)
	if !ok {
		return syntaxErr("unknown opcode %q", d.Op)
	}
	ty, err := parseType(d.Type, types.Void)
	if err != nil {
		return err
	}
	inst := &ir.Instruction{Op: op, Ty: types.Void}

	switch op {
	case ir.Alloca:
		if ty == types.Void {
			return syntaxErr("alloca needs a type")
		}
		inst.Ty, inst.AllocTy = types.Ptr, ty
	case ir.Load:
		if ty == types.Void {
			return syntaxErr("load needs a type")
		}
		inst.Ty = ty
	case ir.Add, ir.Sub, ir.Mul:
		inst.Ty = ty
	case ir.ICmp:
		c, ok := ir.ParseCond(d.Cond)
		if !ok {
			return syntaxErr("unknown condition %q", d.Cond)
		}
		inst.Ty, inst.Cond = types.I1, c
	}

	if err := l.operands(inst, d.Args, ty); err != nil {
		return err
	}
	if inst.Ty == types.Void && (op == ir.Add || op == ir.Sub || op == ir.Mul) && len(inst.Operands) > 0 {
		inst.Ty = l.fn.TypeOf(inst.Operands[0])
	}
	for _, t := range d.Targets {
		bid, ok := l.blocks[t]
		if !ok {
			return syntaxErr("unknown block %q", t)
		}
		inst.Targets = append(inst.Targets, bid)
	}
	if err := checkArity(inst); err != nil {
		return err
	}

	id, err := l.fn.Append(b, inst)
	if err != nil {
		return err
	}
	if d.Def != "" {
		if !inst.HasResult() {
			return syntaxErr("%s has no result to name %q", op, d.Def)
		}
		if _, dup := l.values[d.Def]; dup {
			return syntaxErr("%%%s defined twice", d.Def)
		}
		l.values[d.Def] = ir.Inst{ID: id}
	}
	return nil
}

// operands resolves args. A literal takes the declared type, the return
// type for ret, the slot type for a store, or else the type of the first
// named operand, falling back to i32.
func (l *funcLoader) operands(inst *ir.Instruction, args []string, declared types.Type) error {
	vals := make([]ir.Value, len(args))
	hint := declared
	if inst.Op == ir.Ret {
		hint = l.fn.RetTy
	}
	for k, a := range args {
		if _, err := parseInt(a); err == nil {
			continue
		}
		v, err := l.value(a)
		if err != nil {
			return err
		}
		vals[k] = v
		if hint == types.Void {
			hint = l.fn.TypeOf(v)
		}
	}
	if inst.Op == ir.Store && len(vals) == 2 {
		if slot, ok := vals[1].(ir.Inst); ok {
			if a, err := l.fn.Inst(slot.ID); err == nil && a.Op == ir.Alloca {
				hint = a.AllocTy
			}
		}
	}
	if hint == types.Void || hint == types.Ptr {
		hint = types.I32
	}
	for k, a := range args {
		if vals[k] != nil {
			continue
		}
		n, _ := parseInt(a)
		vals[k] = ir.Const{Ty: hint, Val: n}
	}
	inst.Operands = vals
	return nil
}

func (l *funcLoader) value(a string) (ir.Value, error) {
	switch {
	case strings.HasPrefix(a, "%"):
		v, ok := l.values[a[1:]]
		if !ok {
			return nil, syntaxErr("undefined value %s", a)
		}
		return v, nil
	case strings.HasPrefix(a, "$"):
		n, err := parseInt(a[1:])
		if err != nil || n < 0 || int(n) >= len(l.fn.Params) {
			return nil, syntaxErr("bad parameter %s", a)
		}
		return ir.Param{Index: int(n), Ty: l.fn.Params[n]}, nil
	}
	return nil, syntaxErr("bad value %q", a)
}

var arity = map[ir.Opcode][2]int{ // operands, targets
	ir.Alloca: {0, 0},
	ir.Load:   {1, 0},
	ir.Store:  {2, 0},
	ir.Add:    {2, 0},
	ir.Sub:    {2, 0},
	ir.Mul:    {2, 0},
	ir.ICmp:   {2, 0},
	ir.Br:     {0, 1},
	ir.CondBr: {1, 2},
}

func checkArity(inst *ir.Instruction) error {
	if inst.Op == ir.Ret {
		if len(inst.Operands) > 1 || len(inst.Targets) > 0 {
			return syntaxErr("ret takes at most one value")
		}
		return nil
	}
	want := arity[inst.Op]
	if len(inst.Operands) != want[0] || len(inst.Targets) != want[1] {
		return syntaxErr("%s takes %d values and %d targets, got %d and %d",
			inst.Op, want[0], want[1], len(inst.Operands), len(inst.Targets))
	}
	return nil
}
