package liveness

import (
	"errors"
	"strings"
	"testing"

	"github.com/raymyers/ralph-ra/pkg/arena"
	"github.com/raymyers/ralph-ra/pkg/machine"
	"github.com/raymyers/ralph-ra/pkg/types"
)

const opAdd = machine.FirstTargetOpcode + 1

func imm(v int64) machine.Imm { return machine.Imm{Val: v, Ty: types.I32} }

// straightLine builds:
//
//	16: v1 = copy $1
//	32: v2 = copy $2
//	48: v3 = add v1, v2
//	64: ret v3
func straightLine(t *testing.T) (*machine.Function, []machine.InstrID, []machine.VReg) {
	t.Helper()
	fn := machine.NewFunction("f")
	entry := fn.AddBlock("entry")
	regs := fn.Regs.GenN(types.I32, 3)
	var ids []machine.InstrID
	for _, instr := range []*machine.Instr{
		machine.NewInstr(machine.OpCopy, []machine.Operand{imm(1)}, 0).WithDefs(regs[0]),
		machine.NewInstr(machine.OpCopy, []machine.Operand{imm(2)}, 0).WithDefs(regs[1]),
		machine.NewInstr(opAdd, []machine.Operand{machine.Reg{R: regs[0]}, machine.Reg{R: regs[1]}}, 0).WithDefs(regs[2]),
		machine.NewInstr(machine.OpRet, []machine.Operand{machine.Reg{R: regs[2]}}, 0),
	} {
		id, err := fn.Append(entry, instr)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		ids = append(ids, id)
	}
	return fn, ids, regs
}

func TestComputeStraightLine(t *testing.T) {
	fn, ids, regs := straightLine(t)
	m, err := Compute(fn)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	for i, id := range ids {
		p, err := m.ProgramPoint(id)
		if err != nil {
			t.Fatalf("ProgramPoint: %v", err)
		}
		if want := ProgramPoint((i + 1) * pointGap); p != want {
			t.Errorf("point(%d) = %d, want %d", id, p, want)
		}
	}

	want := map[machine.VReg]LiveRange{
		regs[0]: {16, 48},
		regs[1]: {32, 48},
		regs[2]: {48, 64},
	}
	for v, r := range want {
		iv, err := m.Interval(v)
		if err != nil {
			t.Fatalf("Interval(%s): %v", v, err)
		}
		if iv.Range != r {
			t.Errorf("Interval(%s) = %s, want %s", v, iv.Range, r)
		}
	}
	if !m.Interferes(regs[0], regs[1]) {
		t.Error("v1 and v2 are both live at 32..48")
	}
	if !m.Interferes(regs[1], regs[2]) {
		t.Error("v2 and v3 meet at the add")
	}
	if len(m.Intervals()) != 3 || m.Intervals()[0].VReg != regs[0] {
		t.Errorf("Intervals() = %v", m.Intervals())
	}
}

func TestComputeLoopExtendsAcrossBackEdge(t *testing.T) {
	// entry:  v1 = copy $0          16
	//         br header             32
	// header: brcond exit           48
	//         br body               64
	// body:   v1 = add v1, $1       80
	//         br header             96
	// exit:   ret v1                112
	fn := machine.NewFunction("loop")
	entry := fn.AddBlock("entry")
	header := fn.AddBlock("header")
	body := fn.AddBlock("body")
	exit := fn.AddBlock("exit")
	v1 := fn.Regs.Gen(types.I32)

	fn.Append(entry, machine.NewInstr(machine.OpCopy, []machine.Operand{imm(0)}, 0).WithDefs(v1))
	fn.Append(entry, machine.NewInstr(machine.OpBr, []machine.Operand{machine.Label{Block: header}}, 0))
	fn.Append(header, machine.NewInstr(machine.OpBrCond, []machine.Operand{machine.Label{Block: exit}}, 0))
	fn.Append(header, machine.NewInstr(machine.OpBr, []machine.Operand{machine.Label{Block: body}}, 0))
	fn.Append(body, machine.NewInstr(opAdd, []machine.Operand{machine.Reg{R: v1}, imm(1)}, 0).WithDefs(v1))
	fn.Append(body, machine.NewInstr(machine.OpBr, []machine.Operand{machine.Label{Block: header}}, 0))
	fn.Append(exit, machine.NewInstr(machine.OpRet, []machine.Operand{machine.Reg{R: v1}}, 0))

	m, err := Compute(fn)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	iv, _ := m.Interval(v1)
	if iv.Range != (LiveRange{16, 112}) {
		t.Errorf("Interval(v1) = %s, want [16, 112]", iv.Range)
	}
}

func TestCompareAndAmbiguity(t *testing.T) {
	fn, ids, _ := straightLine(t)
	m, _ := Compute(fn)

	if c, err := m.Compare(ids[0], ids[2]); err != nil || c >= 0 {
		t.Errorf("Compare(first, third) = %d, %v", c, err)
	}
	if c, err := m.Compare(ids[3], ids[1]); err != nil || c <= 0 {
		t.Errorf("Compare(last, second) = %d, %v", c, err)
	}
	if c, err := m.Compare(ids[1], ids[1]); err != nil || c != 0 {
		t.Errorf("Compare(x, x) = %d, %v", c, err)
	}

	// force a tie to check it is reported, not silently ordered
	m.instrPoint[ids[1]] = m.instrPoint[ids[0]]
	if _, err := m.Compare(ids[0], ids[1]); !errors.Is(err, ErrAmbiguousProgramPoint) {
		t.Errorf("error = %v, want ErrAmbiguousProgramPoint", err)
	}
	if _, err := m.ProgramPoint(machine.InstrID(99)); !errors.Is(err, arena.ErrMissingEntity) {
		t.Errorf("error = %v, want ErrMissingEntity", err)
	}
}

func TestLatestDef(t *testing.T) {
	fn := machine.NewFunction("f")
	entry := fn.AddBlock("entry")
	v1 := fn.Regs.Gen(types.I32)
	v2 := fn.Regs.Gen(types.I32)
	d1, _ := fn.Append(entry, machine.NewInstr(machine.OpCopy, []machine.Operand{imm(1)}, 0).WithDefs(v1))
	d2, _ := fn.Append(entry, machine.NewInstr(opAdd, []machine.Operand{machine.Reg{R: v1}, imm(2)}, 0).WithDefs(v1))
	fn.Append(entry, machine.NewInstr(machine.OpRet, []machine.Operand{machine.Reg{R: v1}}, 0))

	m, _ := Compute(fn)
	got, err := m.LatestDef(v1)
	if err != nil {
		t.Fatalf("LatestDef: %v", err)
	}
	if got != d2 {
		t.Errorf("LatestDef = %d, want %d (not %d)", got, d2, d1)
	}
	if _, err := m.LatestDef(v2); !errors.Is(err, ErrNoDefinition) {
		t.Errorf("error = %v, want ErrNoDefinition", err)
	}
	if _, err := m.LatestDef(machine.VReg(50)); !errors.Is(err, arena.ErrMissingEntity) {
		t.Errorf("error = %v, want ErrMissingEntity", err)
	}
}

func TestLiveRangeOps(t *testing.T) {
	r := LiveRange{Start: 16, End: 64}
	if !r.Contains(16) || !r.Contains(64) || r.Contains(65) {
		t.Error("Contains should be inclusive at both ends")
	}
	if !r.Overlaps(LiveRange{64, 80}) || r.Overlaps(LiveRange{65, 80}) {
		t.Error("Overlaps is wrong at the boundary")
	}
	r.ShrinkTo(32)
	if r != (LiveRange{16, 32}) {
		t.Errorf("ShrinkTo(32) = %s", r)
	}
	r.AdjustEndToStart()
	if r != (LiveRange{16, 16}) {
		t.Errorf("AdjustEndToStart = %s", r)
	}
}

func TestEntities(t *testing.T) {
	fn, _, regs := straightLine(t)
	m, _ := Compute(fn)

	info, err := m.EntityByVReg(regs[2])
	if err != nil || info != fn.Regs.MustInfo(regs[2]) {
		t.Errorf("EntityByVReg = %v, %v; want the table's entry", info, err)
	}
	v := fn.Regs.Gen(types.I64)
	if _, err := m.EntityByVReg(v); !errors.Is(err, arena.ErrMissingEntity) {
		t.Errorf("unregistered vreg: error = %v", err)
	}
	m.AddVRegEntity(fn.Regs.MustInfo(v))
	if _, err := m.EntityByVReg(v); err != nil {
		t.Errorf("after AddVRegEntity: %v", err)
	}
}

func TestTree(t *testing.T) {
	fn, _, _ := straightLine(t)
	m, _ := Compute(fn)
	out := m.Tree().String()
	for _, want := range []string{"f", "v1 [16, 48]", "v3 [48, 64]", "[def]  @16", "[use]  @48"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}
}
