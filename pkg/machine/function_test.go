package machine

import (
	"errors"
	"testing"

	"github.com/raymyers/ralph-ra/pkg/arena"
	"github.com/raymyers/ralph-ra/pkg/types"
)

const testAdd = FirstTargetOpcode + 1

func TestAppendRecordsDefsAndUses(t *testing.T) {
	fn := NewFunction("f")
	entry := fn.AddBlock("entry")
	v1 := fn.Regs.Gen(types.I32)
	v2 := fn.Regs.Gen(types.I32)

	d, err := fn.Append(entry, NewInstr(OpCopy, []Operand{Imm{Val: 1, Ty: types.I32}}, 0).WithDefs(v1))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	a, _ := fn.Append(entry, NewInstr(testAdd, []Operand{Reg{R: v1}, Reg{R: v1}}, 0).WithDefs(v2))
	r, _ := fn.Append(entry, NewInstr(OpRet, []Operand{Reg{R: v2}}, 0))

	i1 := fn.Regs.MustInfo(v1)
	if len(i1.DefList) != 1 || i1.DefList[0] != d {
		t.Errorf("v1 defs = %v, want [%d]", i1.DefList, d)
	}
	if len(i1.UseList) != 1 || i1.UseList[0] != a {
		t.Errorf("v1 uses = %v, want [%d]", i1.UseList, a)
	}
	i2 := fn.Regs.MustInfo(v2)
	if len(i2.UseList) != 1 || i2.UseList[0] != r {
		t.Errorf("v2 uses = %v, want [%d]", i2.UseList, r)
	}
	if fn.MustInstr(a).Parent != entry {
		t.Error("Append should set the parent block")
	}
}

func TestAppendRejectsUnknownRegister(t *testing.T) {
	fn := NewFunction("f")
	entry := fn.AddBlock("entry")
	_, err := fn.Append(entry, NewInstr(OpRet, []Operand{Reg{R: 9}}, 0))
	if !errors.Is(err, arena.ErrMissingEntity) {
		t.Errorf("error = %v, want ErrMissingEntity", err)
	}
}

func TestInsertBeforeAndAfter(t *testing.T) {
	fn := NewFunction("f")
	entry := fn.AddBlock("entry")
	a, _ := fn.Append(entry, NewInstr(OpCopy, nil, 0))
	b, _ := fn.Append(entry, NewInstr(OpRet, nil, 0))

	x := fn.Alloc(NewInstr(OpCopy, nil, 0))
	y := fn.Alloc(NewInstr(OpCopy, nil, 0))
	if fn.IsLinked(x) {
		t.Error("Alloc must not link")
	}
	if err := fn.InsertBefore(b, x); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	if err := fn.InsertAfter(a, y); err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}

	bb, _ := fn.Block(entry)
	want := []InstrID{a, y, x, b}
	if len(bb.Instrs) != len(want) {
		t.Fatalf("block = %v, want %v", bb.Instrs, want)
	}
	for i := range want {
		if bb.Instrs[i] != want[i] {
			t.Errorf("block = %v, want %v", bb.Instrs, want)
			break
		}
	}
	if _, pos, _ := fn.Position(x); pos != 2 {
		t.Errorf("Position(x) = %d, want 2", pos)
	}
	if err := fn.InsertAfter(a, x); err == nil {
		t.Error("linking an instruction twice should fail")
	}
	if err := fn.InsertAfter(InstrID(99), fn.Alloc(NewInstr(OpCopy, nil, 0))); !errors.Is(err, arena.ErrMissingEntity) {
		t.Errorf("error = %v, want ErrMissingEntity for unknown anchor", err)
	}
}

func TestReplaceOperandReg(t *testing.T) {
	instr := NewInstr(testAdd, []Operand{Reg{R: 1}, Reg{R: 2}, Reg{R: 1}}, 0).WithDefs(1)
	if !instr.ReplaceOperandReg(1, 7) {
		t.Fatal("expected a change")
	}
	if instr.Operands[0] != (Reg{R: 7}) || instr.Operands[2] != (Reg{R: 7}) || instr.Operands[1] != (Reg{R: 2}) {
		t.Errorf("operands = %v", instr.Operands)
	}
	if instr.Defs[0] != 1 {
		t.Error("defs must not be rewritten")
	}
	if instr.ReplaceOperandReg(5, 6) {
		t.Error("no operand reads v5")
	}
	if regs := instr.UsedRegs(); len(regs) != 2 || regs[0] != 7 || regs[1] != 2 {
		t.Errorf("UsedRegs = %v, want [v7 v2]", regs)
	}
}

func TestSuccessors(t *testing.T) {
	fn := NewFunction("f")
	entry := fn.AddBlock("entry")
	then := fn.AddBlock("then")
	exit := fn.AddBlock("exit")
	fn.Append(entry, NewInstr(OpBrCond, []Operand{Label{Block: then}}, 0))
	fn.Append(entry, NewInstr(OpBr, []Operand{Label{Block: exit}}, 0))
	fn.Append(then, NewInstr(OpBr, []Operand{Label{Block: exit}}, 0))
	fn.Append(exit, NewInstr(OpRet, nil, 0))

	if got := fn.Successors(entry); len(got) != 2 || got[0] != then || got[1] != exit {
		t.Errorf("Successors(entry) = %v", got)
	}
	if got := fn.Successors(exit); len(got) != 0 {
		t.Errorf("Successors(exit) = %v", got)
	}
}

func TestPseudoOpcodes(t *testing.T) {
	for _, op := range []Opcode{OpCopy, OpLoad, OpStore, OpPhi, OpRet, OpBr, OpBrCond, OpAdjStackDown, OpAdjStackUp} {
		if !op.IsPseudo() {
			t.Errorf("%d should be pseudo", op)
		}
		name, ok := op.PseudoName()
		if !ok {
			t.Fatalf("no name for %d", op)
		}
		back, ok := ParsePseudo(name)
		if !ok || back != op {
			t.Errorf("ParsePseudo(%q) = %d, want %d", name, back, op)
		}
	}
	if FirstTargetOpcode.IsPseudo() {
		t.Error("target opcodes are not pseudo")
	}
}
