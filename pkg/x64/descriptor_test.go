package x64

import (
	"strings"
	"sync"
	"testing"

	"github.com/raymyers/ralph-ra/pkg/machine"
	"golang.org/x/arch/x86/x86asm"
)

func TestBuiltinRegistry(t *testing.T) {
	r := Default()
	if got, want := r.Len(), int(lastOpcode-machine.FirstTargetOpcode); got != want {
		t.Errorf("registry has %d descriptors, want one per target opcode (%d)", got, want)
	}
	for op := machine.FirstTargetOpcode; op < lastOpcode; op++ {
		d, ok := r.Lookup(op)
		if !ok {
			t.Errorf("no descriptor for %s", OpcodeName(op))
			continue
		}
		if d.Name != OpcodeName(op) {
			t.Errorf("descriptor for %s is named %s", OpcodeName(op), d.Name)
		}
	}
}

func TestLookupPseudoHasNoDescriptor(t *testing.T) {
	for _, op := range []machine.Opcode{
		machine.OpCopy, machine.OpLoad, machine.OpStore, machine.OpPhi,
		machine.OpRet, machine.OpBr, machine.OpBrCond,
		machine.OpAdjStackDown, machine.OpAdjStackUp,
	} {
		if d, ok := Lookup(op); ok {
			t.Errorf("Lookup(%s) = %v, want none", OpcodeName(op), d.Name)
		}
	}
	if _, ok := Lookup(lastOpcode); ok {
		t.Error("Lookup past the table should find nothing")
	}
}

func TestTies(t *testing.T) {
	tests := []struct {
		op      machine.Opcode
		tied    bool
		wantUse int
	}{
		{ADDrr32, true, 0},
		{ADDr64i32, true, 0},
		{SUBSDrm, true, 0},
		{IMULrr32, true, 0},
		{IMULrri32, false, 0},
		{SQRTSDrr, false, 0},
		{SHLr32i8, true, 0},
		{MOVrr32, false, 0},
	}
	for _, tt := range tests {
		t.Run(OpcodeName(tt.op), func(t *testing.T) {
			d, ok := Lookup(tt.op)
			if !ok {
				t.Fatal("missing descriptor")
			}
			use, tied := d.TiedUse(0)
			if tied != tt.tied {
				t.Fatalf("tied = %v, want %v", tied, tt.tied)
			}
			if tied && use != tt.wantUse {
				t.Errorf("tied use = %d, want %d", use, tt.wantUse)
			}
		})
	}
}

func TestImplicitRegisters(t *testing.T) {
	cdq, _ := Lookup(CDQ)
	if len(cdq.ImpDefs) != 1 || cdq.ImpDefs[0] != x86asm.EDX {
		t.Errorf("CDQ implicit defs = %v, want [EDX]", cdq.ImpDefs)
	}
	if len(cdq.ImpUses) != 1 || cdq.ImpUses[0] != x86asm.EAX {
		t.Errorf("CDQ implicit uses = %v, want [EAX]", cdq.ImpUses)
	}
	idiv, _ := Lookup(IDIV)
	want := []x86asm.Reg{x86asm.EAX, x86asm.EDX}
	for _, got := range [][]x86asm.Reg{idiv.ImpDefs, idiv.ImpUses} {
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("IDIV implicit = %v, want %v", got, want)
		}
	}
	if len(idiv.Uses) != 1 || idiv.Uses[0].Class != GR32 {
		t.Errorf("IDIV uses = %v, want [GR32]", idiv.Uses)
	}
}

func TestMnemonic(t *testing.T) {
	tests := []struct {
		op   machine.Opcode
		want string
	}{
		{MOVSDrr, "movsd"},
		{MOVSXDr64m32, "movsxd"},
		{ADDrr32, "add"},
		{MULSDrr, "mulsd"},
		{IDIV, "idiv"},
		{SETLEr8, "setle"},
		{JMP, "jmp"},
	}
	for _, tt := range tests {
		d, _ := Lookup(tt.op)
		if got := d.Mnemonic(); got != tt.want {
			t.Errorf("%s mnemonic = %q, want %q", OpcodeName(tt.op), got, tt.want)
		}
	}
}

func TestNewRegistryRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Descriptor
		wantErr string
	}{
		{
			name:    "tied def out of range",
			defs:    []Descriptor{{Name: "BAD", Opcode: ADDrr32, Uses: []Constraint{gr32}, Ties: []Tie{{Def: 0, Use: 0}}}},
			wantErr: "tied def index 0",
		},
		{
			name:    "tied use out of range",
			defs:    []Descriptor{{Name: "BAD", Opcode: ADDrr32, Defs: []RegClass{GR32}, Ties: []Tie{{Def: 0, Use: 2}}}},
			wantErr: "tied use index 2",
		},
		{
			name:    "tied to immediate",
			defs:    []Descriptor{{Name: "BAD", Opcode: ADDri32, Uses: []Constraint{Imm(I32)}, Defs: []RegClass{GR32}, Ties: []Tie{{Def: 0, Use: 0}}}},
			wantErr: "not a register",
		},
		{
			name:    "tie across classes",
			defs:    []Descriptor{{Name: "BAD", Opcode: ADDri32, Uses: []Constraint{xmm}, Defs: []RegClass{GR32}, Ties: []Tie{{Def: 0, Use: 0}}}},
			wantErr: "tie joins",
		},
		{
			name:    "duplicate opcode",
			defs:    []Descriptor{{Name: "A", Opcode: RET}, {Name: "B", Opcode: RET}},
			wantErr: "duplicate",
		},
		{
			name:    "pseudo opcode",
			defs:    []Descriptor{{Name: "COPY", Opcode: machine.OpCopy}},
			wantErr: "pseudo opcode",
		},
		{
			name:    "implicit segment register",
			defs:    []Descriptor{{Name: "BAD", Opcode: CDQ, ImpUses: []x86asm.Reg{x86asm.CS}}},
			wantErr: "not allocatable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.defs)
			if err == nil {
				t.Fatalf("NewRegistry accepted %v", tt.defs)
			}
			if r != nil {
				t.Error("registry returned alongside an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseOpcode(t *testing.T) {
	tests := []struct {
		name string
		want machine.Opcode
		ok   bool
	}{
		{"ADDrr32", ADDrr32, true},
		{"MOVSDrm64", MOVSDrm64, true},
		{"JMP", JMP, true},
		{"copy", machine.OpCopy, true},
		{"store", machine.OpStore, true},
		{"addrr32", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseOpcode(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseOpcode(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConcurrentLookup(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for op := machine.FirstTargetOpcode; op < lastOpcode; op++ {
				if _, ok := Lookup(op); !ok {
					t.Errorf("Lookup(%s) failed", OpcodeName(op))
				}
			}
		}()
	}
	wg.Wait()
}

func TestImmWidthFits(t *testing.T) {
	tests := []struct {
		w    ImmWidth
		v    int64
		want bool
	}{
		{I8, 127, true},
		{I8, 128, false},
		{I8, -128, true},
		{I32, 1 << 31, false},
		{I32, -(1 << 31), true},
		{I64, 1 << 62, true},
	}
	for _, tt := range tests {
		if got := tt.w.Fits(tt.v); got != tt.want {
			t.Errorf("i%d.Fits(%d) = %v, want %v", tt.w, tt.v, got, tt.want)
		}
	}
}
