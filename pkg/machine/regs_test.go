package machine

import (
	"errors"
	"testing"

	"github.com/raymyers/ralph-ra/pkg/arena"
	"github.com/raymyers/ralph-ra/pkg/types"
)

func TestRegTableGen(t *testing.T) {
	tab := NewRegTable()
	v1 := tab.Gen(types.I32)
	v2 := tab.Gen(types.F64)

	if v1 != 1 || v2 != 2 {
		t.Errorf("Gen = %v, %v; want v1, v2", v1, v2)
	}
	if tab.NextVReg() != 3 {
		t.Errorf("NextVReg = %v, want v3", tab.NextVReg())
	}
	info, err := tab.Info(v2)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Ty != types.F64 || info.VReg != v2 {
		t.Errorf("Info(v2) = %+v", info)
	}
	if tab.Len() != 2 || len(tab.All()) != 2 {
		t.Errorf("Len = %d, All = %d; want 2", tab.Len(), len(tab.All()))
	}
	if regs := tab.GenN(types.I64, 3); len(regs) != 3 || regs[0] != 3 || regs[2] != 5 {
		t.Errorf("GenN = %v", regs)
	}
}

func TestRegTableMissing(t *testing.T) {
	tab := NewRegTable()
	tab.Gen(types.I32)
	for _, v := range []VReg{0, 2, 100} {
		if _, err := tab.Info(v); !errors.Is(err, arena.ErrMissingEntity) {
			t.Errorf("Info(%v) error = %v, want ErrMissingEntity", v, err)
		}
	}
}

func TestRegInfoLists(t *testing.T) {
	info := &RegInfo{VReg: 1, Ty: types.I32}
	info.AddUse(3)
	info.AddUse(5)
	info.AddUse(3)
	if len(info.UseList) != 2 {
		t.Errorf("UseList = %v, want no duplicates", info.UseList)
	}
	info.RemoveUse(3)
	if len(info.UseList) != 1 || info.UseList[0] != 5 {
		t.Errorf("UseList = %v, want [5]", info.UseList)
	}
	info.AddDef(1)
	info.AddDef(2)
	info.RemoveDef(1)
	if len(info.DefList) != 1 || info.DefList[0] != 2 {
		t.Errorf("DefList = %v, want [2]", info.DefList)
	}
}
