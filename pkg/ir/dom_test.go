package ir

import (
	"testing"

	"github.com/raymyers/ralph-ra/pkg/types"
)

// diamond:
//
//	entry -> left, right
//	left  -> join
//	right -> join
//	join  -> ret
//	dead  (unreachable)
func buildDiamond() (*Function, map[string]BlockID) {
	fn := NewFunction("diamond", []types.Type{types.I1}, types.Void)
	b := NewBuilder(fn)
	ids := map[string]BlockID{}
	for _, name := range []string{"entry", "left", "right", "join", "dead"} {
		ids[name] = fn.AddBlock(name)
	}
	b.SetInsertPoint(ids["entry"])
	b.CondBr(Param{Index: 0, Ty: types.I1}, ids["left"], ids["right"])
	b.SetInsertPoint(ids["left"])
	b.Br(ids["join"])
	b.SetInsertPoint(ids["right"])
	b.Br(ids["join"])
	b.SetInsertPoint(ids["join"])
	b.Ret(nil)
	b.SetInsertPoint(ids["dead"])
	b.Br(ids["join"])
	return fn, ids
}

func TestDominatorsDiamond(t *testing.T) {
	fn, ids := buildDiamond()
	dom := Dominators(fn)

	tests := []struct {
		a, b string
		want bool
	}{
		{"entry", "left", true},
		{"entry", "join", true},
		{"left", "join", false},
		{"right", "join", false},
		{"join", "join", true},
		{"left", "right", false},
		{"entry", "dead", false},
		{"dead", "join", false},
	}
	for _, tt := range tests {
		if got := dom.Dominates(ids[tt.a], ids[tt.b]); got != tt.want {
			t.Errorf("Dominates(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}

	if idom, ok := dom.Idom(ids["join"]); !ok || idom != ids["entry"] {
		t.Errorf("idom(join) = %v, want entry", idom)
	}
	if dom.StrictlyDominates(ids["entry"], ids["entry"]) {
		t.Error("a block must not strictly dominate itself")
	}
}

func TestDominatorsLoop(t *testing.T) {
	// entry -> header; header -> body, exit; body -> header
	fn := NewFunction("loop", []types.Type{types.I1}, types.Void)
	b := NewBuilder(fn)
	entry := fn.AddBlock("entry")
	header := fn.AddBlock("header")
	body := fn.AddBlock("body")
	exit := fn.AddBlock("exit")

	b.SetInsertPoint(entry)
	b.Br(header)
	b.SetInsertPoint(header)
	b.CondBr(Param{Index: 0, Ty: types.I1}, body, exit)
	b.SetInsertPoint(body)
	b.Br(header)
	b.SetInsertPoint(exit)
	b.Ret(nil)

	dom := Dominators(fn)
	if !dom.Dominates(header, body) || !dom.Dominates(header, exit) {
		t.Error("header should dominate body and exit")
	}
	if dom.Dominates(body, header) {
		t.Error("loop body must not dominate its header")
	}
}
