package ir

import (
	"bytes"
	"testing"

	"github.com/raymyers/ralph-ra/pkg/types"
)

func TestPrintFunction(t *testing.T) {
	fn := NewFunction("f", []types.Type{types.I32}, types.I32)
	b := NewBuilder(fn)
	entry := fn.AddBlock("entry")
	exit := fn.AddBlock("exit")

	b.SetInsertPoint(entry)
	a := b.Alloca(types.I32)
	b.Store(Param{Index: 0, Ty: types.I32}, a)
	x := b.Load(types.I32, a)
	c := b.ICmp(Clt, x, Const{Ty: types.I32, Val: 10})
	b.CondBr(c, exit, exit)
	b.SetInsertPoint(exit)
	b.Ret(b.Mul(x, x))

	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(fn)

	want := `define i32 @f(i32 %arg0) {
entry:
  %1 = alloca i32
  store %arg0, %1
  %3 = load i32, %1
  %4 = icmp lt %3, 10
  condbr %4, exit, exit

exit:
  %6 = mul i32 %3, %3
  ret %6
}
`
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
