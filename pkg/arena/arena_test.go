package arena

import (
	"errors"
	"testing"
)

func TestAllocAndGet(t *testing.T) {
	a := New[string]("name")
	id1 := a.Alloc("x")
	id2 := a.Alloc("y")

	if id1 == 0 || id2 == 0 {
		t.Fatal("handle 0 must never be issued")
	}
	if id1 == id2 {
		t.Fatal("handles should be distinct")
	}
	got, err := a.Get(id2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "y" {
		t.Errorf("Get(%d) = %q, want %q", id2, got, "y")
	}
}

func TestRemoveKeepsOtherHandles(t *testing.T) {
	a := New[int]("value")
	id1 := a.Alloc(10)
	id2 := a.Alloc(20)
	id3 := a.Alloc(30)

	if err := a.Remove(id2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if a.Contains(id2) {
		t.Error("removed handle should not be live")
	}
	if v := a.MustGet(id1); v != 10 {
		t.Errorf("id1 = %d, want 10", v)
	}
	if v := a.MustGet(id3); v != 30 {
		t.Errorf("id3 = %d, want 30", v)
	}
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}

	id4 := a.Alloc(40)
	if id4 == id2 {
		t.Error("removed handles must not be reissued")
	}
}

func TestMissingEntity(t *testing.T) {
	a := New[int]("instruction")
	id := a.Alloc(1)
	a.Remove(id)

	for _, bad := range []int{0, -1, id, 99} {
		_, err := a.Get(bad)
		if !errors.Is(err, ErrMissingEntity) {
			t.Errorf("Get(%d) error = %v, want ErrMissingEntity", bad, err)
		}
		var me *MissingError
		if !errors.As(err, &me) || me.Kind != "instruction" || me.ID != bad {
			t.Errorf("Get(%d) error = %#v, want MissingError{instruction, %d}", bad, err, bad)
		}
	}
	if err := a.Remove(id); !errors.Is(err, ErrMissingEntity) {
		t.Errorf("double Remove error = %v, want ErrMissingEntity", err)
	}
}

func TestMustGetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustGet on a missing handle should panic")
		}
	}()
	New[int]("value").MustGet(1)
}

func TestEachOrder(t *testing.T) {
	a := New[int]("value")
	for i := 1; i <= 4; i++ {
		a.Alloc(i * 10)
	}
	a.Remove(2)

	var ids []int
	a.Each(func(id int, v int) {
		ids = append(ids, id)
		if v != id*10 {
			t.Errorf("entry %d = %d", id, v)
		}
	})
	want := []int{1, 3, 4}
	if len(ids) != len(want) {
		t.Fatalf("Each visited %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Each visited %v, want %v", ids, want)
		}
	}
}
