// Package arena provides the handle-indexed storage used by both IRs.
// Entries are never moved; removing one leaves a tombstone so that every
// other handle stays valid for the lifetime of the arena.
package arena

import (
	"errors"
	"fmt"
)

// ErrMissingEntity is returned when a handle has no live backing entry.
// It signals a violated structural invariant upstream and is never retried.
var ErrMissingEntity = errors.New("missing entity")

// MissingError records which handle was dereferenced
type MissingError struct {
	Kind string
	ID   int
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s %d", ErrMissingEntity, e.Kind, e.ID)
}

func (e *MissingError) Unwrap() error { return ErrMissingEntity }

// Missing builds a MissingError for the given kind and handle
func Missing(kind string, id int) error {
	return &MissingError{Kind: kind, ID: id}
}

// Arena stores values of type T under dense integer handles.
// Handle 0 is never issued so that the zero value can mean "none".
type Arena[T any] struct {
	kind  string
	slots []T
	live  []bool
}

// New creates an empty arena. kind names the entity in error messages.
func New[T any](kind string) *Arena[T] {
	var zero T
	return &Arena[T]{
		kind:  kind,
		slots: []T{zero},
		live:  []bool{false},
	}
}

// Alloc stores v and returns its handle
func (a *Arena[T]) Alloc(v T) int {
	a.slots = append(a.slots, v)
	a.live = append(a.live, true)
	return len(a.slots) - 1
}

// Get returns the entry for id, or a MissingError
func (a *Arena[T]) Get(id int) (T, error) {
	if !a.Contains(id) {
		var zero T
		return zero, Missing(a.kind, id)
	}
	return a.slots[id], nil
}

// MustGet is Get for callers that hold a handle by construction.
// It panics on a missing entry.
func (a *Arena[T]) MustGet(id int) T {
	v, err := a.Get(id)
	if err != nil {
		panic(err)
	}
	return v
}

// Contains reports whether id refers to a live entry
func (a *Arena[T]) Contains(id int) bool {
	return id > 0 && id < len(a.slots) && a.live[id]
}

// Remove tombstones id. The handle is never reissued.
func (a *Arena[T]) Remove(id int) error {
	if !a.Contains(id) {
		return Missing(a.kind, id)
	}
	var zero T
	a.slots[id] = zero
	a.live[id] = false
	return nil
}

// Len returns the number of live entries
func (a *Arena[T]) Len() int {
	n := 0
	for _, l := range a.live {
		if l {
			n++
		}
	}
	return n
}

// Each calls fn for every live entry in handle order
func (a *Arena[T]) Each(fn func(id int, v T)) {
	for id := 1; id < len(a.slots); id++ {
		if a.live[id] {
			fn(id, a.slots[id])
		}
	}
}
