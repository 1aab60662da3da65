// Package types defines the value types shared by the SSA IR and the machine IR.
// Only first-class scalar types exist at this level; aggregates are lowered
// to bytes before reaching the backend.
package types

import "fmt"

// Type is a scalar value type
type Type int

const (
	Void Type = iota
	I1
	I8
	I32
	I64
	F64
	Ptr
)

var typeNames = []string{"void", "i1", "i8", "i32", "i64", "f64", "ptr"}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "?"
}

// Size returns the storage size in bytes (0 for void)
func (t Type) Size() int64 {
	switch t {
	case I1, I8:
		return 1
	case I32:
		return 4
	case I64, F64, Ptr:
		return 8
	default:
		return 0
	}
}

// Align returns the natural alignment in bytes
func (t Type) Align() int64 {
	if s := t.Size(); s > 0 {
		return s
	}
	return 1
}

// IsInt reports whether t is an integer (including i1)
func (t Type) IsInt() bool {
	return t == I1 || t == I8 || t == I32 || t == I64
}

// IsFloat reports whether t is a floating-point type
func (t Type) IsFloat() bool {
	return t == F64
}

// Parse parses a type name as printed by String
func Parse(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return Void, fmt.Errorf("unknown type %q", s)
}
