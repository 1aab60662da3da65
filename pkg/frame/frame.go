// Package frame manages the stack slots of a machine function.
// Slots are allocated on demand, one per request, and never freed or
// shared; Layout turns them into concrete frame-pointer offsets.
package frame

import (
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/types"
)

const stackAlignment = 16 // x86-64 SysV keeps RSP 16-byte aligned at calls

// FrameIndex identifies a stack slot
type FrameIndex int

// FrameIndexInfo describes one slot: its index and the type it holds
type FrameIndexInfo struct {
	Index FrameIndex
	Ty    types.Type
}

func (fi FrameIndexInfo) String() string {
	return fmt.Sprintf("fi#%d", fi.Index)
}

// Size returns the slot size in bytes
func (fi FrameIndexInfo) Size() int64 {
	return fi.Ty.Size()
}

// LocalManager allocates stack slots for one function
type LocalManager struct {
	slots []FrameIndexInfo
}

// NewLocalManager creates an empty local manager
func NewLocalManager() *LocalManager {
	return &LocalManager{}
}

// Alloc reserves a fresh slot sized to ty
func (m *LocalManager) Alloc(ty types.Type) FrameIndexInfo {
	fi := FrameIndexInfo{Index: FrameIndex(len(m.slots)), Ty: ty}
	m.slots = append(m.slots, fi)
	return fi
}

// Slots returns all slots in allocation order
func (m *LocalManager) Slots() []FrameIndexInfo {
	return append([]FrameIndexInfo(nil), m.slots...)
}

// Len returns the number of allocated slots
func (m *LocalManager) Len() int {
	return len(m.slots)
}

// Layout is the concrete placement of slots below the frame pointer:
//
//	+---------------------------+  <- FP
//	| slot 0                    |  Offsets[0] (negative)
//	| slot 1                    |
//	| ...                       |
//	+---------------------------+  <- FP - Size (16-byte aligned)
type Layout struct {
	Offsets map[FrameIndex]int64
	Size    int64
}

// Layout assigns each slot a naturally aligned, negative offset from the
// frame pointer in allocation order
func (m *LocalManager) Layout() *Layout {
	l := &Layout{Offsets: make(map[FrameIndex]int64, len(m.slots))}
	var end int64
	for _, fi := range m.slots {
		end = alignUp(end+fi.Size(), fi.Ty.Align())
		l.Offsets[fi.Index] = -end
	}
	l.Size = alignUp(end, stackAlignment)
	return l
}

// Offset returns the frame-pointer offset of a slot
func (l *Layout) Offset(fi FrameIndex) (int64, bool) {
	off, ok := l.Offsets[fi]
	return off, ok
}

// alignUp rounds n up to a multiple of align
func alignUp(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}
