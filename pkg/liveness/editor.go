package liveness

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/machine"
)

var errNoInsertPoint = errors.New("editor: insert point not set")

// Editor inserts instructions into a function while keeping the matrix
// in sync. Each Insert validates first and then links the instruction,
// assigns its program point and updates the intervals of the registers it
// defines, so no caller observes one without the others.
type Editor struct {
	m      *LiveRegMatrix
	anchor machine.InstrID
	after  bool
	set    bool
}

// NewEditor creates an editor over m and its function
func NewEditor(m *LiveRegMatrix) *Editor {
	return &Editor{m: m}
}

// SetInsertPointBefore makes subsequent inserts land immediately before id
func (e *Editor) SetInsertPointBefore(id machine.InstrID) error {
	return e.setInsertPoint(id, false)
}

// SetInsertPointAfter makes the next insert land immediately after id.
// Each insert advances the point past the inserted instruction so that a
// run of inserts keeps its order.
func (e *Editor) SetInsertPointAfter(id machine.InstrID) error {
	return e.setInsertPoint(id, true)
}

func (e *Editor) setInsertPoint(id machine.InstrID, after bool) error {
	if _, err := e.m.ProgramPoint(id); err != nil {
		return err
	}
	e.anchor, e.after, e.set = id, after, true
	return nil
}

// Insert links the allocated, unlinked instruction id at the insert point
func (e *Editor) Insert(id machine.InstrID) error {
	if !e.set {
		return errNoInsertPoint
	}
	fn := e.m.fn
	instr, err := fn.Instr(id)
	if err != nil {
		return err
	}
	if fn.IsLinked(id) {
		return fmt.Errorf("editor: instruction %d is already linked", id)
	}
	for _, v := range instr.Defs {
		if _, err := e.m.EntityByVReg(v); err != nil {
			return err
		}
	}
	if _, err := e.m.ProgramPoint(e.anchor); err != nil {
		return err
	}

	pt := e.m.pointNear(e.anchor, e.after)
	if e.after {
		err = fn.InsertAfter(e.anchor, id)
	} else {
		err = fn.InsertBefore(e.anchor, id)
	}
	if err != nil {
		return err
	}
	e.m.setPoint(id, pt)
	for _, v := range instr.Defs {
		e.m.coverDef(v, pt)
	}
	if e.after {
		e.anchor = id
	}
	return nil
}

// pointNear returns a free point directly before or after anchor,
// renumbering the function when the gap is exhausted
func (m *LiveRegMatrix) pointNear(anchor machine.InstrID, after bool) ProgramPoint {
	lo, hi := m.gapAround(anchor, after)
	if hi-lo < 2 {
		m.renumber()
		lo, hi = m.gapAround(anchor, after)
	}
	return lo + (hi-lo)/2
}

func (m *LiveRegMatrix) gapAround(anchor machine.InstrID, after bool) (lo, hi ProgramPoint) {
	pa := m.instrPoint[anchor]
	if after {
		lo, hi = pa, pa+2*pointGap
		m.points.AscendGreaterOrEqual(pointEntry{pt: pa + 1}, func(e pointEntry) bool {
			hi = e.pt
			return false
		})
		return lo, hi
	}
	lo, hi = pa-2*pointGap, pa
	m.points.DescendLessOrEqual(pointEntry{pt: pa - 1}, func(e pointEntry) bool {
		lo = e.pt
		return false
	})
	return lo, hi
}

// coverDef extends (or creates) v's interval to the new definition at p
// and to every use already recorded for v
func (m *LiveRegMatrix) coverDef(v machine.VReg, p ProgramPoint) {
	m.extend(v, p)
	info := m.entities[v]
	for _, u := range info.UseList {
		if up, ok := m.instrPoint[u]; ok {
			m.extend(v, up)
		}
	}
}
