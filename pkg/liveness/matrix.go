// Package liveness maintains the live-register matrix of a machine
// function: a total order of program points over its instructions, one
// live interval per virtual register, and the authoritative map from
// virtual registers to their metadata. Edits to the function that must
// keep this bookkeeping in sync go through an Editor.
package liveness

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/btree"
	"github.com/raymyers/ralph-ra/pkg/arena"
	"github.com/raymyers/ralph-ra/pkg/machine"
	"github.com/xlab/treeprint"
)

var (
	// ErrNoDefinition is returned when a register has an empty def list
	ErrNoDefinition = errors.New("register has no definition")

	// ErrAmbiguousProgramPoint is returned when two distinct instructions
	// share a program point, breaking the total order
	ErrAmbiguousProgramPoint = errors.New("ambiguous program point")
)

// pointGap is the initial distance between consecutive program points.
// Insertions take the midpoint of a gap; exhausted gaps trigger a renumber.
const pointGap = 16

// ProgramPoint totally orders the instructions of a function
type ProgramPoint int64

// LiveRange is a closed span of program points
type LiveRange struct {
	Start ProgramPoint
	End   ProgramPoint
}

func (r LiveRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// Contains reports whether p lies within the range
func (r LiveRange) Contains(p ProgramPoint) bool {
	return r.Start <= p && p <= r.End
}

// Overlaps reports whether two ranges share a point
func (r LiveRange) Overlaps(o LiveRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// AdjustEndToStart collapses the range onto its start
func (r *LiveRange) AdjustEndToStart() {
	r.End = r.Start
}

// ShrinkTo sets the end of the range to p
func (r *LiveRange) ShrinkTo(p ProgramPoint) {
	if p < r.Start {
		r.Start = p
	}
	r.End = p
}

func (r *LiveRange) extend(p ProgramPoint) {
	if p < r.Start {
		r.Start = p
	}
	if p > r.End {
		r.End = p
	}
}

// LiveInterval is the span over which a virtual register occupies a register
type LiveInterval struct {
	VReg  machine.VReg
	Range LiveRange
}

type pointEntry struct {
	pt    ProgramPoint
	instr machine.InstrID
}

func pointLess(a, b pointEntry) bool { return a.pt < b.pt }

// LiveRegMatrix is the liveness state of one function
type LiveRegMatrix struct {
	fn         *machine.Function
	points     *btree.BTreeG[pointEntry]
	instrPoint map[machine.InstrID]ProgramPoint
	intervals  map[machine.VReg]*LiveInterval
	entities   map[machine.VReg]*machine.RegInfo
}

func newMatrix(fn *machine.Function) *LiveRegMatrix {
	return &LiveRegMatrix{
		fn:         fn,
		points:     btree.NewG[pointEntry](8, pointLess),
		instrPoint: make(map[machine.InstrID]ProgramPoint),
		intervals:  make(map[machine.VReg]*LiveInterval),
		entities:   make(map[machine.VReg]*machine.RegInfo),
	}
}

// Compute numbers the instructions of fn and builds one interval per
// virtual register from block-level liveness
func Compute(fn *machine.Function) (*LiveRegMatrix, error) {
	m := newMatrix(fn)
	m.number()
	for _, info := range fn.Regs.All() {
		m.entities[info.VReg] = info
	}
	if err := m.buildIntervals(); err != nil {
		return nil, err
	}
	return m, nil
}

// Function returns the function this matrix describes
func (m *LiveRegMatrix) Function() *machine.Function {
	return m.fn
}

// number assigns evenly spaced points in layout order
func (m *LiveRegMatrix) number() {
	m.points.Clear(false)
	m.instrPoint = make(map[machine.InstrID]ProgramPoint)
	next := ProgramPoint(pointGap)
	for _, bb := range m.fn.Blocks() {
		for _, id := range bb.Instrs {
			m.setPoint(id, next)
			next += pointGap
		}
	}
}

func (m *LiveRegMatrix) setPoint(id machine.InstrID, p ProgramPoint) {
	m.instrPoint[id] = p
	m.points.ReplaceOrInsert(pointEntry{pt: p, instr: id})
}

// renumber respaces every point and remaps interval bounds with them
func (m *LiveRegMatrix) renumber() {
	old := m.instrPoint
	m.number()
	remap := make(map[ProgramPoint]ProgramPoint, len(old))
	for id, p := range old {
		remap[p] = m.instrPoint[id]
	}
	for _, iv := range m.intervals {
		iv.Range.Start = remap[iv.Range.Start]
		iv.Range.End = remap[iv.Range.End]
	}
}

type regSet map[machine.VReg]bool

func (m *LiveRegMatrix) buildIntervals() error {
	blocks := m.fn.Blocks()
	use := make(map[machine.BlockID]regSet, len(blocks))
	def := make(map[machine.BlockID]regSet, len(blocks))

	for _, bb := range blocks {
		u, d := regSet{}, regSet{}
		for _, id := range bb.Instrs {
			instr := m.fn.MustInstr(id)
			for _, v := range instr.UsedRegs() {
				if _, ok := m.entities[v]; !ok {
					return arena.Missing("vreg", int(v))
				}
				if !d[v] {
					u[v] = true
				}
			}
			for _, v := range instr.Defs {
				if _, ok := m.entities[v]; !ok {
					return arena.Missing("vreg", int(v))
				}
				d[v] = true
			}
		}
		use[bb.ID], def[bb.ID] = u, d
	}

	// live-in = use ∪ (live-out − def), iterated backwards to a fixpoint
	liveIn := make(map[machine.BlockID]regSet, len(blocks))
	liveOut := make(map[machine.BlockID]regSet, len(blocks))
	for changed := true; changed; {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i].ID
			out := regSet{}
			for _, s := range m.fn.Successors(b) {
				for v := range liveIn[s] {
					out[v] = true
				}
			}
			in := regSet{}
			for v := range use[b] {
				in[v] = true
			}
			for v := range out {
				if !def[b][v] {
					in[v] = true
				}
			}
			// sets only grow, so a size change is the only possible change
			if len(in) != len(liveIn[b]) || len(out) != len(liveOut[b]) {
				changed = true
			}
			liveIn[b], liveOut[b] = in, out
		}
	}

	for _, bb := range blocks {
		if len(bb.Instrs) == 0 {
			continue
		}
		first := m.instrPoint[bb.Instrs[0]]
		last := m.instrPoint[bb.Instrs[len(bb.Instrs)-1]]
		for v := range liveIn[bb.ID] {
			m.extend(v, first)
		}
		for v := range liveOut[bb.ID] {
			m.extend(v, last)
		}
		for _, id := range bb.Instrs {
			p := m.instrPoint[id]
			instr := m.fn.MustInstr(id)
			for _, v := range instr.Defs {
				m.extend(v, p)
			}
			for _, v := range instr.UsedRegs() {
				m.extend(v, p)
			}
		}
	}
	return nil
}

func (m *LiveRegMatrix) extend(v machine.VReg, p ProgramPoint) {
	iv, ok := m.intervals[v]
	if !ok {
		m.intervals[v] = &LiveInterval{VReg: v, Range: LiveRange{Start: p, End: p}}
		return
	}
	iv.Range.extend(p)
}

// ProgramPoint returns the point of a linked instruction
func (m *LiveRegMatrix) ProgramPoint(id machine.InstrID) (ProgramPoint, error) {
	p, ok := m.instrPoint[id]
	if !ok {
		return 0, arena.Missing("program point", int(id))
	}
	return p, nil
}

// Compare orders two instructions: negative if a precedes b, positive if
// it follows, zero only when a == b
func (m *LiveRegMatrix) Compare(a, b machine.InstrID) (int, error) {
	pa, err := m.ProgramPoint(a)
	if err != nil {
		return 0, err
	}
	pb, err := m.ProgramPoint(b)
	if err != nil {
		return 0, err
	}
	switch {
	case pa < pb:
		return -1, nil
	case pa > pb:
		return 1, nil
	case a != b:
		return 0, fmt.Errorf("%w: instructions %d and %d at %d", ErrAmbiguousProgramPoint, a, b, pa)
	default:
		return 0, nil
	}
}

// LatestDef returns the definition of v with the greatest program point
func (m *LiveRegMatrix) LatestDef(v machine.VReg) (machine.InstrID, error) {
	info, err := m.EntityByVReg(v)
	if err != nil {
		return 0, err
	}
	if len(info.DefList) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoDefinition, v)
	}
	latest := info.DefList[0]
	if _, err := m.ProgramPoint(latest); err != nil {
		return 0, err
	}
	for _, d := range info.DefList[1:] {
		c, err := m.Compare(d, latest)
		if err != nil {
			return 0, err
		}
		if c > 0 {
			latest = d
		}
	}
	return latest, nil
}

// Interval returns the live interval of v for reading or mutation
func (m *LiveRegMatrix) Interval(v machine.VReg) (*LiveInterval, error) {
	iv, ok := m.intervals[v]
	if !ok {
		return nil, arena.Missing("live interval", int(v))
	}
	return iv, nil
}

// Intervals returns all intervals ordered by register
func (m *LiveRegMatrix) Intervals() []*LiveInterval {
	out := make([]*LiveInterval, 0, len(m.intervals))
	for _, iv := range m.intervals {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VReg < out[j].VReg })
	return out
}

// Interferes reports whether the intervals of a and b overlap
func (m *LiveRegMatrix) Interferes(a, b machine.VReg) bool {
	ia, oka := m.intervals[a]
	ib, okb := m.intervals[b]
	return oka && okb && ia.Range.Overlaps(ib.Range)
}

// AddVRegEntity registers a newly created register with the matrix
func (m *LiveRegMatrix) AddVRegEntity(info *machine.RegInfo) {
	m.entities[info.VReg] = info
}

// EntityByVReg returns the metadata the matrix holds for v
func (m *LiveRegMatrix) EntityByVReg(v machine.VReg) (*machine.RegInfo, error) {
	info, ok := m.entities[v]
	if !ok {
		return nil, arena.Missing("vreg entity", int(v))
	}
	return info, nil
}

// Tree renders the intervals with their def and use points
func (m *LiveRegMatrix) Tree() treeprint.Tree {
	tree := treeprint.NewWithRoot(m.fn.Name)
	for _, iv := range m.Intervals() {
		branch := tree.AddBranch(fmt.Sprintf("%s %s", iv.VReg, iv.Range))
		info, ok := m.entities[iv.VReg]
		if !ok {
			continue
		}
		for _, d := range info.DefList {
			if p, ok := m.instrPoint[d]; ok {
				branch.AddMetaNode("def", fmt.Sprintf("@%d", p))
			}
		}
		for _, u := range info.UseList {
			if p, ok := m.instrPoint[u]; ok {
				branch.AddMetaNode("use", fmt.Sprintf("@%d", p))
			}
		}
	}
	return tree
}
