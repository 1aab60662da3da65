package liveness

import (
	"sort"

	"github.com/raymyers/ralph-ra/pkg/machine"
)

type regSetOf map[machine.VReg]struct{}

// InterferenceGraph records which registers may not share a physical
// register. Preference edges join the two sides of a copy.
type InterferenceGraph struct {
	edges map[machine.VReg]regSetOf
	prefs map[machine.VReg]regSetOf
}

// NewInterferenceGraph creates an empty graph
func NewInterferenceGraph() *InterferenceGraph {
	return &InterferenceGraph{
		edges: make(map[machine.VReg]regSetOf),
		prefs: make(map[machine.VReg]regSetOf),
	}
}

// AddNode adds a register with no edges
func (g *InterferenceGraph) AddNode(r machine.VReg) {
	if g.edges[r] == nil {
		g.edges[r] = regSetOf{}
	}
	if g.prefs[r] == nil {
		g.prefs[r] = regSetOf{}
	}
}

// AddEdge records that a and b interfere
func (g *InterferenceGraph) AddEdge(a, b machine.VReg) {
	if a == b {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	g.edges[a][b] = struct{}{}
	g.edges[b][a] = struct{}{}
}

// AddPreference records that a and b would like the same register
func (g *InterferenceGraph) AddPreference(a, b machine.VReg) {
	if a == b {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	g.prefs[a][b] = struct{}{}
	g.prefs[b][a] = struct{}{}
}

// HasEdge reports whether a and b interfere
func (g *InterferenceGraph) HasEdge(a, b machine.VReg) bool {
	_, ok := g.edges[a][b]
	return ok
}

// Degree returns the number of neighbors of r
func (g *InterferenceGraph) Degree(r machine.VReg) int {
	return len(g.edges[r])
}

// Neighbors returns the registers interfering with r, in order
func (g *InterferenceGraph) Neighbors(r machine.VReg) []machine.VReg {
	return sortedRegs(g.edges[r])
}

// Nodes returns every register in the graph, in order
func (g *InterferenceGraph) Nodes() []machine.VReg {
	out := make([]machine.VReg, 0, len(g.edges))
	for r := range g.edges {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MoveRelated reports whether r is the source or target of a copy
func (g *InterferenceGraph) MoveRelated(r machine.VReg) bool {
	return len(g.prefs[r]) > 0
}

// RemoveNode drops r and all its edges
func (g *InterferenceGraph) RemoveNode(r machine.VReg) {
	for n := range g.edges[r] {
		delete(g.edges[n], r)
	}
	for n := range g.prefs[r] {
		delete(g.prefs[n], r)
	}
	delete(g.edges, r)
	delete(g.prefs, r)
}

func sortedRegs(s regSetOf) []machine.VReg {
	out := make([]machine.VReg, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BuildInterference derives the graph from the matrix intervals. A
// register whose last use is an instruction does not interfere with a
// register that instruction defines; two registers defined at the same
// point always do.
func BuildInterference(m *LiveRegMatrix) *InterferenceGraph {
	g := NewInterferenceGraph()
	ivs := m.Intervals()
	sort.SliceStable(ivs, func(i, j int) bool { return ivs[i].Range.Start < ivs[j].Range.Start })

	var active []*LiveInterval
	for _, iv := range ivs {
		g.AddNode(iv.VReg)
		kept := active[:0]
		for _, a := range active {
			if a.Range.End > iv.Range.Start || a.Range.Start == iv.Range.Start {
				g.AddEdge(a.VReg, iv.VReg)
				kept = append(kept, a)
			} else if a.Range.End == iv.Range.Start {
				// touching intervals stay active for later starts at the same point
				kept = append(kept, a)
			}
		}
		active = append(kept, iv)
	}

	for _, bb := range m.fn.Blocks() {
		for _, id := range bb.Instrs {
			instr := m.fn.MustInstr(id)
			if instr.Opcode != machine.OpCopy || len(instr.Defs) != 1 || len(instr.Operands) != 1 {
				continue
			}
			if src, ok := instr.Operands[0].(machine.Reg); ok {
				g.AddPreference(instr.Defs[0], src.R)
			}
		}
	}
	return g
}
