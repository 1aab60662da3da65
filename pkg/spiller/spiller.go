// Package spiller demotes a virtual register to a stack slot.
//
// Spilling v stores it once, right after its latest definition, and
// gives every read of v its own fresh register loaded from the slot just
// before the read. The fresh registers have the shortest possible live
// ranges and are handed back to the allocator to try again.
package spiller

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/raymyers/ralph-ra/pkg/frame"
	"github.com/raymyers/ralph-ra/pkg/liveness"
	"github.com/raymyers/ralph-ra/pkg/machine"
)

// Option configures a Spiller
type Option func(*Spiller)

// WithLogger sets the logger used for per-spill debug output
func WithLogger(l *slog.Logger) Option {
	return func(s *Spiller) { s.log = l }
}

// Spiller rewrites one function. It holds the function and its matrix
// exclusively for as long as it is used.
type Spiller struct {
	fn     *machine.Function
	matrix *liveness.LiveRegMatrix
	log    *slog.Logger
}

// New creates a spiller over fn and the matrix computed for it
func New(fn *machine.Function, matrix *liveness.LiveRegMatrix, opts ...Option) *Spiller {
	s := &Spiller{
		fn:     fn,
		matrix: matrix,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Spill moves v to a fresh frame slot and returns the registers created
// for its reloads, one per former use, in use-list order
func (s *Spiller) Spill(v machine.VReg) ([]machine.VReg, error) {
	info, err := s.matrix.EntityByVReg(v)
	if err != nil {
		return nil, fmt.Errorf("spill %s: %w", v, err)
	}
	// resolve everything that can fail before touching the function
	def, err := s.matrix.LatestDef(v)
	if err != nil {
		return nil, fmt.Errorf("spill %s: %w", v, err)
	}
	defPoint, err := s.matrix.ProgramPoint(def)
	if err != nil {
		return nil, fmt.Errorf("spill %s: %w", v, err)
	}
	interval, err := s.matrix.Interval(v)
	if err != nil {
		return nil, fmt.Errorf("spill %s: %w", v, err)
	}
	for _, u := range info.UseList {
		if _, err := s.matrix.ProgramPoint(u); err != nil {
			return nil, fmt.Errorf("spill %s: use: %w", v, err)
		}
	}

	slot := s.fn.Frame.Alloc(info.Ty)
	interval.Range.ShrinkTo(defPoint)

	regs, err := s.insertReloads(info, slot)
	if err != nil {
		return nil, fmt.Errorf("spill %s: %w", v, err)
	}
	if err := s.insertEvict(info, def, slot); err != nil {
		return nil, fmt.Errorf("spill %s: %w", v, err)
	}

	s.log.Debug("spilled", "vreg", v.String(), "slot", slot.String(), "reloads", len(regs), "evict_after", int(def))
	return regs, nil
}

// insertReloads gives each use of r its own register, loaded from slot
// immediately before the use, and leaves r with no uses
func (s *Spiller) insertReloads(r *machine.RegInfo, slot frame.FrameIndexInfo) ([]machine.VReg, error) {
	uses := append([]machine.InstrID(nil), r.UseList...)
	regs := make([]machine.VReg, 0, len(uses))
	ed := liveness.NewEditor(s.matrix)

	for _, use := range uses {
		user, err := s.fn.Instr(use)
		if err != nil {
			return regs, err
		}
		nv := s.fn.Regs.Gen(r.Ty)
		ninfo := s.fn.Regs.MustInfo(nv)
		s.matrix.AddVRegEntity(ninfo)
		regs = append(regs, nv)

		user.ReplaceOperandReg(r.VReg, nv)
		ninfo.AddUse(use)

		load := machine.NewInstr(machine.OpLoad, []machine.Operand{machine.FrameIndex{Slot: slot}}, user.Parent).WithDefs(nv)
		id := s.fn.Alloc(load)
		ninfo.AddDef(id)

		if err := ed.SetInsertPointBefore(use); err != nil {
			return regs, err
		}
		if err := ed.Insert(id); err != nil {
			return regs, err
		}
	}
	r.UseList = r.UseList[:0]
	return regs, nil
}

// insertEvict stores r to slot right after def. The store's read of r
// is not recorded as a use: r is dead to the allocator past def.
func (s *Spiller) insertEvict(r *machine.RegInfo, def machine.InstrID, slot frame.FrameIndexInfo) error {
	d, err := s.fn.Instr(def)
	if err != nil {
		return err
	}
	store := machine.NewInstr(machine.OpStore, []machine.Operand{machine.FrameIndex{Slot: slot}, machine.Reg{R: r.VReg}}, d.Parent)
	id := s.fn.Alloc(store)

	ed := liveness.NewEditor(s.matrix)
	if err := ed.SetInsertPointAfter(def); err != nil {
		return err
	}
	return ed.Insert(id)
}
