// Package mem2reg promotes stack slots to SSA values.
//
// Only allocas stored exactly once are rewritten: every load that provably
// observes the single store is replaced by the stored value. Allocas whose
// uses all sit in one block are recognized but left alone; general
// multi-store promotion with phi placement is not implemented.
//
// The pass never fails. Anything it cannot prove safe is left untouched,
// and running it twice changes nothing the second time.
package mem2reg

import (
	"io"
	"log/slog"

	"github.com/raymyers/ralph-ra/pkg/ir"
)

// Stats counts what a run saw and changed
type Stats struct {
	Allocas        int // allocas scanned
	Promotable     int // every user is a load or store of the slot
	SingleStore    int // promotable and stored exactly once
	SingleBlock    int // promotable, several stores, all users in one block
	AllocasRemoved int
	StoresRemoved  int
	LoadsRemoved   int
}

// Add accumulates o into s
func (s *Stats) Add(o Stats) {
	s.Allocas += o.Allocas
	s.Promotable += o.Promotable
	s.SingleStore += o.SingleStore
	s.SingleBlock += o.SingleBlock
	s.AllocasRemoved += o.AllocasRemoved
	s.StoresRemoved += o.StoresRemoved
	s.LoadsRemoved += o.LoadsRemoved
}

// Changed reports whether the run rewrote anything
func (s Stats) Changed() bool {
	return s.AllocasRemoved+s.StoresRemoved+s.LoadsRemoved > 0
}

// Option configures a Promoter
type Option func(*Promoter)

// WithLogger sets the logger used for per-alloca debug output
func WithLogger(l *slog.Logger) Option {
	return func(p *Promoter) { p.log = l }
}

// Promoter runs memory-to-register promotion
type Promoter struct {
	log *slog.Logger
}

// New creates a Promoter
func New(opts ...Option) *Promoter {
	p := &Promoter{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunOnModule promotes allocas in every function of m
func (p *Promoter) RunOnModule(m *ir.Module) Stats {
	var total Stats
	for _, fn := range m.Functions {
		total.Add(p.RunOnFunction(fn))
	}
	return total
}

// RunOnFunction promotes allocas in fn. It is a single linear pass: each
// substitution replaces a used value with its producer, so nothing needs
// revisiting afterwards.
func (p *Promoter) RunOnFunction(fn *ir.Function) Stats {
	r := &functionRun{
		fn:    fn,
		index: newPositionIndex(),
		log:   p.log.With("func", fn.Name),
	}
	return r.run()
}

type functionRun struct {
	fn    *ir.Function
	index *positionIndex
	dom   *ir.DomTree
	log   *slog.Logger
	stats Stats
}

func (r *functionRun) run() Stats {
	var singleStore, singleBlock []ir.InstID

	for _, bb := range r.fn.Blocks() {
		for _, id := range bb.Insts {
			inst := r.fn.MustInst(id)
			if inst.Op != ir.Alloca {
				continue
			}
			r.stats.Allocas++

			promotable := r.isPromotable(inst)
			storedOnce := r.isStoredOnce(inst)
			oneBlock := r.isOnlyUsedInSingleBlock(inst)
			r.log.Debug("classify alloca", "alloca", ir.Inst{ID: id},
				"promotable", promotable, "single_store", storedOnce, "single_block", oneBlock)

			if !promotable {
				continue
			}
			r.stats.Promotable++
			if storedOnce {
				singleStore = append(singleStore, id)
				continue
			}
			if oneBlock {
				singleBlock = append(singleBlock, id)
			}
		}
	}
	r.stats.SingleStore = len(singleStore)
	r.stats.SingleBlock = len(singleBlock)

	for _, id := range singleStore {
		r.promoteSingleStore(id)
	}
	// TODO: rewrite singleBlock allocas by walking the block in order and
	// forwarding the most recent store to each load.

	return r.stats
}

// isPromotable reports whether every user is a load from, or a store to,
// the alloca. A store of the slot's address as a value lets it escape.
func (r *functionRun) isPromotable(alloca *ir.Instruction) bool {
	slot := ir.Inst{ID: alloca.ID}
	for _, u := range alloca.Users() {
		user := r.fn.MustInst(u)
		switch user.Op {
		case ir.Load:
			if user.Operands[0] != slot {
				return false
			}
		case ir.Store:
			if user.Operands[0] == slot || user.Operands[1] != slot {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (r *functionRun) isStoredOnce(alloca *ir.Instruction) bool {
	stores := 0
	for _, u := range alloca.Users() {
		if r.fn.MustInst(u).Op == ir.Store {
			stores++
		}
	}
	return stores == 1
}

func (r *functionRun) isOnlyUsedInSingleBlock(alloca *ir.Instruction) bool {
	var last ir.BlockID
	for _, u := range alloca.Users() {
		user := r.fn.MustInst(u)
		if last != 0 && last != user.Parent {
			return false
		}
		last = user.Parent
	}
	return true
}

type pendingLoad struct {
	id    ir.InstID
	users []ir.InstID
}

func (r *functionRun) promoteSingleStore(allocaID ir.InstID) {
	alloca := r.fn.MustInst(allocaID)

	var src ir.Value
	var store *ir.Instruction
	var loads []pendingLoad
	for _, u := range alloca.Users() {
		user := r.fn.MustInst(u)
		switch user.Op {
		case ir.Store:
			store = user
			src = user.Operands[0]
		case ir.Load:
			loads = append(loads, pendingLoad{id: u, users: user.Users()})
		}
	}

	allRemovable := true
	kept := loads[:0]
	for _, l := range loads {
		if r.storeReaches(store, r.fn.MustInst(l.id)) {
			kept = append(kept, l)
		} else {
			allRemovable = false
		}
	}
	loads = kept

	if allRemovable {
		r.fn.RemoveInst(store.ID)
		r.fn.RemoveInst(allocaID)
		r.stats.StoresRemoved++
		r.stats.AllocasRemoved++
	}

	for _, l := range loads {
		for _, u := range l.users {
			r.fn.ReplaceOperand(u, ir.Inst{ID: l.id}, src)
		}
		r.fn.RemoveInst(l.id)
		r.stats.LoadsRemoved++
	}

	r.log.Debug("promoted single-store alloca", "alloca", ir.Inst{ID: allocaID},
		"value", src, "loads_replaced", len(loads), "removed", allRemovable)
}

// storeReaches reports whether load certainly executes after store. In the
// same block that is position order; across blocks the store's block must
// strictly dominate the load's block.
func (r *functionRun) storeReaches(store, load *ir.Instruction) bool {
	if store.Parent == load.Parent {
		return r.index.get(r.fn, store.ID) < r.index.get(r.fn, load.ID)
	}
	if r.dom == nil {
		r.dom = ir.Dominators(r.fn)
	}
	return r.dom.StrictlyDominates(store.Parent, load.Parent)
}
