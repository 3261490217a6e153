// Package reserve implements the reservation algorithm of spec.md §4.3:
// given a register class and an allowed set, pick which register to hand
// a client, lazily reusing an un-restored register where possible and
// falling back to spilling the least-used live register.
package reserve

import (
	"github.com/dbicore/regcore/internal/flagsengine"
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/liveness"
	"github.com/dbicore/regcore/internal/regstate"
	"github.com/dbicore/regcore/internal/slotstore"
	"github.com/dbicore/regcore/internal/spillemit"
	"github.com/dbicore/regcore/internal/status"
)

// Reserver picks registers on behalf of instrumentation clients.
type Reserver struct {
	layout       instr.Layout
	table        *regstate.Table
	slots        *slotstore.SlotStore
	flags        *flagsengine.Engine
	conservative bool

	host hostabi.HostScratchSlots
	pred hostabi.PredicateState
}

// New builds a Reserver over the per-thread state shared with the rest of
// the mediator.
func New(layout instr.Layout, table *regstate.Table, slots *slotstore.SlotStore, flags *flagsengine.Engine) *Reserver {
	return &Reserver{layout: layout, table: table, slots: slots, flags: flags}
}

// SetConservative toggles the "always spill, even when the selected
// register is dead" mode referenced by spec.md §4.3.
func (r *Reserver) SetConservative(v bool) { r.conservative = v }

// SetHostScratchSlots attaches the host's delegated scratch-slot accessor,
// enabling direct-GPR-slot overflow to fall back to host-slot delegation
// (spec.md §3 invariant 4) instead of failing with OutOfSlots.
func (r *Reserver) SetHostScratchSlots(host hostabi.HostScratchSlots) { r.host = host }

// SetPredicateState attaches the host's auto-predicate accessor, forcing
// every multi-instruction spill/restore batch this Reserver emits to be
// unconditional (spec.md §9).
func (r *Reserver) SetPredicateState(pred hostabi.PredicateState) { r.pred = pred }

func (r *Reserver) emitter() spillemit.Emitter {
	return spillemit.Emitter{HiddenSlot: r.slots.HiddenSlot(), Scratch: r.layout.StolenGPR, Host: r.host, Pred: r.pred}
}

// Reserve implements the public `reserve(class, allowed_set, only_if_free)`
// contract. pos indexes vec, the block's precomputed LivenessVectors; vec
// may be nil when reserving outside block-insertion (forward-scan values
// should already have been folded into the caller's liveness arguments in
// that case — see internal/liveness/forward.go).
func (r *Reserver) Reserve(class instr.RegClass, allowed []instr.Reg, onlyIfFree bool, pos int, vec *liveness.Vectors) (instr.Reg, []instr.Emitted, status.Status) {
	if class != instr.GPR {
		// spec.md Non-goals: full 256/512-bit SIMD preservation is out of
		// scope; only the 128-bit xmm subclass is ever allocatable.
		if class != instr.SIMDXMM {
			return regstate.NoReg, nil, status.FeatureNotAvailable
		}
	}
	if len(allowed) == 0 {
		return regstate.NoReg, nil, status.InvalidParameter
	}

	if reg, ok := r.reuseUnrestored(class, allowed, pos, vec, onlyIfFree); ok {
		r.table.Reclaim(class, reg)
		return reg, nil, status.Success
	}

	if reg, ok := r.pickDead(class, allowed, pos, vec); ok {
		return r.finish(class, reg, false)
	}

	if !onlyIfFree {
		if reg, ok := r.pickLeastUsedLive(class, allowed, vec); ok {
			return r.finish(class, reg, true)
		}

		if class == instr.GPR && r.flags != nil && r.flags.AccumulatorHeld() && contains(allowed, r.layout.Accumulator) {
			emitted := r.flags.Evict()
			reg, _, st := r.finish(class, r.layout.Accumulator, false)
			if st != status.Success {
				return regstate.NoReg, nil, st
			}
			return reg, emitted, status.Success
		}
	}

	return regstate.NoReg, nil, status.RegConflict
}

func (r *Reserver) finish(class instr.RegClass, reg instr.Reg, live bool) (instr.Reg, []instr.Emitted, status.Status) {
	slot, isHost, err := r.allocSlot(class)
	if err != status.Success {
		return regstate.NoReg, nil, err
	}
	if isHost {
		r.table.ReserveHost(class, reg, slot)
	} else {
		r.table.Reserve(class, reg, slot)
	}

	if live || r.conservative {
		emitted := r.spill(class, reg, slot, isHost)
		r.table.MarkSpilled(class, reg)
		return reg, emitted, status.Success
	}
	return reg, nil, status.Success
}

// allocSlot picks a backing slot for class. GPR slots fall back to
// host-slot delegation (spec.md §3 invariant 4) when the direct array is
// exhausted and a host scratch-slot accessor is attached; SIMD slots have
// no such fallback, matching spec.md's "direct GPR slots" wording.
func (r *Reserver) allocSlot(class instr.RegClass) (slot int, isHost bool, st status.Status) {
	if class == instr.GPR {
		slot, err := r.slots.AllocDirect()
		if err == nil {
			return slot, false, status.Success
		}
		if r.host == nil {
			return 0, false, status.OutOfSlots
		}
		return r.slots.AllocHostSlot(), true, status.Success
	}
	slot, err := r.slots.AllocSIMD()
	if err != nil {
		return 0, false, status.OutOfSlots
	}
	return slot, false, status.Success
}

func (r *Reserver) spill(class instr.RegClass, reg instr.Reg, slot int, isHostSlot bool) []instr.Emitted {
	// The scratch GPR used to hold the indirect SIMD block's pointer is the
	// host's stolen register, which the reservation algorithm never hands
	// out to clients (spec.md §4.3 step 2).
	return r.emitter().Spill(class, reg, slot, isHostSlot)
}

// reuseUnrestored implements step 1: reclaim any register the client
// previously unreserved but which has not yet been lazily restored.
func (r *Reserver) reuseUnrestored(class instr.RegClass, allowed []instr.Reg, pos int, vec *liveness.Vectors, onlyIfFree bool) (instr.Reg, bool) {
	if r.table.PendingUnreserved() == 0 {
		return regstate.NoReg, false
	}
	for _, reg := range allowed {
		s := r.table.Get(class, reg)
		if s.Native || s.InUse {
			continue
		}
		if onlyIfFree && vec != nil && class == instr.GPR && vec.GPRAt(reg, pos) != liveness.Dead {
			continue
		}
		return reg, true
	}
	return regstate.NoReg, false
}

// pickDead implements step 2: the first allowed register that is dead at
// the current position, skipping registers the layout reserves.
func (r *Reserver) pickDead(class instr.RegClass, allowed []instr.Reg, pos int, vec *liveness.Vectors) (instr.Reg, bool) {
	if vec == nil {
		return regstate.NoReg, false
	}
	for _, reg := range allowed {
		if r.layout.Reserved(reg) {
			continue
		}
		if r.table.Get(class, reg).InUse {
			continue
		}
		dead := false
		if class == instr.GPR {
			dead = vec.GPRAt(reg, pos) == liveness.Dead
		} else {
			dead = !vec.SIMDAt(reg, pos).IsLive()
		}
		if dead {
			return reg, true
		}
	}
	return regstate.NoReg, false
}

// pickLeastUsedLive implements step 3: the allowed, not-in-use register
// with the lowest app-read count across the block.
func (r *Reserver) pickLeastUsedLive(class instr.RegClass, allowed []instr.Reg, vec *liveness.Vectors) (instr.Reg, bool) {
	if vec == nil || class != instr.GPR {
		// Use-count tracking is only modeled for GPRs (spec.md §4.3 step 3
		// speaks of "app-use count per register"; SIMD has no equivalent
		// tie-break defined and falls straight through to RegConflict).
		return regstate.NoReg, false
	}
	best := regstate.NoReg
	bestCount := -1
	for _, reg := range allowed {
		if r.layout.Reserved(reg) {
			continue
		}
		if r.table.Get(class, reg).InUse {
			continue
		}
		c := vec.UseCount(reg)
		if bestCount == -1 || c < bestCount {
			best, bestCount = reg, c
		}
	}
	if best == regstate.NoReg {
		return regstate.NoReg, false
	}
	return best, true
}

func contains(set []instr.Reg, r instr.Reg) bool {
	for _, x := range set {
		if x == r {
			return true
		}
	}
	return false
}
