// Package spillemit emits the spill/restore instruction pairs described in
// spec.md §4.2: direct TLS moves for GPRs, and the two-instruction
// indirect-through-pointer sequence for SIMD registers. Both Reserver and
// InsertionDriver emit through this package so the exact instruction
// shapes FaultRewriter later recognises are produced in exactly one place.
package spillemit

import (
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
)

// Emitter bundles the per-thread context needed to choose between direct,
// indirect, and host-delegated emission shapes, and to force a batch
// unconditional. Reserver and InsertionDriver each hold one, built from
// their thread's SlotStore/host/predicate wiring, so every call site shares
// the exact same shape-selection logic (package doc: "produced in exactly
// one place").
type Emitter struct {
	HiddenSlot int       // SlotStore.HiddenSlot(): direct slot holding the SIMD block pointer.
	Scratch    instr.Reg // GPR used to hold that pointer while it's loaded (the host's stolen register).

	// Host, when non-nil, resolves a host-delegated slot index to a real
	// offset (spec.md §3 invariant 4). Nil means this thread has no host
	// scratch-slot accessor attached, so host delegation is unavailable.
	Host hostabi.HostScratchSlots

	// Pred, when non-nil, is saved/forced-unconditional/restored around
	// every emission batch of more than one instruction (spec.md §9).
	Pred hostabi.PredicateState
}

// Spill emits the sequence that writes reg's current value to slot. For a
// host-delegated GPR slot this is a single HostSlotSpill; for an ordinary
// direct GPR slot, one DirectSpill; for SIMD, the load-pointer-then-move
// pair through the indirect block, wrapped unconditional when Pred is set.
func (e Emitter) Spill(class instr.RegClass, reg instr.Reg, slot int, isHostSlot bool) []instr.Emitted {
	if class == instr.GPR {
		if isHostSlot {
			return HostSlotSpill(reg, e.Host.Offset(slot))
		}
		return []instr.Emitted{instr.DirectSpill{Reg: reg, Slot: slot}}
	}
	return e.Unconditional(func() []instr.Emitted {
		return []instr.Emitted{
			instr.IndirectLoadPtr{Scratch: e.Scratch, HidSlot: e.HiddenSlot},
			instr.IndirectSpill{SIMDReg: reg, Scratch: e.Scratch, Slot: slot},
		}
	})
}

// Restore is the inverse of Spill.
func (e Emitter) Restore(class instr.RegClass, reg instr.Reg, slot int, isHostSlot bool) []instr.Emitted {
	if class == instr.GPR {
		if isHostSlot {
			return HostSlotRestore(reg, e.Host.Offset(slot))
		}
		return []instr.Emitted{instr.DirectRestore{Reg: reg, Slot: slot}}
	}
	return e.Unconditional(func() []instr.Emitted {
		return []instr.Emitted{
			instr.IndirectLoadPtr{Scratch: e.Scratch, HidSlot: e.HiddenSlot},
			instr.IndirectRestore{SIMDReg: reg, Scratch: e.Scratch, Slot: slot},
		}
	})
}

// Unconditional wraps a composite, multi-call emission batch (e.g. the
// InsertionDriver's temp-slot sandwich) so it runs as one atomic,
// unconditional unit. A nil Pred makes this a no-op passthrough, matching
// threads that never had a host predicate accessor attached.
func (e Emitter) Unconditional(emit func() []instr.Emitted) []instr.Emitted {
	if e.Pred == nil {
		return emit()
	}
	return WithUnconditional(e.Pred, emit)
}

// HostSlotSpill/HostSlotRestore address one of the host framework's own
// non-preserved scratch slots (spec.md §4.2), used when a reservation is
// delegated beyond num_direct_slots.
func HostSlotSpill(reg instr.Reg, hostOffset int) []instr.Emitted {
	return []instr.Emitted{instr.HostSlotSpill{Reg: reg, HostOffset: hostOffset}}
}

func HostSlotRestore(reg instr.Reg, hostOffset int) []instr.Emitted {
	return []instr.Emitted{instr.HostSlotRestore{Reg: reg, HostOffset: hostOffset}}
}

// WithUnconditional wraps an emission batch with a save/restore of the
// host's auto-predicate state, so spill/restore sequences are never
// accidentally predicated by instrumentation auto-predication (spec.md §9:
// "the core must force emitted spill/restore instructions to be
// unconditional by saving and restoring the auto-predicate state around
// every emission batch").
func WithUnconditional(pred hostabi.PredicateState, emit func() []instr.Emitted) []instr.Emitted {
	saved := pred.Save()
	pred.ForceUnconditional()
	out := emit()
	pred.Restore(saved)
	return out
}
