// Package flagsengine implements the arithmetic-flags sub-state-machine of
// spec.md §4.4, including the "flags kept in a GPR accumulator" capture
// optimisation.
package flagsengine

import (
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/slotstore"
	"github.com/dbicore/regcore/internal/status"
)

// State is the externally observable flags state (spec.md §4.4).
type State int

const (
	Native State = iota
	InMemory
	InReg
	InRegInUse
)

func (s State) String() string {
	switch s {
	case Native:
		return "native"
	case InMemory:
		return "in_memory"
	case InReg:
		return "in_reg"
	case InRegInUse:
		return "in_reg_in_use"
	default:
		return "unknown"
	}
}

type kind int

const (
	kNative kind = iota
	kInMemory
	kInReg
)

// Engine is the per-thread flags state machine.
type Engine struct {
	layout   instr.Layout
	kind     kind
	reserved bool
}

// New builds an Engine starting in the Native state, matching RegState's
// own thread-start lifecycle (spec.md §3).
func New(layout instr.Layout) *Engine { return &Engine{layout: layout, kind: kNative} }

// State folds the internal kind/reserved pair into the four-state
// presentation spec.md §4.4 names.
func (e *Engine) State() State {
	switch e.kind {
	case kInMemory:
		return InMemory
	case kInReg:
		if e.reserved {
			return InRegInUse
		}
		return InReg
	default:
		return Native
	}
}

// IsReserved reports whether a client currently holds the flags
// reservation (as opposed to a lazily-pending unreserved capture).
func (e *Engine) IsReserved() bool { return e.reserved }

// AccumulatorHeld reports whether the accumulator register currently
// carries captured flags — the Reserver's step-4 bail-out condition
// (spec.md §4.3) checks this before evicting.
func (e *Engine) AccumulatorHeld() bool { return e.kind == kInReg }

// Reserve captures the arithmetic flags for a client. flagsDead must come
// from LivenessVectors.FlagsAt at the current position; accumulatorDead
// reports whether the layout's designated accumulator register is
// currently dead, required before the in-register optimisation may engage.
func (e *Engine) Reserve(flagsDead, accumulatorDead bool) ([]instr.Emitted, status.Status) {
	switch e.kind {
	case kNative:
		if flagsDead {
			// Free ownership: nothing downstream reads the current flags, so
			// no capture is needed at all.
			e.reserved = true
			return nil, status.Success
		}
		if e.layout.HasFlagsToGPR && accumulatorDead {
			e.kind = kInReg
			e.reserved = true
			return []instr.Emitted{instr.FlagsCapture{Accumulator: e.layout.Accumulator}}, status.Success
		}
		e.kind = kInMemory
		e.reserved = true
		return []instr.Emitted{instr.FlagsMemCapture{Slot: slotstore.FlagsSlot}}, status.Success

	case kInMemory, kInReg:
		if e.reserved {
			return nil, status.InUse
		}
		// A prior spill is outstanding from an earlier lazy unreserve; resume
		// it rather than re-emitting a capture sequence.
		e.reserved = true
		return nil, status.Success

	default:
		return nil, status.Error
	}
}

// Evict copies captured flags out of the accumulator into slot 0 and
// restores the accumulator's prior (trivially dead) value, so the
// accumulator can be handed to a client (spec.md §4.4's `evict`). A no-op
// when flags are not currently held in the accumulator.
func (e *Engine) Evict() []instr.Emitted {
	if e.kind != kInReg {
		return nil
	}
	e.kind = kInMemory
	return []instr.Emitted{instr.DirectSpill{Reg: e.layout.Accumulator, Slot: slotstore.FlagsSlot}}
}

// RestoreAppFlags writes the captured flags back to the architectural
// flags register. When release is true, the engine transitions to Native
// (spec.md §4.4's `restore_app_flags`).
func (e *Engine) RestoreAppFlags(release bool) []instr.Emitted {
	var out []instr.Emitted
	switch e.kind {
	case kInReg:
		out = []instr.Emitted{instr.FlagsRelease{Accumulator: e.layout.Accumulator}}
	case kInMemory:
		out = []instr.Emitted{instr.FlagsMemRelease{Slot: slotstore.FlagsSlot}}
	}
	if release {
		e.kind = kNative
		e.reserved = false
	}
	return out
}

// Unreserve releases the client's hold on the flags reservation. Inside
// the insertion phase the restore is deferred (lazy); the engine leaves
// its captured value in place, non-native and unreserved. Outside the
// insertion phase the restore happens immediately.
func (e *Engine) Unreserve(insideInsertionPhase bool) []instr.Emitted {
	if e.kind == kNative {
		e.reserved = false
		return nil
	}
	if insideInsertionPhase {
		e.reserved = false
		return nil
	}
	return e.RestoreAppFlags(true)
}
