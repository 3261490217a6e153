package regcore

import (
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/liveness"
	"github.com/dbicore/regcore/internal/status"
)

// ReserveAFlags implements spec.md §6's `reserve_aflags()`: captures the
// arithmetic flags for exclusive client use. Dead flags are taken without
// any capture; live flags engage the flags-in-accumulator optimisation when
// the layout's designated accumulator register is dead and unreserved at
// where, and are captured to memory otherwise.
func (t *Thread) ReserveAFlags(where int) status.Status {
	if t.block == nil {
		return status.InvalidParameter
	}
	flagsDead := t.vec == nil || t.vec.FlagsAt(where) == 0
	accumulatorDead := t.layout.HasFlagsToGPR &&
		!t.table.Get(instr.GPR, t.layout.Accumulator).InUse &&
		(t.vec == nil || t.vec.GPRAt(t.layout.Accumulator, where) == liveness.Dead)

	emitted, st := t.flags.Reserve(flagsDead, accumulatorDead)
	if st != status.Success {
		return st
	}
	if len(emitted) > 0 {
		if err := t.block.InsertBefore(where, emitted); err != nil {
			return status.Error
		}
	}
	return status.Success
}

// UnreserveAFlags implements spec.md §6's `unreserve_aflags()`. Inside the
// insertion phase the restore is deferred to EndBlock's conservation pass;
// outside it, the restore happens immediately at where.
func (t *Thread) UnreserveAFlags(where int) status.Status {
	emitted := t.flags.Unreserve(t.insertionPhase)
	if len(emitted) == 0 {
		return status.Success
	}
	if t.block == nil {
		return status.InvalidParameter
	}
	if err := t.block.InsertAfter(where, emitted); err != nil {
		return status.Error
	}
	return status.Success
}

// RestoreAppAFlags implements spec.md §6's `restore_app_aflags()`: writes
// the captured flags back to the architectural flags register without
// necessarily releasing the reservation (release controls that).
func (t *Thread) RestoreAppAFlags(where int, release bool) status.Status {
	emitted := t.flags.RestoreAppFlags(release)
	if len(emitted) == 0 {
		return status.Success
	}
	if t.block == nil {
		return status.InvalidParameter
	}
	if err := t.block.InsertBefore(where, emitted); err != nil {
		return status.Error
	}
	return status.Success
}
