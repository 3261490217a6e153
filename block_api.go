package regcore

import (
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/insertion"
	"github.com/dbicore/regcore/internal/liveness"
	"github.com/dbicore/regcore/internal/status"
)

// BeginBlock attaches block as the one currently being instrumented and
// precomputes its LivenessVectors via a backward scan, opening the
// insertion phase (spec.md §4.5/§6) every reservation/flags call above
// consults. exit seeds cross-block liveness at the block's exit edge; a
// nil exit is treated as fully dead, the safe default when the host
// supplies no successor information (spec.md §4.1).
func (t *Thread) BeginBlock(block hostabi.BlockHandle, exit *liveness.ExitState) {
	t.block = block
	t.vec = liveness.ScanBackward(t.layout, block.Instructions(), exit)
	t.insertionPhase = true
}

// EndBlock runs the InsertionDriver's forward pass over the attached
// block, performing every lazy restore and re-spill the reservations made
// during this block demanded, and asserts end-of-block conservation:
// every register and the flags engine native, every slot free (spec.md
// §8 property 1).
func (t *Thread) EndBlock() status.Status {
	if t.block == nil {
		return status.InvalidParameter
	}
	driver := insertion.New(t.layout, t.table, t.slots, t.flags, t.vec, t.block)
	driver.SetHostScratchSlots(t.host)
	driver.SetPredicateState(t.pred)
	driver.SetReporter(t.reporter)
	st := driver.Run()

	t.block = nil
	t.vec = nil
	t.insertionPhase = false
	t.bbProps = 0
	return st
}

// AttachToHost registers the early and late basic-block hooks a host
// framework invokes around its own instrumentation pass, per spec.md §6's
// priority-ordered collaboration: the early hook should run before any
// other component inserts code (so this core's own view of the block is
// unperturbed when BeginBlock computes liveness) and the late hook should
// run last (so EndBlock's insertion pass sees every other component's
// instrumentation already in place). earlyPriority must be numerically
// higher than latePriority under the registrar's own convention.
func (t *Thread) AttachToHost(reg hostabi.BBEventRegistrar, earlyPriority, latePriority int, exit *liveness.ExitState) error {
	if err := reg.Register(hostabi.BBEventEarly, earlyPriority, func(block hostabi.BlockHandle) {
		t.BeginBlock(block, exit)
	}); err != nil {
		return err
	}
	return reg.Register(hostabi.BBEventLate, latePriority, func(block hostabi.BlockHandle) {
		t.EndBlock()
	})
}
