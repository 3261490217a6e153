// Package insertion implements the InsertionDriver of spec.md §4.5: the
// per-instruction forward pass that performs lazy restores before
// application reads and lazy re-spills after application writes, emitting
// the temporary-slot sandwich in the exact instruction order the fault
// rewriter depends on.
package insertion

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

// Driver walks one basic block in forward order, consulting LivenessVectors
// and RegState to decide spills/restores and asking spillemit to produce
// them.
type Driver struct {
	layout instr.Layout
	table  *regstate.Table
	slots  *slotstore.SlotStore
	flags  *flagsengine.Engine
	vec    *liveness.Vectors
	block  hostabi.BlockHandle

	host     hostabi.HostScratchSlots
	pred     hostabi.PredicateState
	reporter *status.Reporter
}

// New builds a Driver over one block's worth of per-thread state. vec must
// have been produced by liveness.ScanBackward over the same block.
func New(layout instr.Layout, table *regstate.Table, slots *slotstore.SlotStore, flags *flagsengine.Engine, vec *liveness.Vectors, block hostabi.BlockHandle) *Driver {
	return &Driver{layout: layout, table: table, slots: slots, flags: flags, vec: vec, block: block}
}

// SetHostScratchSlots attaches the host's delegated scratch-slot accessor,
// needed to emit spills/restores for registers reserve.Reserver put into a
// host-delegated slot (spec.md §3 invariant 4).
func (d *Driver) SetHostScratchSlots(host hostabi.HostScratchSlots) { d.host = host }

// SetPredicateState attaches the host's auto-predicate accessor, forcing
// the temp-slot sandwich and any SIMD spill/restore this Driver emits to be
// unconditional (spec.md §9).
func (d *Driver) SetPredicateState(pred hostabi.PredicateState) { d.pred = pred }

// SetReporter attaches the internal-inconsistency callback funnel (spec.md
// §7). A nil reporter (the zero value) preserves the plain hard-failure
// behavior below, which existing package-level tests rely on.
func (d *Driver) SetReporter(r *status.Reporter) { d.reporter = r }

func (d *Driver) emitter() spillemit.Emitter {
	return spillemit.Emitter{HiddenSlot: d.slots.HiddenSlot(), Scratch: d.layout.StolenGPR, Host: d.host, Pred: d.pred}
}

// sandwich records an in-flight temporary-slot sandwich opened by before()
// for a register that is both being restored for a read and still held by
// a client, to be closed by after() for the same instruction.
type sandwich struct {
	class   instr.RegClass
	reg     instr.Reg
	tmpSlot int
}

// Run processes every instruction of the block and asserts conservation at
// the end (spec.md §4.5's debug-build check): every register and the
// flags engine native, every slot free.
func (d *Driver) Run() status.Status {
	insns := d.block.Instructions()
	last := len(insns) - 1

	for pos, insn := range insns {
		isLast := pos == last

		before, sw := d.before(pos, insn, isLast)
		if len(before) > 0 {
			if err := d.block.InsertBefore(pos, before); err != nil {
				return status.Error
			}
		}

		after := d.after(pos, insn, sw)
		if len(after) > 0 {
			if err := d.block.InsertAfter(pos, after); err != nil {
				return status.Error
			}
		}
	}

	if !d.table.AllNative() || d.flags.State() != flagsengine.Native {
		// A client forgot to unreserve a register (or the flags engine) by
		// block end: spec.md §7's internal-inconsistency protocol routes this
		// through the configured error callback rather than failing outright.
		if d.reporter != nil && d.reporter.Report(status.Error, "insertion.Run.conservation") {
			return status.Success
		}
		return status.Error
	}
	return status.Success
}

func (d *Driver) before(pos int, insn hostabi.AppInsn, isLast bool) ([]instr.Emitted, []sandwich) {
	var out []instr.Emitted

	if d.flags.State() != flagsengine.Native {
		if isLast || insn.FlagsRead() != 0 || insn.FlagsWritten() != 0 && insn.FlagsWritten() != instr.AllFlags {
			release := !d.flags.IsReserved()
			out = append(out, d.flags.RestoreAppFlags(release)...)
		}
	}

	e := d.emitter()
	var sandwiches []sandwich
	d.table.ForEachNonNative(func(class instr.RegClass, reg instr.Reg, s regstate.State) {
		// A reserved register the app instruction is about to fully overwrite
		// loses its client value the instant that write retires, whether or
		// not any other trigger below would also have forced a restore here
		// (spec.md §8 scenario 3): this alone must open the sandwich.
		clobbered := s.InUse && insn.WritesRegExact(reg)

		needsRestore := isLast ||
			insn.ReadsReg(reg) ||
			insn.WritesRegPartial(reg) ||
			insn.ConditionallyWrites(reg) ||
			clobbered ||
			s.IsHostSlot || // host-delegated slots are not preserved across app instructions.
			(d.block.ContainsInternalControlFlow() && !s.InUse)
		if !needsRestore {
			return
		}

		if s.InUse {
			tmp, err := d.allocTemp(class)
			if err != nil {
				return
			}
			out = append(out, e.Unconditional(func() []instr.Emitted {
				var batch []instr.Emitted
				batch = append(batch, e.Spill(class, reg, tmp, false)...)
				batch = append(batch, e.Restore(class, reg, s.Slot, s.IsHostSlot)...)
				return batch
			})...)
			sandwiches = append(sandwiches, sandwich{class: class, reg: reg, tmpSlot: tmp})
			return
		}

		out = append(out, e.Restore(class, reg, s.Slot, s.IsHostSlot)...)
		d.freeSlot(class, s.Slot, s.IsHostSlot)
		d.table.MarkNative(class, reg)
	})

	return out, sandwiches
}

func (d *Driver) after(pos int, insn hostabi.AppInsn, sw []sandwich) []instr.Emitted {
	var out []instr.Emitted

	if insn.FlagsWritten() != 0 && d.flags.IsReserved() {
		stillRead := d.vec == nil || d.vec.FlagsAt(pos)&insn.FlagsWritten() != 0
		if stillRead {
			if d.flags.AccumulatorHeld() {
				out = append(out, d.flags.Evict()...)
			} else {
				out = append(out, instr.FlagsMemCapture{Slot: slotstore.FlagsSlot})
			}
		}
	}

	sandwiched := map[instr.Reg]sandwich{}
	for _, s := range sw {
		sandwiched[s.reg] = s
	}

	e := d.emitter()
	d.table.ForEachNonNative(func(class instr.RegClass, reg instr.Reg, s regstate.State) {
		if !s.InUse {
			return
		}
		if !insn.WritesRegExact(reg) && !insn.WritesRegPartial(reg) {
			return
		}
		stillNeeded := d.vec == nil || func() bool {
			if pos+1 >= d.vec.N {
				return true
			}
			if class == instr.GPR {
				return d.vec.GPRAt(reg, pos+1) != liveness.Dead
			}
			return d.vec.SIMDAt(reg, pos+1).IsLive()
		}()
		if !stillNeeded {
			return
		}

		if box, ok := sandwiched[reg]; ok {
			out = append(out, e.Unconditional(func() []instr.Emitted {
				var batch []instr.Emitted
				batch = append(batch, e.Spill(class, reg, s.Slot, s.IsHostSlot)...)
				batch = append(batch, e.Restore(box.class, box.reg, box.tmpSlot, false)...)
				return batch
			})...)
			d.freeSlot(box.class, box.tmpSlot, false)
			d.table.MarkSpilled(class, reg)
			return
		}

		out = append(out, e.Spill(class, reg, s.Slot, s.IsHostSlot)...)
		d.table.MarkSpilled(class, reg)
	})

	// Unreserved, non-native registers this instruction writes: the spilled
	// app value is now stale, so the slot is simply dropped.
	d.table.ForEachNonNative(func(class instr.RegClass, reg instr.Reg, s regstate.State) {
		if s.InUse {
			return
		}
		if !insn.WritesRegExact(reg) {
			return
		}
		d.freeSlot(class, s.Slot, s.IsHostSlot)
		d.table.MarkNative(class, reg)
	})

	return out
}

func (d *Driver) allocTemp(class instr.RegClass) (int, error) {
	if class == instr.GPR {
		return d.slots.AllocDirect()
	}
	return d.slots.AllocSIMD()
}

func (d *Driver) freeSlot(class instr.RegClass, slot int, isHostSlot bool) {
	if slot == regstate.NoSlot {
		return
	}
	if class == instr.GPR {
		if isHostSlot {
			_ = d.slots.FreeHostSlot(slot)
			return
		}
		_ = d.slots.FreeDirect(slot)
		return
	}
	_ = d.slots.FreeSIMD(slot)
}
