package regcore

import (
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/regstate"
	"github.com/dbicore/regcore/internal/slotstore"
	"github.com/dbicore/regcore/internal/spillemit"
	"github.com/dbicore/regcore/internal/status"
)

// OperandRef describes where an application register's current value can
// be found, the `location_opnd` of spec.md §6's reservation_info_ex and
// the dst of get_app_value: either a live register (the application's own,
// or a swap partner holding it) or a memory location inside this core's
// slot storage.
type OperandRef struct {
	IsRegister bool
	Reg        instr.Reg
	Class      instr.RegClass

	Segment    int // valid when !IsRegister and the location is a direct GPR slot.
	SlotOffset int // byte/word offset within Segment, within the SIMD block, or within the host's scratch storage.
	IsSIMD     bool

	// IsHostSlot reports a location delegated to the host framework's own
	// scratch storage (spec.md §3 invariant 4): SlotOffset is then the
	// offset hostabi.HostScratchSlots.Offset returned, and Segment is unused.
	IsHostSlot bool
}

// GetAppValue implements spec.md §6's `get_app_value(reg, dst)`: reports
// where reg's application value currently lives. Returns NoAppValue if the
// register has never been spilled since the block started and is not
// currently native or held by a swap partner (spec.md §7's "missing
// history" category).
func (t *Thread) GetAppValue(class instr.RegClass, reg instr.Reg) (OperandRef, status.Status) {
	s := t.table.Get(class, reg)
	if s.Native {
		return OperandRef{IsRegister: true, Reg: reg, Class: class}, status.Success
	}
	if s.Xchg != regstate.NoReg {
		return OperandRef{IsRegister: true, Reg: s.Xchg, Class: class}, status.Success
	}
	if s.Slot == regstate.NoSlot || !s.EverSpilled {
		return OperandRef{}, status.NoAppValue
	}
	if class == instr.GPR {
		if s.IsHostSlot {
			return OperandRef{IsHostSlot: true, SlotOffset: t.host.Offset(s.Slot)}, status.Success
		}
		return OperandRef{Segment: t.slots.Segment(), SlotOffset: t.slots.SlotOffset(s.Slot)}, status.Success
	}
	return OperandRef{IsSIMD: true, SlotOffset: slotstore.SIMDOffset(s.Slot)}, status.Success
}

// RestoreAppValues implements spec.md §6's `restore_app_values(opnd,
// swap)` for memory operands that reference the host's stolen register.
// The stolen register never holds its own application value — the host
// framework keeps that in a dedicated scratch slot — so a swap register is
// reserved and loaded from there, and returned. insn's operands are not
// modified: re-encoding the memory operand against the swap register is
// left to the caller. Returns NoAppValue if insn does not reference the
// stolen register at all.
func (t *Thread) RestoreAppValues(where int, insn hostabi.AppInsn, swapCandidates []instr.Reg) (swap instr.Reg, st status.Status) {
	if t.layout.StolenGPR < 0 || !insn.ReferencesMem(t.layout.StolenGPR) {
		return regstate.NoReg, status.NoAppValue
	}
	if t.block == nil || t.host == nil || !t.stolenValueIsValid {
		return regstate.NoReg, status.InvalidParameter
	}

	reg, emitted, rst := t.reserver.Reserve(instr.GPR, swapCandidates, false, where, t.vec)
	if rst != status.Success {
		return regstate.NoReg, rst
	}

	offset := t.host.Offset(t.stolenValueOffset)
	e := t.emitter()
	batch := e.Unconditional(func() []instr.Emitted {
		out := append([]instr.Emitted{}, emitted...)
		return append(out, spillemit.HostSlotRestore(reg, offset)...)
	})
	if err := t.block.InsertBefore(where, batch); err != nil {
		return regstate.NoReg, status.Error
	}
	return reg, status.Success
}

// StatelesslyRestoreAppValue implements spec.md §6's
// `statelessly_restore_app_value(reg, where_restore, where_respill)`: used
// by client-emitted clean calls that need the application's value in reg
// for one instruction without releasing the reservation. Per the Open
// Question decision recorded in DESIGN.md, ever_spilled is (re-)marked
// before the immediate restore, satisfying the same bookkeeping invariant
// an ordinary spill would.
func (t *Thread) StatelesslyRestoreAppValue(class instr.RegClass, reg instr.Reg, whereRestore, whereRespill int) status.Status {
	if t.block == nil {
		return status.InvalidParameter
	}
	s := t.table.Get(class, reg)
	if s.Native {
		return status.Success
	}
	if s.Slot == regstate.NoSlot || !s.EverSpilled {
		return status.NoAppValue
	}

	t.table.MarkSpilled(class, reg)

	e := t.emitter()
	restore := e.Restore(class, reg, s.Slot, s.IsHostSlot)
	if err := t.block.InsertBefore(whereRestore, restore); err != nil {
		return status.Error
	}
	respill := e.Spill(class, reg, s.Slot, s.IsHostSlot)
	if err := t.block.InsertBefore(whereRespill, respill); err != nil {
		return status.Error
	}
	return status.Success
}
