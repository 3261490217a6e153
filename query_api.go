package regcore

import (
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/liveness"
	"github.com/dbicore/regcore/internal/regstate"
	"github.com/dbicore/regcore/internal/slotstore"
	"github.com/dbicore/regcore/internal/status"
)

// IsRegisterDead implements spec.md §6's `is_register_dead(reg, inst) →
// bool`. Returns false (conservatively live) when no LivenessVectors are
// attached, e.g. outside block-insertion.
func (t *Thread) IsRegisterDead(class instr.RegClass, reg instr.Reg, pos int) bool {
	if t.vec == nil {
		return false
	}
	if class == instr.GPR {
		return t.vec.GPRAt(reg, pos) == liveness.Dead
	}
	return !t.vec.SIMDAt(reg, pos).IsLive()
}

// AFlagsLiveness implements spec.md §6's `aflags_liveness(inst) →
// flags_set`.
func (t *Thread) AFlagsLiveness(pos int) instr.FlagSet {
	if t.vec == nil {
		return instr.AllFlags
	}
	return t.vec.FlagsAt(pos)
}

// ReservationInfo is the result of ReservationInfoEx, mirroring spec.md
// §6's `{ reserved, holds_app_value, app_value_retained, location_opnd,
// is_host_slot, slot_offset }` record.
type ReservationInfo struct {
	Reserved         bool
	HoldsAppValue    bool
	AppValueRetained bool
	LocationOpnd     OperandRef
	IsHostSlot       bool
	SlotOffset       int
}

// ReservationInfoEx implements spec.md §6's `reservation_info_ex(reg)`.
func (t *Thread) ReservationInfoEx(class instr.RegClass, reg instr.Reg) ReservationInfo {
	s := t.table.Get(class, reg)
	info := ReservationInfo{Reserved: s.InUse}

	if s.Native {
		info.HoldsAppValue = true
		info.AppValueRetained = true
		info.LocationOpnd = OperandRef{IsRegister: true, Reg: reg, Class: class}
		return info
	}
	if s.Xchg != regstate.NoReg {
		info.HoldsAppValue = true
		info.AppValueRetained = true
		info.LocationOpnd = OperandRef{IsRegister: true, Reg: s.Xchg, Class: class}
		return info
	}
	if s.Slot == regstate.NoSlot {
		return info
	}

	info.HoldsAppValue = s.EverSpilled
	info.AppValueRetained = s.EverSpilled
	if class == instr.GPR && s.IsHostSlot {
		info.IsHostSlot = true
		info.SlotOffset = t.host.Offset(s.Slot)
		info.LocationOpnd = OperandRef{IsHostSlot: true, SlotOffset: info.SlotOffset}
	} else if class == instr.GPR {
		info.SlotOffset = t.slots.SlotOffset(s.Slot)
		info.LocationOpnd = OperandRef{Segment: t.slots.Segment(), SlotOffset: info.SlotOffset}
	} else {
		info.SlotOffset = slotstore.SIMDOffset(s.Slot)
		info.LocationOpnd = OperandRef{IsSIMD: true, SlotOffset: info.SlotOffset}
	}
	return info
}

// SpillRestoreInfo is the result of IsInstrSpillOrRestore, mirroring
// spec.md §6's `{ spill?, restore?, reg }`.
type SpillRestoreInfo struct {
	Spill   bool
	Restore bool
	Reg     instr.Reg
}

// IsInstrSpillOrRestore implements spec.md §6's
// `is_instr_spill_or_restore(instr) → { spill?, restore?, reg }`: lets a
// client distinguish this core's own bookkeeping instructions from
// application code when walking a finished fragment.
func IsInstrSpillOrRestore(e instr.Emitted) (status.Status, SpillRestoreInfo) {
	switch v := e.(type) {
	case instr.DirectSpill:
		return status.Success, SpillRestoreInfo{Spill: true, Reg: v.Reg}
	case instr.DirectRestore:
		return status.Success, SpillRestoreInfo{Restore: true, Reg: v.Reg}
	case instr.IndirectSpill:
		return status.Success, SpillRestoreInfo{Spill: true, Reg: v.SIMDReg}
	case instr.IndirectRestore:
		return status.Success, SpillRestoreInfo{Restore: true, Reg: v.SIMDReg}
	case instr.HostSlotSpill:
		return status.Success, SpillRestoreInfo{Spill: true, Reg: v.Reg}
	case instr.HostSlotRestore:
		return status.Success, SpillRestoreInfo{Restore: true, Reg: v.Reg}
	default:
		// IndirectLoadPtr and the flags-capture/release family carry no
		// single application register of interest to this query.
		return status.InvalidParameter, SpillRestoreInfo{}
	}
}
