package regcore

import (
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/regstate"
	"github.com/dbicore/regcore/internal/status"
)

// ReserveRegister implements spec.md §6's `reserve_register(class,
// allowed_vector) → reg_id`. where is the instruction index, within the
// block currently attached via BeginBlock, to insert any spill code
// before. class defaults to GPR at the caller's discretion (the zero
// value of instr.RegClass).
func (t *Thread) ReserveRegister(class instr.RegClass, allowed []instr.Reg, where int) (instr.Reg, status.Status) {
	return t.reserveImpl(class, allowed, false, where)
}

// ReserveDeadRegister implements spec.md §6's `reserve_dead_register`:
// succeeds only if a dead register is available among allowed, never
// spilling a live one.
func (t *Thread) ReserveDeadRegister(class instr.RegClass, allowed []instr.Reg, where int) (instr.Reg, status.Status) {
	return t.reserveImpl(class, allowed, true, where)
}

func (t *Thread) reserveImpl(class instr.RegClass, allowed []instr.Reg, onlyIfFree bool, where int) (instr.Reg, status.Status) {
	if t.block == nil {
		return regstate.NoReg, status.InvalidParameter
	}
	reg, emitted, st := t.reserver.Reserve(class, allowed, onlyIfFree, where, t.vec)
	if st != status.Success {
		return regstate.NoReg, st
	}
	if len(emitted) > 0 {
		if err := t.block.InsertBefore(where, emitted); err != nil {
			return regstate.NoReg, status.Error
		}
	}
	return reg, status.Success
}

// UnreserveRegister implements spec.md §6's `unreserve_register(reg)`:
// releases client ownership. The actual restore is lazy — the
// InsertionDriver's forward pass (EndBlock) restores the register at the
// next point the application instruction stream demands its native value.
func (t *Thread) UnreserveRegister(class instr.RegClass, reg instr.Reg) status.Status {
	s := t.table.Get(class, reg)
	if !s.InUse {
		return status.InvalidParameter
	}
	t.table.Unreserve(class, reg)
	return status.Success
}
