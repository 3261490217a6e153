// Package regstate tracks per-register bookkeeping (spec.md §3): whether a
// register is reserved, whether it currently holds the application's
// native value, which slot (if any) backs a spilled value, and the
// slot-to-register back-reference needed for O(1) fault rewriting.
package regstate

import "github.com/dbicore/regcore/internal/instr"

// NoSlot and NoReg are the sentinel "unassigned" values for Slot and Xchg.
const NoSlot = -1

const NoReg instr.Reg = -1

// State is the bookkeeping record for one register, mirroring spec.md §3:
//
//  1. native ⇒ xchg = none ∧ slot unused.
//  2. in_use ∧ !native ⇒ (xchg set) XOR (slot assigned and owned by this register).
type State struct {
	InUse       bool
	Native      bool
	EverSpilled bool
	Slot        int       // NoSlot when unused.
	Xchg        instr.Reg // NoReg when no swap partner is held.

	// IsHostSlot distinguishes a Slot drawn from the host framework's own
	// delegated scratch storage (spec.md §4.2: slots beyond num_direct_slots)
	// from an ordinary SlotStore direct-array index. The two numbering
	// spaces overlap, so this flag — not the numeric value of Slot — is
	// authoritative for every spill/restore/free decision.
	IsHostSlot bool
}

func freshNative() State {
	return State{InUse: false, Native: true, EverSpilled: false, Slot: NoSlot, Xchg: NoReg}
}

// pending reports the spec.md §3 invariant-6 predicate: "awaiting lazy
// restore" — reserved value present but the client has released it, or a
// value has been spilled with nobody currently holding it reserved.
func pending(s State) bool { return !s.Native && !s.InUse }

// Table is the full per-thread register bookkeeping: one State per GPR,
// one per SIMD register (independent numbering, spec.md §3 invariant 5),
// and the slot_use back-reference tables for each class.
type Table struct {
	layout instr.Layout

	gpr  []State
	simd []State

	slotUseGPR  map[int]instr.Reg
	slotUseSIMD map[int]instr.Reg

	pendingUnreserved int
}

// New builds a Table with every register native, matching the "RegState is
// created at thread start (all native)" lifecycle of spec.md §3.
func New(layout instr.Layout) *Table {
	t := &Table{
		layout:      layout,
		gpr:         make([]State, layout.NumGPR),
		simd:        make([]State, layout.NumSIMD),
		slotUseGPR:  make(map[int]instr.Reg),
		slotUseSIMD: make(map[int]instr.Reg),
	}
	for i := range t.gpr {
		t.gpr[i] = freshNative()
	}
	for i := range t.simd {
		t.simd[i] = freshNative()
	}
	return t
}

func (t *Table) slice(class instr.RegClass) []State {
	if class == instr.GPR {
		return t.gpr
	}
	return t.simd
}

func (t *Table) slotUse(class instr.RegClass) map[int]instr.Reg {
	if class == instr.GPR {
		return t.slotUseGPR
	}
	return t.slotUseSIMD
}

func (t *Table) index(class instr.RegClass, r instr.Reg) int {
	if class == instr.GPR {
		return t.layout.GPRIndex(r)
	}
	return t.layout.SIMDIndex(r)
}

// Get returns a copy of r's current bookkeeping.
func (t *Table) Get(class instr.RegClass, r instr.Reg) State {
	return t.slice(class)[t.index(class, r)]
}

// PendingUnreserved is the live count of registers with !native ∧ !in_use,
// spec.md §3 invariant 6.
func (t *Table) PendingUnreserved() int { return t.pendingUnreserved }

// mutate applies fn to r's state and keeps pendingUnreserved in lockstep,
// so invariant 6 holds by construction rather than by separate bookkeeping.
func (t *Table) mutate(class instr.RegClass, r instr.Reg, fn func(*State)) {
	s := t.slice(class)
	i := t.index(class, r)
	before := pending(s[i])
	fn(&s[i])
	after := pending(s[i])
	switch {
	case !before && after:
		t.pendingUnreserved++
	case before && !after:
		t.pendingUnreserved--
	}
}

// Reserve marks r in_use and, when slot >= 0, spilled to that slot (Xchg
// cleared); the SlotOwner back-reference is updated to maintain invariant 3.
func (t *Table) Reserve(class instr.RegClass, r instr.Reg, slot int) {
	t.mutate(class, r, func(s *State) {
		s.InUse = true
		s.Native = false
		s.Slot = slot
		s.Xchg = NoReg
	})
	if slot != NoSlot {
		t.slotUse(class)[slot] = r
	}
}

// ReserveHost marks r in_use with its value delegated to one of the host
// framework's own scratch slots rather than a SlotStore direct slot. Unlike
// Reserve, the slot_use back-reference is deliberately not recorded: the
// host-slot numbering space is independent of (and may numerically overlap)
// SlotStore's direct indices, and FaultRewriter never needs to recover a
// value from a host slot, since it does not survive across app instructions.
func (t *Table) ReserveHost(class instr.RegClass, r instr.Reg, hostSlot int) {
	t.mutate(class, r, func(s *State) {
		s.InUse = true
		s.Native = false
		s.Slot = hostSlot
		s.Xchg = NoReg
		s.IsHostSlot = true
	})
}

// ReserveXchg marks r in_use with its value held in the (currently dead)
// partner register instead of a memory slot (spec.md §3's xchg field).
// Nothing in this module calls it outside tests; the flags engine tracks
// its accumulator state itself.
func (t *Table) ReserveXchg(class instr.RegClass, r, partner instr.Reg) {
	t.mutate(class, r, func(s *State) {
		s.InUse = true
		s.Native = false
		s.Slot = NoSlot
		s.Xchg = partner
	})
}

// MarkSpilled records that r's value has been written to its assigned slot
// at least once since reservation (spec.md §3: "ever_spilled").
func (t *Table) MarkSpilled(class instr.RegClass, r instr.Reg) {
	t.mutate(class, r, func(s *State) { s.EverSpilled = true })
}

// Unreserve releases client ownership of r without necessarily making it
// native: if the value is still non-native, the register becomes pending
// (lazy restore), incrementing PendingUnreserved per invariant 6.
func (t *Table) Unreserve(class instr.RegClass, r instr.Reg) {
	t.mutate(class, r, func(s *State) { s.InUse = false })
}

// MarkNative restores r to the fully-native state, releasing any slot it
// owned (the caller is responsible for freeing the slot in SlotStore) and
// any xchg partner.
func (t *Table) MarkNative(class instr.RegClass, r instr.Reg) {
	prev := t.Get(class, r)
	t.mutate(class, r, func(s *State) {
		s.Native = true
		s.InUse = false
		s.Slot = NoSlot
		s.Xchg = NoReg
		s.EverSpilled = false
		s.IsHostSlot = false
	})
	// Host-slot numbers are never recorded in slotUse (see ReserveHost), and
	// may numerically coincide with an unrelated direct slot still owned by
	// another register, so only a direct reservation's entry is removed here.
	if prev.Slot != NoSlot && !prev.IsHostSlot {
		delete(t.slotUse(class), prev.Slot)
	}
}

// Reclaim re-marks r in_use without disturbing its existing slot/xchg —
// the Reserver's step-1 "un-restored reuse" path (spec.md §4.3), which
// inherits whatever slot the register already owns instead of allocating
// a new one.
func (t *Table) Reclaim(class instr.RegClass, r instr.Reg) {
	t.mutate(class, r, func(s *State) { s.InUse = true })
}

// SlotOwner returns the register currently owning slot (class-scoped), or
// NoReg, implementing the invariant-3 back-reference.
func (t *Table) SlotOwner(class instr.RegClass, slot int) instr.Reg {
	if r, ok := t.slotUse(class)[slot]; ok {
		return r
	}
	return NoReg
}

// AllNative reports whether every register of every class is native —
// spec.md §3's end-of-block conservation requirement, and spec.md §8
// property 1.
func (t *Table) AllNative() bool {
	for _, s := range t.gpr {
		if !s.Native || s.InUse {
			return false
		}
	}
	for _, s := range t.simd {
		if !s.Native || s.InUse {
			return false
		}
	}
	return true
}

// ForEachNonNative calls fn for every register (of either class) that is
// currently not native, used by the InsertionDriver's per-instruction scan.
func (t *Table) ForEachNonNative(fn func(class instr.RegClass, r instr.Reg, s State)) {
	for i, s := range t.gpr {
		if !s.Native {
			fn(instr.GPR, instr.Reg(i), s)
		}
	}
	for i, s := range t.simd {
		if !s.Native {
			fn(instr.SIMDXMM, instr.Reg(i), s)
		}
	}
}
