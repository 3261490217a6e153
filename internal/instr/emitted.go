package instr

import "fmt"

// Emitted is the mediator's own instruction vocabulary: the handful of
// shapes SpillEmitter ever produces, and the only shapes FaultRewriter ever
// needs to recognise while decoding the code cache. Each type mirrors one
// line of real machine code; Op and String exist so emission traces and
// fault-walker logs read the same way the teacher's lir.Insn values do.
type Emitted interface {
	Op() string
}

// DirectSpill writes Reg to a direct TLS slot (GPR path): "mov [tls+slot*8], reg".
type DirectSpill struct {
	Reg  Reg
	Slot int
}

func (DirectSpill) Op() string { return "direct_spill" }
func (d DirectSpill) String() string {
	return fmt.Sprintf("mov [tls+%d], %v", d.Slot*8, d.Reg)
}

// DirectRestore reads Reg back from a direct TLS slot: "mov reg, [tls+slot*8]".
type DirectRestore struct {
	Reg  Reg
	Slot int
}

func (DirectRestore) Op() string { return "direct_restore" }
func (d DirectRestore) String() string {
	return fmt.Sprintf("mov %v, [tls+%d]", d.Reg, d.Slot*8)
}

// HostSlotSpill/HostSlotRestore address one of the host framework's own
// non-preserved scratch slots (spec.md §4.2: "these DR slots are not
// preserved across app instructions"), reached through the host's own
// offset range rather than this core's direct-slot array.
type HostSlotSpill struct {
	Reg        Reg
	HostOffset int
}

func (HostSlotSpill) Op() string { return "host_slot_spill" }
func (h HostSlotSpill) String() string {
	return fmt.Sprintf("mov [hostslot+%d], %v", h.HostOffset, h.Reg)
}

type HostSlotRestore struct {
	Reg        Reg
	HostOffset int
}

func (HostSlotRestore) Op() string { return "host_slot_restore" }
func (h HostSlotRestore) String() string {
	return fmt.Sprintf("mov %v, [hostslot+%d]", h.Reg, h.HostOffset)
}

// IndirectLoadPtr loads the SIMD indirect block's base pointer out of the
// hidden direct slot into a scratch GPR, the first of the two-instruction
// indirect-SIMD sequence (spec.md §4.2/§4.6).
type IndirectLoadPtr struct {
	Scratch  Reg
	HidSlot  int
}

func (IndirectLoadPtr) Op() string { return "indirect_load_ptr" }
func (i IndirectLoadPtr) String() string {
	return fmt.Sprintf("mov %v, [tls+%d]", i.Scratch, i.HidSlot*8)
}

// IndirectSpill/IndirectRestore are the second instruction of that sequence:
// a SIMD move through the pointer loaded by an IndirectLoadPtr.
type IndirectSpill struct {
	SIMDReg Reg
	Scratch Reg
	Slot    int
}

func (IndirectSpill) Op() string { return "indirect_spill" }
func (i IndirectSpill) String() string {
	return fmt.Sprintf("movdqa [%v+%d], %v", i.Scratch, i.Slot*64, i.SIMDReg)
}

type IndirectRestore struct {
	SIMDReg Reg
	Scratch Reg
	Slot    int
}

func (IndirectRestore) Op() string { return "indirect_restore" }
func (i IndirectRestore) String() string {
	return fmt.Sprintf("movdqa %v, [%v+%d]", i.SIMDReg, i.Scratch, i.Slot*64)
}

// FlagsCapture parks the arithmetic flags into the accumulator register,
// via a load-flags-to-register primitive plus an overflow-reproducing
// compare, per spec.md §4.4's capture sequence.
type FlagsCapture struct{ Accumulator Reg }

func (FlagsCapture) Op() string      { return "flags_capture" }
func (f FlagsCapture) String() string { return fmt.Sprintf("lahf+seto %v", f.Accumulator) }

// FlagsRelease is the inverse: it writes the accumulator back into the
// architectural flags register. Flags held in slot 0 are released with
// FlagsMemRelease instead.
type FlagsRelease struct{ Accumulator Reg }

func (FlagsRelease) Op() string       { return "flags_release" }
func (f FlagsRelease) String() string { return fmt.Sprintf("sahf+addb %v", f.Accumulator) }

// FlagsMemCapture writes the architectural flags word directly to a memory
// slot, the capture path used on architectures without a flags-to-GPR
// primitive (spec.md §9's cross-architecture note); no accumulator is
// involved.
type FlagsMemCapture struct{ Slot int }

func (FlagsMemCapture) Op() string       { return "flags_mem_capture" }
func (f FlagsMemCapture) String() string { return fmt.Sprintf("pushf [tls+%d]", f.Slot*8) }

// FlagsMemRelease is the inverse of FlagsMemCapture.
type FlagsMemRelease struct{ Slot int }

func (FlagsMemRelease) Op() string       { return "flags_mem_release" }
func (f FlagsMemRelease) String() string { return fmt.Sprintf("popf [tls+%d]", f.Slot*8) }
