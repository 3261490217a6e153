// Package hostabi declares the contracts the surrounding DBI runtime must
// satisfy for the mediator core to function: basic-block event ordering,
// raw TLS slot primitives, instruction decode/encode/introspection, the
// host's own non-preserved scratch slots, and fault-restoration callback
// registration. None of these are implemented by this module in
// production — they are OUT OF SCOPE collaborators per spec.md §1. The
// fake subpackage provides a deterministic reference implementation used
// only by this module's own tests.
package hostabi

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mocks.go -package=mocks . BBEventRegistrar,FaultCallbackRegistrar

import "github.com/dbicore/regcore/internal/instr"

// AppInsn is the read-only view the mediator needs of one already-decoded
// application instruction. The host framework owns decode/encode; this is
// the minimal introspection surface spec.md §4.1 relies on.
type AppInsn interface {
	// ReadsReg reports whether the instruction reads r, including reads
	// used only to address a destination memory operand.
	ReadsReg(r instr.Reg) bool

	// WritesRegExact reports whether the instruction performs a full-width
	// write to r. On architectures where a 32-bit write zero-extends to
	// 64 bits, such a write counts as exact.
	WritesRegExact(r instr.Reg) bool

	// WritesRegPartial reports a write to r narrower than WritesRegExact,
	// e.g. an 8-bit or 16-bit write on a 64-bit architecture.
	WritesRegPartial(r instr.Reg) bool

	// ConditionallyWrites reports whether the write to r (exact or partial)
	// is predicated, such that the prior value might survive.
	ConditionallyWrites(r instr.Reg) bool

	// ReadsSIMD/WritesSIMDExact/WritesSIMDPartial mirror the GPR queries
	// for the six-level SIMD lattice; width is the class read/written
	// (xmm/ymm/zmm), ok is false when the instruction does not touch r.
	ReadsSIMD(r instr.Reg) (width instr.Width, ok bool)
	WritesSIMDExact(r instr.Reg) (width instr.Width, ok bool)
	WritesSIMDPartial(r instr.Reg) (width instr.Width, ok bool)

	// FlagsRead/FlagsWritten report the arithmetic flags this instruction
	// reads before writing, and the flags it clobbers.
	FlagsRead() instr.FlagSet
	FlagsWritten() instr.FlagSet

	// IsControlTransfer reports a branch, call, return, interrupt, or
	// syscall: spec.md §4.1 treats these as reading every GPR and flag,
	// since control escapes to code the analysis cannot see into.
	IsControlTransfer() bool

	// ReferencesMem reports whether r is used as a base or index register
	// in a memory operand, needed by restore_app_values' operand rewrite
	// for the stolen register.
	ReferencesMem(r instr.Reg) bool
}

// RawTLSSlots allocates and accesses the thread-local storage segment the
// mediator's direct GPR slots and the SIMD indirect-block pointer live in.
// The host owns the segment; the mediator only asks for n contiguous
// word-sized slots and emits loads/stores against the returned offsets.
type RawTLSSlots interface {
	// Calloc reserves n contiguous zero-initialized word-sized slots and
	// returns an opaque segment selector plus the base offset within it.
	Calloc(n int) (segment int, baseOffset int, err error)

	// Free releases a segment previously returned by Calloc.
	Free(segment int) error

	// Read returns the current word stored at offset within segment, used
	// by FaultRewriter to recover a spilled value directly from the
	// faulting thread's storage (spec.md §4.6: "read that slot's contents
	// from thread storage").
	Read(segment, offset int) (uint64, error)
}

// HostScratchSlots exposes the host framework's own per-instruction scratch
// slots (spec.md §4.2: "not preserved across app instructions"). Direct
// slot numbers beyond the mediator's own num_direct_slots delegate here.
type HostScratchSlots interface {
	// Offset returns the byte offset a host slot index resolves to for
	// FaultRewriter's host-slot-offset-range recognition.
	Offset(hostSlotIndex int) int

	// InRange reports whether a decoded instruction's displacement falls
	// inside the host's own scratch-slot storage, as opposed to this
	// core's direct TLS array or the SIMD indirect block.
	InRange(displacement int) (hostSlotIndex int, ok bool)
}

// BBEvent names the hook point an insertion hook registers for (its
// priority is passed to Register separately): early hooks see
// the block before any other component has inserted code; late hooks see
// it last, right before the fault-handler registration closes the block.
type BBEvent int

const (
	BBEventEarly BBEvent = iota
	BBEventLate
	BBEventFault
)

// BBEventRegistrar lets the mediator hook basic-block construction events
// at the priority spec.md §6 requires (high priority early, low priority
// late, and fault-handler registration).
type BBEventRegistrar interface {
	Register(event BBEvent, priority int, hook func(block BlockHandle)) error
}

// BlockHandle is the host's handle to the basic block currently being
// built, opaque to the mediator beyond iterating its instructions.
type BlockHandle interface {
	Instructions() []AppInsn
	InsertBefore(at int, emitted []instr.Emitted) error
	InsertAfter(at int, emitted []instr.Emitted) error
	ContainsInternalControlFlow() bool
}

// FaultCallbackRegistrar lets FaultRewriter install the callback the host
// framework invokes when a fault's PC lands inside the code cache.
type FaultCallbackRegistrar interface {
	RegisterFaultCallback(fn func(ctx MachineContext) error) error
}

// MachineContext is the architectural register file a fault delivers,
// read and rewritten in place by FaultRewriter so the handler sees the
// application's view rather than the instrumented one.
type MachineContext interface {
	FaultPC() uintptr
	FragmentStart() uintptr
	GPR(r instr.Reg) uint64
	SetGPR(r instr.Reg, v uint64)
	SIMD128(r instr.Reg) [16]byte
	SetSIMD128(r instr.Reg, v [16]byte)
	Flags() uint64
	SetFlags(v uint64)
	// DecodeAt decodes the emitted (or application) instruction at pc,
	// returning nil, false past the end of the fragment.
	DecodeAt(pc uintptr) (decoded instr.Emitted, appInsn AppInsn, size int, ok bool)
}

// PredicateState is the host's auto-predication context. spec.md §9 requires
// saving and restoring this around every multi-instruction emission batch
// so spill/restore code itself can never be accidentally predicated.
type PredicateState interface {
	Save() any
	ForceUnconditional()
	Restore(saved any)
}
