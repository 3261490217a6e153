// Package slotstore implements the thread-local backing memory of spec.md
// §4.2: a direct array of word-sized GPR slots (delegated to the host
// framework's raw TLS primitive) plus a 64-byte-aligned indirect block of
// SIMD slots reached through a pointer kept in one "hidden" direct slot.
package slotstore

import (
	"fmt"

	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/status"
)

// FlagsSlot is the reserved direct-slot index for the flags engine
// (spec.md §3 invariant 4).
const FlagsSlot = 0

// simdAlign is the required alignment, in bytes, of the indirect SIMD
// block (spec.md §4.2).
const simdAlign = 64

// simdSlotSize is the per-slot stride inside the indirect block: one cache
// line per 128-bit value, matching the source's one-slot-per-line layout.
const simdSlotSize = 64

// SlotStore owns one thread's direct slot bookkeeping and (if SIMD slots
// were requested) the aligned indirect block. It is created once per
// thread at init and released at thread exit.
type SlotStore struct {
	tls hostabi.RawTLSSlots

	segment    int
	baseOffset int

	numDirect  int // total direct slots, including FlagsSlot and HiddenSlot.
	hiddenSlot int // direct-slot index holding the SIMD block pointer; -1 if no SIMD.
	freeDirect []bool

	simd       alignedMem
	numSIMD    int
	freeSIMD   []bool

	freeHost []int // released host-slot indices, reused before growing nextHost.
	nextHost int
}

// New allocates numDirectSlots direct slots (slot 0 reserved for flags) plus,
// if numSIMDSlots > 0, a 64-byte-aligned indirect block and one additional
// hidden direct slot to hold its pointer — never more than one hidden slot,
// per the spec's "avoided defensively" guidance on a second hidden slot.
func New(tls hostabi.RawTLSSlots, numDirectSlots, numSIMDSlots int) (*SlotStore, error) {
	if numDirectSlots < 1 {
		return nil, status.New(status.InvalidParameter, "slotstore.New", "num_direct_slots", numDirectSlots)
	}

	want := numDirectSlots
	hidden := -1
	if numSIMDSlots > 0 {
		hidden = numDirectSlots
		want++
	}

	segment, base, err := tls.Calloc(want)
	if err != nil {
		return nil, status.New(status.OutOfSlots, "slotstore.New", "cause", err)
	}

	s := &SlotStore{
		tls:        tls,
		segment:    segment,
		baseOffset: base,
		numDirect:  want,
		hiddenSlot: hidden,
		freeDirect: make([]bool, want),
		numSIMD:    numSIMDSlots,
	}
	s.freeDirect[FlagsSlot] = false // reserved, never handed to AllocDirect.
	for i := 1; i < numDirectSlots; i++ {
		s.freeDirect[i] = true
	}
	if hidden >= 0 {
		s.freeDirect[hidden] = false // reserved for the pointer, never handed out.

		mem, merr := allocAligned(numSIMDSlots*simdSlotSize, simdAlign)
		if merr != nil {
			_ = tls.Free(segment)
			return nil, status.New(status.OutOfSlots, "slotstore.New", "cause", merr)
		}
		s.simd = mem
		s.freeSIMD = make([]bool, numSIMDSlots)
		for i := range s.freeSIMD {
			s.freeSIMD[i] = true
		}
	}
	return s, nil
}

// HiddenSlot returns the direct-slot index holding the SIMD block pointer,
// or -1 if this store was built without SIMD support.
func (s *SlotStore) HiddenSlot() int { return s.hiddenSlot }

// SIMDBasePointer returns the address generated code should load into a
// scratch GPR to reach the indirect block (spec.md §4.2's "load pointer,
// move SIMD register to/from [pointer + slot*64]").
func (s *SlotStore) SIMDBasePointer() uintptr {
	if s.simd == nil {
		return 0
	}
	return s.simd.addr()
}

// AllocDirect returns the first free direct GPR slot above the reserved
// flags/hidden slots (spec.md §4.3's "allocate the first free slot").
func (s *SlotStore) AllocDirect() (int, error) {
	for i, free := range s.freeDirect {
		if free {
			s.freeDirect[i] = false
			return i, nil
		}
	}
	return 0, status.New(status.OutOfSlots, "slotstore.AllocDirect")
}

// FreeDirect releases a direct slot previously returned by AllocDirect.
func (s *SlotStore) FreeDirect(slot int) error {
	if slot <= FlagsSlot || slot >= len(s.freeDirect) || slot == s.hiddenSlot {
		return status.New(status.InvalidParameter, "slotstore.FreeDirect", "slot", slot)
	}
	s.freeDirect[slot] = true
	return nil
}

// AllocHostSlot hands out the next host-delegated scratch-slot index
// (spec.md §3 invariant 4: "slots above num_direct_slots... delegated to the
// host framework's own spill slots"). Unlike AllocDirect, this can never
// fail with OutOfSlots: the index space is a plain, unbounded counter that
// the caller's attached hostabi.HostScratchSlots resolves to real storage,
// not a fixed-size array this package owns.
func (s *SlotStore) AllocHostSlot() int {
	if n := len(s.freeHost); n > 0 {
		idx := s.freeHost[n-1]
		s.freeHost = s.freeHost[:n-1]
		return idx
	}
	idx := s.nextHost
	s.nextHost++
	return idx
}

// FreeHostSlot releases a host-slot index previously returned by
// AllocHostSlot.
func (s *SlotStore) FreeHostSlot(idx int) error {
	if idx < 0 {
		return status.New(status.InvalidParameter, "slotstore.FreeHostSlot", "slot", idx)
	}
	s.freeHost = append(s.freeHost, idx)
	return nil
}

// AllocSIMD returns the first free slot inside the indirect block.
func (s *SlotStore) AllocSIMD() (int, error) {
	if s.simd == nil {
		return 0, status.New(status.FeatureNotAvailable, "slotstore.AllocSIMD")
	}
	for i, free := range s.freeSIMD {
		if free {
			s.freeSIMD[i] = false
			return i, nil
		}
	}
	return 0, status.New(status.OutOfSlots, "slotstore.AllocSIMD")
}

// FreeSIMD releases a SIMD slot previously returned by AllocSIMD.
func (s *SlotStore) FreeSIMD(slot int) error {
	if s.simd == nil || slot < 0 || slot >= len(s.freeSIMD) {
		return status.New(status.InvalidParameter, "slotstore.FreeSIMD", "slot", slot)
	}
	s.freeSIMD[slot] = true
	return nil
}

// SIMDOffset returns the byte offset of slot within the indirect block,
// i.e. the displacement generated code uses in `[pointer + disp]`.
func SIMDOffset(slot int) int { return slot * simdSlotSize }

// Segment returns the raw TLS segment selector backing this store's direct
// slots, part of the `reservation_info_ex` introspection surface
// (spec.md §6: `slot_offset`).
func (s *SlotStore) Segment() int { return s.segment }

// SlotOffset returns the raw TLS offset of a direct slot within Segment.
func (s *SlotStore) SlotOffset(slot int) int { return s.baseOffset + slot }

// ReadDirect reads the current word stored at a direct slot, used by
// FaultRewriter to recover a value that is still mapped to a slot after
// the decode walk (spec.md §4.6).
func (s *SlotStore) ReadDirect(slot int) (uint64, error) {
	return s.tls.Read(s.segment, s.baseOffset+slot)
}

// ReadSIMD128 reads the low 128 bits stored at a SIMD slot — the only
// width this core preserves (spec.md Non-goals excludes 256/512-bit
// preservation).
func (s *SlotStore) ReadSIMD128(slot int) ([16]byte, error) {
	var out [16]byte
	if s.simd == nil {
		return out, status.New(status.FeatureNotAvailable, "slotstore.ReadSIMD128")
	}
	raw := s.simd.bytes()
	off := SIMDOffset(slot)
	if off+16 > len(raw) {
		return out, status.New(status.InvalidParameter, "slotstore.ReadSIMD128", "slot", slot)
	}
	copy(out[:], raw[off:off+16])
	return out, nil
}

// WriteSIMD128ForTest seeds a SIMD slot's low 128 bits directly, standing
// in for the value a real movdqa spill would have written — test harnesses
// have no CPU executing the emitted instruction stream.
func (s *SlotStore) WriteSIMD128ForTest(slot int, v [16]byte) error {
	if s.simd == nil {
		return status.New(status.FeatureNotAvailable, "slotstore.WriteSIMD128ForTest")
	}
	raw := s.simd.bytes()
	off := SIMDOffset(slot)
	if off+16 > len(raw) {
		return status.New(status.InvalidParameter, "slotstore.WriteSIMD128ForTest", "slot", slot)
	}
	copy(raw[off:off+16], v[:])
	return nil
}

// Close releases the direct TLS segment and the indirect SIMD block. Every
// acquisition path has a matching release on every thread-exit path
// (spec.md §5's resource-discipline requirement).
func (s *SlotStore) Close() error {
	var errs []error
	if err := s.tls.Free(s.segment); err != nil {
		errs = append(errs, err)
	}
	if s.simd != nil {
		if err := s.simd.release(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("slotstore.Close: %v", errs)
	}
	return nil
}

// alignedMem is the platform-specific handle to the indirect SIMD block.
type alignedMem interface {
	addr() uintptr
	bytes() []byte
	release() error
}
