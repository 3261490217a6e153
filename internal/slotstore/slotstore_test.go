package slotstore

import (
	"testing"

	"github.com/dbicore/regcore/internal/hostabi/fake"
)

func TestNew_ReservesFlagsAndHiddenSlots(t *testing.T) {
	tls := fake.NewTLS()
	s, err := New(tls, 4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if s.HiddenSlot() < 0 {
		t.Fatal("expected a hidden slot when SIMD slots were requested")
	}
	if s.SIMDBasePointer() == 0 {
		t.Fatal("expected a non-zero SIMD base pointer")
	}
}

func TestAllocDirect_NeverHandsOutReservedSlots(t *testing.T) {
	tls := fake.NewTLS()
	s, err := New(tls, 2, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	slot, err := s.AllocDirect()
	if err != nil {
		t.Fatalf("AllocDirect: %v", err)
	}
	if slot == FlagsSlot {
		t.Fatal("AllocDirect must never hand out the flags slot")
	}

	if _, err := s.AllocDirect(); err == nil {
		t.Fatal("expected OutOfSlots once the single free direct slot is exhausted")
	}

	if err := s.FreeDirect(slot); err != nil {
		t.Fatalf("FreeDirect: %v", err)
	}
	if _, err := s.AllocDirect(); err != nil {
		t.Fatalf("AllocDirect after free: %v", err)
	}
}

func TestAllocSIMD_WithoutSIMDSlotsIsFeatureNotAvailable(t *testing.T) {
	tls := fake.NewTLS()
	s, err := New(tls, 2, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := s.AllocSIMD(); err == nil {
		t.Fatal("expected an error allocating a SIMD slot with numSIMDSlots=0")
	}
}

func TestAllocSIMD_RoundTrip(t *testing.T) {
	tls := fake.NewTLS()
	s, err := New(tls, 2, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	a, err := s.AllocSIMD()
	if err != nil {
		t.Fatalf("AllocSIMD: %v", err)
	}
	b, err := s.AllocSIMD()
	if err != nil {
		t.Fatalf("AllocSIMD: %v", err)
	}
	if a == b {
		t.Fatal("two allocations returned the same slot")
	}
	if err := s.FreeSIMD(a); err != nil {
		t.Fatalf("FreeSIMD: %v", err)
	}
}
