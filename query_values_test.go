package regcore

import (
	"testing"

	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/hostabi/fake"
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/procopts"
	"github.com/dbicore/regcore/internal/status"
)

func TestIsInstrSpillOrRestore_RecognisesEachShape(t *testing.T) {
	cases := []struct {
		name string
		in   instr.Emitted
		want SpillRestoreInfo
	}{
		{"direct spill", instr.DirectSpill{Reg: 2, Slot: 1}, SpillRestoreInfo{Spill: true, Reg: 2}},
		{"direct restore", instr.DirectRestore{Reg: 2, Slot: 1}, SpillRestoreInfo{Restore: true, Reg: 2}},
		{"indirect spill", instr.IndirectSpill{SIMDReg: 0, Slot: 0}, SpillRestoreInfo{Spill: true, Reg: 0}},
		{"host slot restore", instr.HostSlotRestore{Reg: 3, HostOffset: 8}, SpillRestoreInfo{Restore: true, Reg: 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st, got := IsInstrSpillOrRestore(c.in)
			if st != status.Success {
				t.Fatalf("status = %v, want Success", st)
			}
			if got != c.want {
				t.Fatalf("got %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestIsInstrSpillOrRestore_FlagsCaptureHasNoSingleRegister(t *testing.T) {
	st, _ := IsInstrSpillOrRestore(instr.FlagsCapture{Accumulator: 3})
	if st != status.InvalidParameter {
		t.Fatalf("status = %v, want InvalidParameter", st)
	}
}

func newTestThreadWithStolenReg(t *testing.T) *Thread {
	t.Helper()
	layout := instr.Layout{
		NumGPR: 5, NumSIMD: 0,
		StackPointer: -1, StolenGPR: 3, ProgramCtrGPR: -1,
		Accumulator: 4, HasFlagsToGPR: true,
	}
	m := NewManager()
	if _, err := m.Init(procopts.Options{NumGPRSlots: 4}, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	th, st := m.NewThread(layout, fake.NewTLS())
	if st != status.Success {
		t.Fatalf("NewThread status = %v", st)
	}
	return th
}

// RestoreAppValues recognises when an instruction doesn't reference the
// stolen register at all and reports NoAppValue rather than reserving
// anything.
func TestThread_RestoreAppValues_NoStolenRegisterReference(t *testing.T) {
	th := newTestThreadWithStolenReg(t)
	defer th.Close()

	insn := fake.Insn{Name: "load", Reads: []instr.Reg{0}}
	block := fake.NewBlock(insn)
	th.BeginBlock(block, nil)

	_, st := th.RestoreAppValues(0, insn, []instr.Reg{0, 1})
	if st != status.NoAppValue {
		t.Fatalf("status = %v, want NoAppValue", st)
	}
}

// When the instruction does reference the stolen register and a host
// scratch-slot accessor is attached, RestoreAppValues reserves a swap
// register and loads the stolen register's true value from the host's
// dedicated slot.
func TestThread_RestoreAppValues_LoadsFromHostSlot(t *testing.T) {
	th := newTestThreadWithStolenReg(t)
	defer th.Close()
	th.SetHostScratchSlots(fake.HostSlots{Base: 100}, 0)

	insn := fake.Insn{Name: "store", MemRegs: []instr.Reg{3}}
	block := fake.NewBlock(insn)
	th.BeginBlock(block, nil)

	swap, st := th.RestoreAppValues(0, insn, []instr.Reg{0, 1})
	if st != status.Success {
		t.Fatalf("status = %v", st)
	}
	found := false
	for _, e := range block.Before(0) {
		if hs, ok := e.(instr.HostSlotRestore); ok && hs.Reg == swap {
			found = true
		}
	}
	if !found {
		t.Fatalf("Before(0) = %v, want a HostSlotRestore into %v", block.Before(0), swap)
	}
}

var _ hostabi.AppInsn = fake.Insn{}
