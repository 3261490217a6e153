package regcore

import (
	"testing"

	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/hostabi/fake"
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/procopts"
	"github.com/dbicore/regcore/internal/status"
)

func testLayout() instr.Layout {
	return instr.Layout{
		NumGPR: 4, NumSIMD: 0,
		StackPointer: -1, StolenGPR: -1, ProgramCtrGPR: -1,
		Accumulator: 3, HasFlagsToGPR: true,
	}
}

func newTestThread(t *testing.T, opts procopts.Options) *Thread {
	t.Helper()
	m := NewManager()
	if _, err := m.Init(opts, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	th, st := m.NewThread(testLayout(), fake.NewTLS())
	if st != status.Success {
		t.Fatalf("NewThread status = %v", st)
	}
	return th
}

// Reserving a register that stays live for the whole block spills it on
// reservation and, once the client unreserves it before the application
// instruction that needs it, EndBlock's lazy restore brings it back
// native — spec.md §8's end-of-block conservation property.
func TestThread_ReserveUnreserveLazyRestoreLifecycle(t *testing.T) {
	th := newTestThread(t, procopts.Options{NumGPRSlots: 4})
	defer th.Close()

	const liveReg instr.Reg = 2
	insns := []hostabi.AppInsn{
		fake.Insn{Name: "i0", Reads: []instr.Reg{liveReg}, WritesEx: []instr.Reg{0}},
		fake.Insn{Name: "i1", Reads: []instr.Reg{liveReg}, WritesEx: []instr.Reg{1}},
	}
	block := fake.NewBlock(insns...)

	th.BeginBlock(block, nil)

	reg, st := th.ReserveRegister(instr.GPR, []instr.Reg{liveReg}, 0)
	if st != status.Success {
		t.Fatalf("ReserveRegister status = %v", st)
	}
	if reg != liveReg {
		t.Fatalf("ReserveRegister reg = %v, want %v", reg, liveReg)
	}
	if st := th.UnreserveRegister(instr.GPR, reg); st != status.Success {
		t.Fatalf("UnreserveRegister status = %v", st)
	}

	if st := th.EndBlock(); st != status.Success {
		t.Fatalf("EndBlock status = %v", st)
	}
	if !th.table.AllNative() {
		t.Fatal("expected every register native after EndBlock")
	}

	before0 := block.Before(0)
	if len(before0) < 2 {
		t.Fatalf("Before(0) = %v, want at least a spill then a restore", before0)
	}
	if _, ok := before0[0].(instr.DirectSpill); !ok {
		t.Fatalf("Before(0)[0] = %T, want DirectSpill", before0[0])
	}
	if _, ok := before0[len(before0)-1].(instr.DirectRestore); !ok {
		t.Fatalf("Before(0) last = %T, want DirectRestore", before0[len(before0)-1])
	}
}

// ReserveDeadRegister never spills: reg 0 is written (so dead) before any
// read, and must come back with no emitted code.
func TestThread_ReserveDeadRegisterNoSpill(t *testing.T) {
	th := newTestThread(t, procopts.Options{NumGPRSlots: 4})
	defer th.Close()

	insns := []hostabi.AppInsn{
		fake.Insn{Name: "i0", WritesEx: []instr.Reg{0}},
	}
	block := fake.NewBlock(insns...)
	th.BeginBlock(block, nil)

	reg, st := th.ReserveDeadRegister(instr.GPR, []instr.Reg{0}, 0)
	if st != status.Success {
		t.Fatalf("ReserveDeadRegister status = %v", st)
	}
	if reg != 0 {
		t.Fatalf("reg = %v, want 0", reg)
	}
	if len(block.Before(0)) != 0 {
		t.Fatalf("Before(0) = %v, want no emitted spill for a dead register", block.Before(0))
	}
	// Leave it reserved: exercise ReservationInfoEx while in use.
	info := th.ReservationInfoEx(instr.GPR, 0)
	if !info.Reserved {
		t.Fatal("expected Reserved = true")
	}

	if st := th.UnreserveRegister(instr.GPR, 0); st != status.Success {
		t.Fatalf("UnreserveRegister: %v", st)
	}
	if st := th.EndBlock(); st != status.Success {
		t.Fatalf("EndBlock: %v", st)
	}
}

// A native register's app value lives in the register itself; GetAppValue
// and ReservationInfoEx must agree before anything is ever reserved.
func TestThread_GetAppValue_NativeRegister(t *testing.T) {
	th := newTestThread(t, procopts.Options{NumGPRSlots: 4})
	defer th.Close()

	ref, st := th.GetAppValue(instr.GPR, 1)
	if st != status.Success {
		t.Fatalf("GetAppValue status = %v", st)
	}
	if !ref.IsRegister || ref.Reg != 1 {
		t.Fatalf("ref = %+v, want native register 1", ref)
	}

	info := th.ReservationInfoEx(instr.GPR, 1)
	if !info.HoldsAppValue || !info.AppValueRetained {
		t.Fatalf("info = %+v, want a native register to hold+retain the app value", info)
	}
}

// reserve_aflags followed by unreserve_aflags inside the insertion phase
// defers the restore to EndBlock.
func TestThread_AFlagsReserveUnreserveLifecycle(t *testing.T) {
	th := newTestThread(t, procopts.Options{NumGPRSlots: 4})
	defer th.Close()

	insns := []hostabi.AppInsn{
		fake.Insn{Name: "i0", FlagsR: instr.FlagZF},
	}
	block := fake.NewBlock(insns...)
	th.BeginBlock(block, nil)

	if st := th.ReserveAFlags(0); st != status.Success {
		t.Fatalf("ReserveAFlags: %v", st)
	}
	if st := th.UnreserveAFlags(0); st != status.Success {
		t.Fatalf("UnreserveAFlags: %v", st)
	}
	if st := th.EndBlock(); st != status.Success {
		t.Fatalf("EndBlock: %v", st)
	}
}
