package faultrewrite

import (
	"testing"

	"github.com/dbicore/regcore/internal/hostabi/fake"
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/slotstore"
	"github.com/dbicore/regcore/internal/status"
)

const (
	A       instr.Reg = 0
	appSlot           = 1
	tmpSlot           = 2
)

// spec.md §8 scenario 5: a fault lands just after "spill A->appslot" and
// before "restore tmp->A". The rewriter must see the initial spill to
// appslot (recorded), the tool-value temp spill (ignored as a second spill
// of the same register), the restore from appslot (erases the mapping),
// and conclude the app's original value (the one written to appslot) is
// recovered.
func TestRewrite_FaultMidSandwich(t *testing.T) {
	tls := fake.NewTLS()
	store, err := slotstore.New(tls, 4, 2)
	if err != nil {
		t.Fatalf("slotstore.New: %v", err)
	}
	if err := tls.WriteForTest(store.Segment(), store.SlotOffset(appSlot), 0xAAAA); err != nil {
		t.Fatalf("WriteForTest: %v", err)
	}

	// Sequence executed before the fault: spill A->appslot (initial); spill
	// A->tmp (tool-value temp, ignored); restore A<-appslot (erases the
	// mapping). The fault lands right after that restore, before the app
	// write to A actually executes — so no mapping should remain.
	script := []fake.ScriptedInsn{
		{Emitted: instr.DirectSpill{Reg: A, Slot: appSlot}, Size: 1},
		{Emitted: instr.DirectSpill{Reg: A, Slot: tmpSlot}, Size: 1},
		{Emitted: instr.DirectRestore{Reg: A, Slot: appSlot}, Size: 1},
	}
	ctx := fake.NewContext(0, 3, script)
	ctx.SetGPR(A, 0xDEADBEEF) // whatever value is currently in the register at fault time.

	rw := New(store)
	if st := rw.Rewrite(ctx); st != status.Success {
		t.Fatalf("Rewrite status = %v", st)
	}

	// A was never left mapped past the restore, so the rewriter must not
	// have touched it: the register keeps whatever the fault delivered.
	if got := ctx.GPR(A); got != 0xDEADBEEF {
		t.Fatalf("GPR(A) = %#x, want unchanged 0xDEADBEEF (no outstanding mapping)", got)
	}
}

// A fault landing right after the initial spill (before the tool-temp
// dance even starts) must recover A from appslot.
func TestRewrite_FaultAfterInitialSpillOnly(t *testing.T) {
	tls := fake.NewTLS()
	store, err := slotstore.New(tls, 4, 2)
	if err != nil {
		t.Fatalf("slotstore.New: %v", err)
	}
	if err := tls.WriteForTest(store.Segment(), store.SlotOffset(appSlot), 0xCAFEBABE); err != nil {
		t.Fatalf("WriteForTest: %v", err)
	}

	script := []fake.ScriptedInsn{
		{Emitted: instr.DirectSpill{Reg: A, Slot: appSlot}, Size: 1},
	}
	ctx := fake.NewContext(0, 1, script)

	rw := New(store)
	if st := rw.Rewrite(ctx); st != status.Success {
		t.Fatalf("Rewrite status = %v", st)
	}
	if got := ctx.GPR(A); got != 0xCAFEBABE {
		t.Fatalf("GPR(A) = %#x, want 0xCAFEBABE", got)
	}
}

// spec.md §8 scenario 6: SIMD spill/restore. The rewriter recognises the
// two-instruction indirect sequence and reads 16 bytes out of the SIMD
// block on a fault that lands after the spill.
func TestRewrite_SIMDSpillRecognised(t *testing.T) {
	const X instr.Reg = 0
	const scratch instr.Reg = 3
	tls := fake.NewTLS()
	store, err := slotstore.New(tls, 4, 2)
	if err != nil {
		t.Fatalf("slotstore.New: %v", err)
	}

	want := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if err := store.WriteSIMD128ForTest(0, want); err != nil {
		t.Fatalf("WriteSIMD128ForTest: %v", err)
	}

	script := []fake.ScriptedInsn{
		{Emitted: instr.IndirectLoadPtr{Scratch: scratch, HidSlot: store.HiddenSlot()}, Size: 1},
		{Emitted: instr.IndirectSpill{SIMDReg: X, Scratch: scratch, Slot: 0}, Size: 1},
	}
	ctx := fake.NewContext(0, 2, script)

	rw := New(store)
	if st := rw.Rewrite(ctx); st != status.Success {
		t.Fatalf("Rewrite status = %v", st)
	}
	if got := ctx.SIMD128(X); got != want {
		t.Fatalf("SIMD128(X) = %v, want %v", got, want)
	}
}
