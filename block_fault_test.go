package regcore

import (
	"testing"

	gomock "go.uber.org/mock/gomock"

	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/hostabi/fake"
	"github.com/dbicore/regcore/internal/hostabi/mocks"
	"github.com/dbicore/regcore/internal/procopts"
)

// AttachToHost must register exactly the early and late hooks, at the
// caller's requested priorities, per spec.md §6's "priority-ordered basic
// block event registration".
func TestThread_AttachToHost_RegistersEarlyAndLateHooks(t *testing.T) {
	th := newTestThread(t, procopts.Options{NumGPRSlots: 4})
	defer th.Close()

	ctrl := gomock.NewController(t)
	reg := mocks.NewMockBBEventRegistrar(ctrl)

	var earlyHook, lateHook func(hostabi.BlockHandle)
	reg.EXPECT().Register(hostabi.BBEventEarly, 100, gomock.Any()).DoAndReturn(
		func(_ hostabi.BBEvent, _ int, hook func(hostabi.BlockHandle)) error {
			earlyHook = hook
			return nil
		})
	reg.EXPECT().Register(hostabi.BBEventLate, 1, gomock.Any()).DoAndReturn(
		func(_ hostabi.BBEvent, _ int, hook func(hostabi.BlockHandle)) error {
			lateHook = hook
			return nil
		})

	if err := th.AttachToHost(reg, 100, 1, nil); err != nil {
		t.Fatalf("AttachToHost: %v", err)
	}
	if earlyHook == nil || lateHook == nil {
		t.Fatal("expected both hooks to be captured")
	}

	block := fake.NewBlock(fake.Insn{Name: "nop"})
	earlyHook(block)
	if th.block == nil {
		t.Fatal("expected BeginBlock to have attached the block")
	}
	lateHook(block)
	if th.block != nil {
		t.Fatal("expected EndBlock to have detached the block")
	}
}

// AttachFaultRewriter must register exactly one callback with the host's
// fault dispatcher, and that callback must invoke the rewriter.
func TestThread_AttachFaultRewriter_RegistersCallback(t *testing.T) {
	th := newTestThread(t, procopts.Options{NumGPRSlots: 4})
	defer th.Close()

	ctrl := gomock.NewController(t)
	reg := mocks.NewMockFaultCallbackRegistrar(ctrl)

	var captured func(hostabi.MachineContext) error
	reg.EXPECT().RegisterFaultCallback(gomock.Any()).DoAndReturn(
		func(fn func(hostabi.MachineContext) error) error {
			captured = fn
			return nil
		})

	if err := th.AttachFaultRewriter(reg); err != nil {
		t.Fatalf("AttachFaultRewriter: %v", err)
	}
	if captured == nil {
		t.Fatal("expected the callback to be captured")
	}

	ctx := fake.NewContext(0, 0, nil)
	if err := captured(ctx); err != nil {
		t.Fatalf("callback returned error for an empty decode walk: %v", err)
	}
}
