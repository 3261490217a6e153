package regcore

import (
	"testing"

	"github.com/dbicore/regcore/internal/procopts"
)

func TestManager_InitExitLifecycle(t *testing.T) {
	m := NewManager()

	rc, err := m.Init(procopts.Options{NumGPRSlots: 4, NumSIMDSlots: 2}, "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if rc != 1 {
		t.Fatalf("refcount = %d, want 1", rc)
	}
	if got := m.Options().NumGPRSlots; got != 4 {
		t.Fatalf("NumGPRSlots = %d, want 4", got)
	}

	rc, teardown := m.Exit()
	if !teardown || rc != 0 {
		t.Fatalf("Exit: rc=%d teardown=%v, want rc=0 teardown=true", rc, teardown)
	}
}
