package regcore

import (
	"github.com/dbicore/regcore/internal/procopts"
)

// Manager is the process-wide singleton every embedding host creates once
// and shares across all instrumented threads (spec.md §5).
type Manager struct {
	opts *procopts.Manager
}

// NewManager constructs an unused Manager. A host framework typically
// builds exactly one and stores it globally; tests construct their own to
// avoid cross-test interference.
func NewManager() *Manager {
	return &Manager{opts: procopts.NewManager()}
}

// Init merges opts into the process-wide record and increments the
// refcount, per spec.md §5/§6. hostABIVersion, when non-empty, is checked
// against opts.HostABIConstraint before anything else happens.
func (m *Manager) Init(opts procopts.Options, hostABIVersion string) (refcount int, err error) {
	return m.opts.Init(opts, hostABIVersion)
}

// Exit decrements the refcount. teardown reports whether this call dropped
// the count to zero; the caller should not construct further Threads from
// this Manager until it is re-initialized.
func (m *Manager) Exit() (refcount int, teardown bool) {
	return m.opts.Exit()
}

// Options returns the currently merged process-wide options.
func (m *Manager) Options() procopts.Options {
	return m.opts.Current()
}
