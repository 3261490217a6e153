// Package procopts implements the process-wide options singleton of
// spec.md §5/§6: idempotent init/exit refcounting with merge semantics,
// plus a supplemented host-ABI version gate so a host framework built
// against an incompatible core cannot silently corrupt per-thread state.
package procopts

import (
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/dbicore/regcore/internal/status"
)

// Options mirrors the client-facing `init(options)` record of spec.md §6.
type Options struct {
	NumGPRSlots   uint32
	NumSIMDSlots  uint32
	Conservative  bool
	DoNotSumSlots bool
	ErrorCallback func(status.Status) bool

	// HostABIConstraint, if non-empty, is a semver constraint (e.g. ">=
	// 2.0.0, < 3.0.0") the host framework's reported ABI version must
	// satisfy. This supplements spec.md's options record: the source this
	// spec was distilled from assumes a single statically-linked host and
	// has no equivalent check, but a Go core built as an importable module
	// can easily be paired with an incompatible host at runtime.
	HostABIConstraint string
}

// Manager is the process-wide singleton: a refcount plus the merged
// options record, guarded by a mutex (spec.md §5: "mutex-guarded...
// module-scoped record initialised on first use").
type Manager struct {
	mu       sync.Mutex
	refcount int
	merged   Options
}

// NewManager constructs an unused Manager. Production code shares one
// Manager per process via the root regcore package; tests construct their
// own to avoid cross-test interference.
func NewManager() *Manager { return &Manager{} }

// Init merges opts into the process-wide record and increments the
// refcount (spec.md §5). hostABIVersion, if non-empty, is checked against
// opts.HostABIConstraint before anything else happens.
func (m *Manager) Init(opts Options, hostABIVersion string) (refcount int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if opts.HostABIConstraint != "" && hostABIVersion != "" {
		c, cerr := semver.NewConstraint(opts.HostABIConstraint)
		if cerr != nil {
			return m.refcount, cerr
		}
		v, verr := semver.NewVersion(hostABIVersion)
		if verr != nil {
			return m.refcount, verr
		}
		if !c.Check(v) {
			return m.refcount, status.New(status.InvalidParameter, "procopts.Init",
				"host_abi_version", hostABIVersion, "constraint", opts.HostABIConstraint)
		}
	}

	if m.refcount == 0 {
		m.merged = opts
	} else {
		m.merge(opts)
	}
	m.refcount++
	return m.refcount, nil
}

// merge folds opts into the already-initialized m.merged per spec.md §5:
// slot counts sum unless do_not_sum_slots is set anywhere, in which case
// the maximum wins; the error callback is first-writer-wins; the
// conservative flag is OR'd.
func (m *Manager) merge(opts Options) {
	sumSlots := !m.merged.DoNotSumSlots && !opts.DoNotSumSlots
	if sumSlots {
		m.merged.NumGPRSlots += opts.NumGPRSlots
		m.merged.NumSIMDSlots += opts.NumSIMDSlots
	} else {
		m.merged.NumGPRSlots = max(m.merged.NumGPRSlots, opts.NumGPRSlots)
		m.merged.NumSIMDSlots = max(m.merged.NumSIMDSlots, opts.NumSIMDSlots)
	}
	m.merged.Conservative = m.merged.Conservative || opts.Conservative
	m.merged.DoNotSumSlots = m.merged.DoNotSumSlots || opts.DoNotSumSlots
	if m.merged.ErrorCallback == nil {
		m.merged.ErrorCallback = opts.ErrorCallback
	}
}

func max(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Exit decrements the refcount. teardown reports whether this call
// dropped the count to zero, at which point the caller should release
// all process-wide resources.
func (m *Manager) Exit() (refcount int, teardown bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refcount == 0 {
		return 0, false
	}
	m.refcount--
	if m.refcount == 0 {
		m.merged = Options{}
		return 0, true
	}
	return m.refcount, false
}

// Current returns a copy of the merged options record.
func (m *Manager) Current() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merged
}

// Refcount returns the current init refcount.
func (m *Manager) Refcount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refcount
}
