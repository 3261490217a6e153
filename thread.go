package regcore

import (
	"github.com/dbicore/regcore/internal/faultrewrite"
	"github.com/dbicore/regcore/internal/flagsengine"
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
	"github.com/dbicore/regcore/internal/liveness"
	"github.com/dbicore/regcore/internal/regstate"
	"github.com/dbicore/regcore/internal/reserve"
	"github.com/dbicore/regcore/internal/slotstore"
	"github.com/dbicore/regcore/internal/spillemit"
	"github.com/dbicore/regcore/internal/status"
)

// BBProperties are the client-supplied basic-block hints of spec.md §6's
// set_bb_properties. SetBBProperties records them for the current block
// and EndBlock clears them; the InsertionDriver does not consult them (its
// internal-control-flow rule follows BlockHandle.ContainsInternalControlFlow).
type BBProperties uint8

const (
	// IgnoreControlFlow hints that this block's internal jumps never
	// target an instruction the mediator has instrumented around.
	IgnoreControlFlow BBProperties = 1 << iota
	// ContainsSpanningControlFlow is the opposite hint: a branch may land
	// between two instrumented instructions.
	ContainsSpanningControlFlow
)

// Thread owns one instrumented thread's register bookkeeping, backing
// slot storage, and flags state machine (spec.md §3/§5: "one RegState,
// one SlotStore, one FlagsEngine instance per thread").
type Thread struct {
	mgr    *Manager
	layout instr.Layout

	table    *regstate.Table
	slots    *slotstore.SlotStore
	flags    *flagsengine.Engine
	reserver *reserve.Reserver
	rewriter *faultrewrite.Rewriter
	reporter *status.Reporter

	host               hostabi.HostScratchSlots
	pred               hostabi.PredicateState
	stolenValueOffset  int
	stolenValueIsValid bool

	block          hostabi.BlockHandle
	vec            *liveness.Vectors
	insertionPhase bool
	bbProps        BBProperties
}

// NewThread allocates a thread's backing slot storage from tls and builds
// the rest of its per-thread state using the Manager's currently merged
// options (spec.md §5: thread-start lifecycle, "all native").
func (m *Manager) NewThread(layout instr.Layout, tls hostabi.RawTLSSlots) (*Thread, status.Status) {
	opts := m.opts.Current()
	slots, err := slotstore.New(tls, int(opts.NumGPRSlots), int(opts.NumSIMDSlots))
	if err != nil {
		return nil, status.OutOfSlots
	}

	table := regstate.New(layout)
	flags := flagsengine.New(layout)
	reserver := reserve.New(layout, table, slots, flags)
	reserver.SetConservative(opts.Conservative)

	return &Thread{
		mgr:      m,
		layout:   layout,
		table:    table,
		slots:    slots,
		flags:    flags,
		reserver: reserver,
		rewriter: faultrewrite.New(slots),
		reporter: status.NewReporter(opts.ErrorCallback),
	}, status.Success
}

// SetHostScratchSlots attaches the host's non-preserved scratch-slot
// accessor, used both by RestoreAppValues to recover the stolen register's
// true application value and, more generally, by the reservation algorithm
// to delegate a GPR reservation once its direct slot array is exhausted
// (spec.md §3 invariant 4's host-slot-delegation path). stolenValueOffset is
// the host scratch-slot offset the host framework maintains the
// application's true stolen-register value at.
func (t *Thread) SetHostScratchSlots(host hostabi.HostScratchSlots, stolenValueOffset int) {
	t.host = host
	t.stolenValueOffset = stolenValueOffset
	t.stolenValueIsValid = true
	t.reserver.SetHostScratchSlots(host)
}

// SetPredicateState attaches the host's auto-predicate accessor, forcing
// every multi-instruction spill/restore batch this thread emits to be
// unconditional (spec.md §9).
func (t *Thread) SetPredicateState(pred hostabi.PredicateState) {
	t.pred = pred
	t.reserver.SetPredicateState(pred)
}

// emitter builds the spillemit.Emitter this thread's client-facing
// operations (outside the InsertionDriver's own forward pass, which builds
// its own) use to produce spill/restore code with the same host/predicate
// wiring.
func (t *Thread) emitter() spillemit.Emitter {
	return spillemit.Emitter{HiddenSlot: t.slots.HiddenSlot(), Scratch: t.layout.StolenGPR, Host: t.host, Pred: t.pred}
}

// Close releases the thread's backing slot storage (spec.md §5: every
// acquisition has a matching release on every thread-exit path).
func (t *Thread) Close() error {
	return t.slots.Close()
}

// SetBBProperties records the client's hints for the block currently being
// built (spec.md §6's set_bb_properties).
func (t *Thread) SetBBProperties(flags BBProperties) {
	t.bbProps = flags
}
