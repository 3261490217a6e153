package status

import (
	"fmt"
	"os"
)

// Callback is the user-supplied hook from Options.ErrorCallback: it receives
// the status that triggered an internal inconsistency and decides whether
// the core may continue (true) or must abort (false).
type Callback func(Status) bool

// Reporter routes internal-inconsistency faults (a client forgetting to
// unreserve a register at block end, a broken invariant caught by a debug
// assertion, ...) through the configured Callback, falling back to an abort
// strategy when none is set or the callback declines to continue.
type Reporter struct {
	cb Callback
}

// NewReporter builds a Reporter around cb. A nil cb means every internal
// inconsistency aborts the process, matching the teacher's AbortHandler
// default when no handler has been installed.
func NewReporter(cb Callback) *Reporter {
	return &Reporter{cb: cb}
}

// Report signals an internal inconsistency. It returns true when the caller
// may continue executing (the callback said so); otherwise it prints a
// diagnostic and terminates the process, since the core has no well-defined
// state to return control to.
func (r *Reporter) Report(s Status, op string, kv ...any) bool {
	f := New(s, op, kv...)
	if r.cb != nil && r.cb(s) {
		return true
	}
	fmt.Fprintf(os.Stderr, "regcore: fatal internal inconsistency: %s\n", f.Error())
	os.Exit(1)
	return false // unreachable
}

// Assert reports CategoryInternal via Error when cond is false. Intended for
// invariants that must hold between instructions (spec.md §3) when debug
// assertions are enabled by the host.
func (r *Reporter) Assert(cond bool, op string, kv ...any) {
	if !cond {
		r.Report(Error, op, kv...)
	}
}
