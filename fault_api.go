package regcore

import (
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/status"
)

// AttachFaultRewriter registers FaultRewriter's callback with the host's
// fault dispatcher, per spec.md §4.6/§6: whenever a fault's PC lands
// inside instrumented code, the registered function rewrites the
// delivered machine context back to the application's view before the
// host's own handler (or the application's signal handler) ever sees it.
func (t *Thread) AttachFaultRewriter(reg hostabi.FaultCallbackRegistrar) error {
	return reg.RegisterFaultCallback(func(ctx hostabi.MachineContext) error {
		if st := t.rewriter.Rewrite(ctx); st != status.Success {
			return &faultRewriteError{status: st}
		}
		return nil
	})
}

// faultRewriteError adapts a status.Status into an error for the host's
// RegisterFaultCallback signature, which — unlike every other collaborator
// in this core — is a boundary the core does not control the shape of.
type faultRewriteError struct{ status status.Status }

func (e *faultRewriteError) Error() string { return "fault rewrite failed: " + e.status.String() }
