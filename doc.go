// Package regcore mediates register ownership between a dynamic binary
// instrumentation client and the application code a host DBI framework is
// instrumenting. It tracks which architectural registers currently hold
// live application values versus client-reserved tool values, spills and
// restores across that boundary, and rewrites a faulting thread's machine
// context back to the application's view when a fault lands inside
// instrumented code.
//
// A Manager is the process-wide entry point (init/exit, merged options).
// Each instrumented thread gets its own Thread, built by Manager.NewThread,
// which owns that thread's register bookkeeping, backing slot storage, and
// flags state machine, and exposes the client-facing reservation,
// flags, value-recovery, and introspection operations.
package regcore
