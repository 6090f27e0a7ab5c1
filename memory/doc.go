// Package memory contains concrete SignalStore implementations. The store
// interface and SearchResult type reside in the core package. Depend on
// core.SignalStore in your code and select an implementation (like the
// in-memory store below) at wiring time.
//
// History is append-only: a signal is stored once and never changed or
// removed for the lifetime of a run.
package memory
