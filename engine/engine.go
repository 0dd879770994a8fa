// Package engine is the verification engine: the merge, transition, and
// event-emission logic layered over store.Store's low-level CRUD/CAS
// primitives. Grounded on original_source/src/database.rs (Database), split
// from the store per the state-store/engine boundary this module draws
// where the Rust original blends both into one struct.
package engine

import (
	"log/slog"

	"github.com/caasmo/regverify/store"
)

// FailureObserver is notified of every field verification failure, so a
// component like abuse.Watchdog can track failure volume per origin
// without the engine depending on it directly. Read-only: it cannot
// affect verify_message's accept/reject outcome.
type FailureObserver interface {
	ObserveFailure(origin string)
}

// Engine composes a store.Store with the business rules of spec.md §4.3:
// message verification, manual overrides, and the completion check that
// follows every mutation capable of changing verification status.
type Engine struct {
	store        store.Store
	logger       *slog.Logger
	failures     FailureObserver
	displayNames displayNameCache
}

type Option func(*Engine)

// WithFailureObserver attaches an observer notified on every field
// verification failure. Optional; a nil observer (the default) disables
// the hook entirely.
func WithFailureObserver(o FailureObserver) Option {
	return func(e *Engine) { e.failures = o }
}

func New(s store.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{store: s, logger: logger.With("component", "engine")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
