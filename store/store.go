// Package store defines the durable persistence contract for judgement
// states, the event log, and the display-name corpus. Mutations that touch
// a JudgementState's verification flags are expressed as a single
// optimistic compare-and-set primitive (Mutate) rather than bespoke
// conditional UPDATEs per transition, generalizing the teacher's
// conn.Changes()-guarded UPDATE pattern (see db/zombiezen and
// db/crawshaw/jobqueue.go) to every field and flag mutation the engine
// performs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/caasmo/regverify/primitives"
)

var (
	// ErrNotFound is returned when a requested context has no judgement
	// state, or a lookup by composite key finds nothing.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists is returned by InsertState when a state for the
	// context is already present; callers fall back to Mutate to merge.
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConcurrentUpdate is returned by Mutate when every retry attempt
	// lost the optimistic-concurrency race. Exceptionally rare under the
	// cooperative single-pool scheduling model this core assumes.
	ErrConcurrentUpdate = errors.New("store: exhausted retries on concurrent update")
)

// UpsertResult reports which branch of UpsertJudgementRequest's semantics
// fired, mirroring the three return states of the spec's
// upsert_judgement_request operation.
type UpsertResult int

const (
	UpsertInserted UpsertResult = iota
	UpsertUpdated
	UpsertUnchanged
)

// MutateFunc inspects and optionally mutates a fetched JudgementState. It
// returns changed=false to signal the guard wasn't met (e.g. the completion
// check finds is_fully_verified already true) — a no-op, not an error.
type MutateFunc func(s *primitives.JudgementState) (changed bool, err error)

// Store is the durable backend the verification engine, completion
// scheduler, and event notifier operate over.
type Store interface {
	// FetchState returns the current state for context, or ErrNotFound.
	FetchState(ctx context.Context, idctx primitives.IdentityContext) (*primitives.JudgementState, error)

	// InsertState inserts a brand new state verbatim. Returns
	// ErrAlreadyExists if context is already present.
	InsertState(ctx context.Context, state primitives.JudgementState) error

	// Mutate fetches the current state for idctx, applies fn, and writes
	// the result back guarded by an optimistic version check: the UPDATE
	// only takes effect if no other writer touched the row between fetch
	// and write. Returns applied=false (no error) when fn reports no
	// change. Returns ErrConcurrentUpdate if every retry loses the race.
	Mutate(ctx context.Context, idctx primitives.IdentityContext, fn MutateFunc) (applied bool, err error)

	// FetchCandidates returns every state on chain that is fully
	// verified, not yet judgement_submitted, and past its issue_judgement_at.
	FetchCandidates(ctx context.Context, chain primitives.ChainName) ([]primitives.JudgementState, error)

	// FindByFieldValue returns every state carrying a field with exactly the
	// given declared value, the cross-identity scan verify_message and
	// verify_second_challenge need to locate in-flight challenges by
	// external handle (multiple pending states may legally share one
	// handle).
	FindByFieldValue(ctx context.Context, value primitives.IdentityFieldValue) ([]primitives.JudgementState, error)

	// SetJudged conditionally flips judgement_submitted to true. Returns
	// applied=false if it was already true.
	SetJudged(ctx context.Context, idctx primitives.IdentityContext) (applied bool, err error)

	// ReclaimDangling flips judgement_submitted to true (without an event)
	// for every fully-verified, unsubmitted state whose completion_timestamp
	// is older than threshold. Returns the number reclaimed.
	ReclaimDangling(ctx context.Context, threshold time.Duration) (int, error)

	// InsertEvent appends msg to the event log, stamped with the current
	// time.
	InsertEvent(ctx context.Context, msg primitives.NotificationMessage) error

	// FetchEvents returns every event with timestamp > after, plus the
	// maximum timestamp observed (after itself if none).
	FetchEvents(ctx context.Context, after int64) ([]primitives.Event, int64, error)

	// UpsertDisplayName inserts entry if absent. Returns inserted=false if
	// the (context, display_name) pair was already present.
	UpsertDisplayName(ctx context.Context, entry primitives.DisplayNameEntry) (inserted bool, err error)

	// FetchDisplayNames enumerates the display-name corpus for chain.
	FetchDisplayNames(ctx context.Context, chain primitives.ChainName) ([]primitives.DisplayNameEntry, error)

	Close() error
}
