// Package mock is an in-memory store.Store implementation for engine,
// scheduler, and notifier unit tests. Grounded on the teacher's
// db/mock/mock.go (an interface-satisfying stand-in used across the test
// suite), but built as a real in-memory store rather than a function-field
// mock: the engine's Mutate-based CAS loops need genuine version/conflict
// semantics to test meaningfully, which function overrides can't express
// without duplicating the production logic anyway.
package mock

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/caasmo/regverify/primitives"
	"github.com/caasmo/regverify/store"
)

var _ store.Store = (*Store)(nil)

type row struct {
	state   primitives.JudgementState
	version int64
}

// Store is a mutex-guarded in-memory stand-in for store.Store.
type Store struct {
	mu          sync.Mutex
	identities  map[primitives.IdentityContext]*row
	events      []primitives.Event
	displayName map[displayNameKey]struct{}
	configs     map[string][][]byte
}

type displayNameKey struct {
	ctx  primitives.IdentityContext
	name string
}

func New() *Store {
	return &Store{
		identities:  make(map[primitives.IdentityContext]*row),
		displayName: make(map[displayNameKey]struct{}),
		configs:     make(map[string][][]byte),
	}
}

// clone round-trips through JSON to give callers an isolated copy, matching
// the store.Store contract that FetchState results are safe to mutate
// without affecting the backing store until a Mutate writes them back.
func clone(s primitives.JudgementState) primitives.JudgementState {
	b, err := json.Marshal(s)
	if err != nil {
		panic("store/mock: clone: " + err.Error())
	}
	var out primitives.JudgementState
	if err := json.Unmarshal(b, &out); err != nil {
		panic("store/mock: clone: " + err.Error())
	}
	return out
}

func (s *Store) FetchState(ctx context.Context, idctx primitives.IdentityContext) (*primitives.JudgementState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.identities[idctx]
	if !ok {
		return nil, store.ErrNotFound
	}
	state := clone(r.state)
	return &state, nil
}

func (s *Store) InsertState(ctx context.Context, state primitives.JudgementState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[state.Context]; ok {
		return store.ErrAlreadyExists
	}
	s.identities[state.Context] = &row{state: clone(state), version: 0}
	return nil
}

func (s *Store) Mutate(ctx context.Context, idctx primitives.IdentityContext, fn store.MutateFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.identities[idctx]
	if !ok {
		return false, store.ErrNotFound
	}

	state := clone(r.state)
	changed, err := fn(&state)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	r.state = clone(state)
	r.version++
	return true, nil
}

func (s *Store) FetchCandidates(ctx context.Context, chain primitives.ChainName) ([]primitives.JudgementState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	var out []primitives.JudgementState
	for idctx, r := range s.identities {
		if idctx.Chain != chain {
			continue
		}
		if !r.state.IsFullyVerified || r.state.JudgementSubmitted {
			continue
		}
		if r.state.IssueJudgementAt == nil || *r.state.IssueJudgementAt >= now {
			continue
		}
		out = append(out, clone(r.state))
	}
	return out, nil
}

func (s *Store) FindByFieldValue(ctx context.Context, value primitives.IdentityFieldValue) ([]primitives.JudgementState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []primitives.JudgementState
	for _, r := range s.identities {
		if r.state.Field(value) != nil {
			out = append(out, clone(r.state))
		}
	}
	return out, nil
}

func (s *Store) SetJudged(ctx context.Context, idctx primitives.IdentityContext) (bool, error) {
	return s.Mutate(ctx, idctx, func(st *primitives.JudgementState) (bool, error) {
		if st.JudgementSubmitted {
			return false, nil
		}
		st.JudgementSubmitted = true
		return true, nil
	})
}

func (s *Store) ReclaimDangling(ctx context.Context, threshold time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-threshold).Unix()
	n := 0
	for _, r := range s.identities {
		if !r.state.IsFullyVerified || r.state.JudgementSubmitted {
			continue
		}
		if r.state.CompletionTimestamp == nil || *r.state.CompletionTimestamp >= cutoff {
			continue
		}
		r.state.JudgementSubmitted = true
		r.version++
		n++
	}
	return n, nil
}

func (s *Store) InsertEvent(ctx context.Context, msg primitives.NotificationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, primitives.NewEvent(msg))
	return nil
}

func (s *Store) FetchEvents(ctx context.Context, after int64) ([]primitives.Event, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursor := after
	var out []primitives.Event
	for _, e := range s.events {
		if e.Timestamp > after {
			out = append(out, e)
			if e.Timestamp > cursor {
				cursor = e.Timestamp
			}
		}
	}
	return out, cursor, nil
}

func (s *Store) UpsertDisplayName(ctx context.Context, entry primitives.DisplayNameEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := displayNameKey{ctx: entry.Context, name: entry.DisplayName}
	if _, ok := s.displayName[key]; ok {
		return false, nil
	}
	s.displayName[key] = struct{}{}
	return true, nil
}

func (s *Store) FetchDisplayNames(ctx context.Context, chain primitives.ChainName) ([]primitives.DisplayNameEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []primitives.DisplayNameEntry
	for key := range s.displayName {
		if key.ctx.Chain != chain {
			continue
		}
		out = append(out, primitives.DisplayNameEntry{Context: key.ctx, DisplayName: key.name})
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
