package zombiezen

import (
	"context"
	"testing"

	"github.com/caasmo/regverify/primitives"
	"github.com/caasmo/regverify/store"
)

func aliceContext() primitives.IdentityContext {
	return primitives.NewIdentityContext("alice-addr", primitives.Polkadot)
}

func aliceState() primitives.JudgementState {
	return primitives.NewJudgementState(aliceContext(), []primitives.IdentityFieldValue{
		primitives.NewDisplayName("Alice"),
		primitives.NewEmail("alice@example.com"),
	})
}

func TestInsertAndFetchState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertState(ctx, aliceState()); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	got, err := s.FetchState(ctx, aliceContext())
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if got.Context != aliceContext() {
		t.Errorf("got context %+v, want %+v", got.Context, aliceContext())
	}
	if len(got.Fields) != 2 {
		t.Errorf("got %d fields, want 2", len(got.Fields))
	}
}

func TestInsertStateAlreadyExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertState(ctx, aliceState()); err != nil {
		t.Fatalf("InsertState: %v", err)
	}
	if err := s.InsertState(ctx, aliceState()); err != store.ErrAlreadyExists {
		t.Fatalf("got %v, want store.ErrAlreadyExists", err)
	}
}

func TestFetchStateNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FetchState(context.Background(), aliceContext()); err != store.ErrNotFound {
		t.Fatalf("got %v, want store.ErrNotFound", err)
	}
}

func TestMutateAppliesAndPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.InsertState(ctx, aliceState()); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	applied, err := s.Mutate(ctx, aliceContext(), func(st *primitives.JudgementState) (bool, error) {
		email := st.FieldByKind(primitives.FieldEmail)
		email.Challenge.ExpectedMessage.Expected.IsVerified = true
		return true, nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !applied {
		t.Fatal("expected Mutate to apply")
	}

	got, err := s.FetchState(ctx, aliceContext())
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	email := got.FieldByKind(primitives.FieldEmail)
	if !email.Challenge.ExpectedMessage.Expected.IsVerified {
		t.Error("mutation did not persist")
	}
}

func TestMutateNoopReturnsNotAppliedWithoutError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.InsertState(ctx, aliceState()); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	applied, err := s.Mutate(ctx, aliceContext(), func(st *primitives.JudgementState) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected applied=false for a no-op mutation")
	}
}

func TestSetJudgedIsConditional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.InsertState(ctx, aliceState()); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	applied, err := s.SetJudged(ctx, aliceContext())
	if err != nil || !applied {
		t.Fatalf("first SetJudged: applied=%v err=%v", applied, err)
	}

	applied, err = s.SetJudged(ctx, aliceContext())
	if err != nil {
		t.Fatalf("second SetJudged: %v", err)
	}
	if applied {
		t.Fatal("second SetJudged should be a no-op")
	}
}

func TestFetchCandidatesFiltersByReadiness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	past := aliceState()
	past.IsFullyVerified = true
	pastTime := int64(1)
	past.IssueJudgementAt = &pastTime
	if err := s.InsertState(ctx, past); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	notReady := primitives.NewJudgementState(
		primitives.NewIdentityContext("bob-addr", primitives.Polkadot),
		[]primitives.IdentityFieldValue{primitives.NewDisplayName("Bob")})
	if err := s.InsertState(ctx, notReady); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	candidates, err := s.FetchCandidates(ctx, primitives.Polkadot)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Context != aliceContext() {
		t.Errorf("got candidate %+v, want alice", candidates[0].Context)
	}
}

func TestReclaimDangling(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stuck := aliceState()
	stuck.IsFullyVerified = true
	stuckTime := int64(1)
	stuck.CompletionTimestamp = &stuckTime
	if err := s.InsertState(ctx, stuck); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	n, err := s.ReclaimDangling(ctx, 0)
	if err != nil {
		t.Fatalf("ReclaimDangling: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d reclaimed, want 1", n)
	}

	got, err := s.FetchState(ctx, aliceContext())
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if !got.JudgementSubmitted {
		t.Error("reclaimed state should have judgement_submitted=true")
	}
}
