package notifier

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/regverify/primitives"
	"github.com/caasmo/regverify/store/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	mu      sync.Mutex
	bundles []Bundle
}

func (r *recordingSink) Publish(b Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles = append(r.bundles, b)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bundles)
}

func TestPollOnceDeliversNewEvents(t *testing.T) {
	s := mock.New()
	ctx := context.Background()

	idctx := primitives.NewIdentityContext("alice-addr", primitives.Polkadot)
	state := primitives.NewJudgementState(idctx, []primitives.IdentityFieldValue{primitives.NewDisplayName("Alice")})
	if err := s.InsertState(ctx, state); err != nil {
		t.Fatalf("InsertState: %v", err)
	}
	if err := s.InsertEvent(ctx, primitives.IdentityInserted(idctx)); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	sink := &recordingSink{}
	n := New(s, sink, Config{}, testLogger(), time.Now().Add(-time.Minute))

	if err := n.pollOnce(ctx); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("got %d bundles, want 1", sink.count())
	}
	if sink.bundles[0].Event.Message.Kind != primitives.NotifyIdentityInserted {
		t.Errorf("got kind %v, want identity_inserted", sink.bundles[0].Event.Message.Kind)
	}
	if sink.bundles[0].State.Context != idctx {
		t.Errorf("got context %v, want %v", sink.bundles[0].State.Context, idctx)
	}

	// A second poll with no new events delivers nothing.
	if err := n.pollOnce(ctx); err != nil {
		t.Fatalf("second pollOnce: %v", err)
	}
	if sink.count() != 1 {
		t.Errorf("got %d bundles after second poll, want 1 (no new events)", sink.count())
	}
}

func TestCursorSeededAtNowSkipsHistory(t *testing.T) {
	s := mock.New()
	ctx := context.Background()

	idctx := primitives.NewIdentityContext("bob-addr", primitives.Polkadot)
	state := primitives.NewJudgementState(idctx, []primitives.IdentityFieldValue{primitives.NewDisplayName("Bob")})
	if err := s.InsertState(ctx, state); err != nil {
		t.Fatalf("InsertState: %v", err)
	}
	if err := s.InsertEvent(ctx, primitives.IdentityInserted(idctx)); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	sink := &recordingSink{}
	// Cursor seeded at "now" (after the event above was stamped) must skip it.
	n := New(s, sink, Config{}, testLogger(), time.Now().Add(time.Minute))

	if err := n.pollOnce(ctx); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if sink.count() != 0 {
		t.Errorf("got %d bundles, want 0 (pre-construction history must not replay)", sink.count())
	}
}

func TestMultiSinkFansOutToAll(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	multi := NewMultiSink(a, b)

	bundle := Bundle{Event: primitives.NewEvent(primitives.IdentityInserted(
		primitives.NewIdentityContext("addr", primitives.Kusama)))}
	if err := multi.Publish(bundle); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("got a=%d b=%d, want both 1", a.count(), b.count())
	}
}
