package abuse

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/caasmo/regverify/config"
	"github.com/caasmo/regverify/notify"
)

type recordingSink struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (r *recordingSink) Send(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatchdogAlarmsOnDominantOrigin(t *testing.T) {
	sink := &recordingSink{}
	cfg := config.AbuseWatchdog{
		Activated:       true,
		K:               10,
		WindowSize:      4,
		Width:           256,
		Depth:           4,
		TickSize:        10,
		MaxSharePercent: 50,
		ActivationRPS:   0, // gate disabled so the test doesn't depend on wall-clock timing
	}
	w := New(cfg, sink, testLogger())

	// windowCapacity = WindowSize(4) * TickSize(10) = 40; at 50% share the
	// threshold is 20. A single origin hammering every tick accumulates
	// past that within three completed ticks (30 failures).
	for i := 0; i < 29; i++ {
		w.ObserveFailure("attacker@example.com")
	}
	if sink.count() != 0 {
		t.Fatalf("expected no alarm before the dominant origin crosses the share threshold, got %d", sink.count())
	}

	w.ObserveFailure("attacker@example.com")
	if sink.count() == 0 {
		t.Fatal("expected an alarm once the dominant origin crosses the share threshold")
	}
}

func TestWatchdogSilentUnderThreshold(t *testing.T) {
	sink := &recordingSink{}
	cfg := config.AbuseWatchdog{
		Activated:       true,
		K:               10,
		WindowSize:      4,
		Width:           256,
		Depth:           4,
		TickSize:        10,
		MaxSharePercent: 90,
		ActivationRPS:   0,
	}
	w := New(cfg, sink, testLogger())

	origins := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com",
		"f@x.com", "g@x.com", "h@x.com", "i@x.com", "j@x.com"}
	for _, o := range origins {
		w.ObserveFailure(o)
	}

	if sink.count() != 0 {
		t.Fatalf("expected no alarm when failures are spread evenly, got %d", sink.count())
	}
}
