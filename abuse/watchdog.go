// Package abuse observes verification-failure volume per external message
// origin and raises an operational alarm when one origin's share of a
// sliding window crosses a configured threshold. Grounded on spec.md
// §4.3.7 (supplemented feature, not present in the distilled spec): a
// direct extension of the failed_attempts counter already in the data
// model, built on the teacher's topk.TopKSketch (otherwise unused in a
// pure verification core). Purely observational — it cannot affect
// verify_message's accept/reject outcome, only alarm operators.
package abuse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caasmo/regverify/config"
	"github.com/caasmo/regverify/notify"
	"github.com/caasmo/regverify/topk"
)

// Watchdog implements engine.FailureObserver: every ObserveFailure call
// feeds one origin into the sketch, and a completed tick that finds an
// origin over its share threshold is reported via notify.Notifier.
type Watchdog struct {
	sketch *topk.TopKSketch
	sink   notify.Notifier
	logger *slog.Logger
}

// New builds a Watchdog from the live AbuseWatchdog config section. Callers
// should only construct one when cfg.Activated is true; an inactive
// watchdog should simply not be wired as an engine.FailureObserver.
func New(cfg config.AbuseWatchdog, sink notify.Notifier, logger *slog.Logger) *Watchdog {
	params := topk.SketchParams{
		K:               cfg.K,
		WindowSize:      cfg.WindowSize,
		Width:           cfg.Width,
		Depth:           cfg.Depth,
		TickSize:        cfg.TickSize,
		MaxSharePercent: cfg.MaxSharePercent,
		ActivationRPS:   cfg.ActivationRPS,
	}
	return &Watchdog{
		sketch: topk.New(params),
		sink:   sink,
		logger: logger.With("component", "abuse_watchdog"),
	}
}

// ObserveFailure records one verification failure attributed to origin.
// When the recording completes a tick and origin's window share has
// crossed the configured threshold, it raises an Alarm notification.
// Sink errors are logged, not returned: alarming must never make
// verification fail.
func (w *Watchdog) ObserveFailure(origin string) {
	blocked := w.sketch.ProcessTick(origin)
	if len(blocked) == 0 {
		return
	}

	for _, item := range blocked {
		w.logger.Warn("origin exceeded failure-share threshold", "origin", item)

		n := notify.Notification{
			Type:    notify.Alarm,
			Source:  "abuse_watchdog",
			Message: fmt.Sprintf("origin %q exceeded verification-failure share threshold", item),
			Fields:  map[string]interface{}{"origin": item},
		}
		if err := w.sink.Send(context.Background(), n); err != nil {
			w.logger.Error("failed to send abuse alarm", "origin", item, "error", err)
		}
	}
}
