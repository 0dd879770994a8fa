package notifier

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// RateLimitedSink wraps a Sink with a token-bucket limiter, grounded on the
// teacher's notify/discord.Notifier's use of golang.org/x/time/rate: bundles
// beyond the limit are logged and dropped rather than delivered. Allowed
// bundles go to the wrapped sink's Publish synchronously on the poll loop,
// so a slow wrapped sink still delays the loop.
type RateLimitedSink struct {
	sink    Sink
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimitedSink wraps sink with a limiter allowing limit events/sec,
// bursting up to burst.
func NewRateLimitedSink(sink Sink, limit rate.Limit, burst int, logger *slog.Logger) *RateLimitedSink {
	return &RateLimitedSink{
		sink:    sink,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

func (s *RateLimitedSink) Publish(b Bundle) error {
	if !s.limiter.Allow() {
		s.logger.Warn("notifier: sink rate limit reached, dropping bundle",
			"context", b.Event.Message.Context, "event", b.Event.Message.Kind)
		return nil
	}
	return s.sink.Publish(b)
}

// MultiSink fans a bundle out to every registered sink, mirroring the
// teacher's notify.MultiNotifier. Stops and returns the first error, same
// as MultiNotifier.Send.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Publish(b Bundle) error {
	for _, s := range m.sinks {
		if err := s.Publish(b); err != nil {
			return err
		}
	}
	return nil
}
