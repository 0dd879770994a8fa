package notifier

import "log/slog"

// LogSink logs every delivered bundle at info level. It is the default
// subscriber wired in by cmd/registrar-core when no external chain
// submitter is connected yet, mirroring the teacher's notify.NilNotifier
// as a harmless default rather than leaving Notifier with no sink at all.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "notifier_log_sink")}
}

func (s *LogSink) Publish(b Bundle) error {
	s.logger.Info("identity event",
		"kind", b.Event.Message.Kind,
		"context", b.Event.Message.Context,
		"timestamp", b.Event.Timestamp)
	return nil
}
