package config

import (
	"fmt"
	"strings"
)

// Validate checks the entire configuration for correctness, aggregating
// per-section checks. Grounded on the teacher's config.Validate, which
// dispatches the same way across its own sections.
func Validate(cfg *Config) error {
	if cfg.DBFile == "" {
		return fmt.Errorf("config: db_file cannot be empty")
	}
	if cfg.AgeKeyPath == "" {
		return fmt.Errorf("config: age_key_path cannot be empty")
	}
	if cfg.Chain.Name == "" {
		return fmt.Errorf("config: chain.name cannot be empty")
	}
	if err := validateScheduler(&cfg.Scheduler); err != nil {
		return fmt.Errorf("scheduler config validation failed: %w", err)
	}
	if err := validateNotifier(&cfg.Notifier); err != nil {
		return fmt.Errorf("notifier config validation failed: %w", err)
	}
	if err := validateAbuseWatchdog(&cfg.AbuseWatchdog); err != nil {
		return fmt.Errorf("abuse_watchdog config validation failed: %w", err)
	}
	if err := validateDiscord(&cfg.Discord); err != nil {
		return fmt.Errorf("discord config validation failed: %w", err)
	}
	if err := validateLoggerBatch(&cfg.Log.Batch); err != nil {
		return fmt.Errorf("log.batch config validation failed: %w", err)
	}
	if err := validateLitestream(&cfg.Litestream); err != nil {
		return fmt.Errorf("litestream config validation failed: %w", err)
	}
	return nil
}

func validateScheduler(s *Scheduler) error {
	if s.ReclaimInterval.Duration <= 0 {
		return fmt.Errorf("reclaim_interval must be positive")
	}
	if s.DanglingThreshold.Duration <= 0 {
		return fmt.Errorf("dangling_threshold must be positive")
	}
	return nil
}

func validateNotifier(n *Notifier) error {
	if n.Interval.Duration <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if n.SinkRateLimit <= 0 {
		return fmt.Errorf("sink_rate_limit must be positive")
	}
	return nil
}

func validateAbuseWatchdog(w *AbuseWatchdog) error {
	if !w.Activated {
		return nil
	}
	if w.K <= 0 {
		return fmt.Errorf("k must be positive")
	}
	if w.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive")
	}
	if w.TickSize == 0 {
		return fmt.Errorf("tick_size must be positive")
	}
	if w.MaxSharePercent <= 0 || w.MaxSharePercent > 100 {
		return fmt.Errorf("max_share_percent must be between 1 and 100")
	}
	return nil
}

func validateDiscord(d *Discord) error {
	if !d.Activated {
		return nil
	}
	if d.WebhookURL == "" {
		return fmt.Errorf("webhook_url cannot be empty when activated")
	}
	if !strings.Contains(d.WebhookURL, "discord.com/api/webhooks/") &&
		!strings.Contains(d.WebhookURL, "discordapp.com/api/webhooks/") {
		return fmt.Errorf("webhook_url must contain discord.com/api/webhooks/ or discordapp.com/api/webhooks/")
	}
	return nil
}

func validateLoggerBatch(b *BatchLogger) error {
	if b.ChanSize < 1 {
		return fmt.Errorf("chan_size must be >= 1")
	}
	if b.FlushSize < 1 {
		return fmt.Errorf("flush_size must be >= 1")
	}
	if b.FlushInterval.Duration <= 0 {
		return fmt.Errorf("flush_interval must be positive")
	}
	if b.DbPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	return nil
}

func validateLitestream(l *Litestream) error {
	if !l.Activated {
		return nil
	}
	if l.ReplicaPath == "" {
		return fmt.Errorf("replica_path cannot be empty when activated")
	}
	if l.ReplicaName == "" {
		return fmt.Errorf("replica_name cannot be empty when activated")
	}
	return nil
}
