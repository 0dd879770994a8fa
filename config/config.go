// Package config holds the verification core's runtime configuration: an
// atomically-swappable snapshot (Provider), the TOML shape it is decoded
// from, and the age-encrypted secure store it and its secrets are loaded
// through. Grounded on the teacher's config.Provider/SecureConfig split,
// generalized from a web-app's JWT/OAuth2/SMTP surface to this domain's
// chain/scheduler/notifier/watchdog surface.
package config

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Provider holds the current configuration and allows atomic hot-reload.
type Provider struct {
	value atomic.Value // holds the current *Config
}

// NewProvider creates a Provider seeded with the given config. Panics if c
// is nil: a Provider with no config is a programmer error, not a runtime one.
func NewProvider(c *Config) *Provider {
	if c == nil {
		panic("config: initial config cannot be nil")
	}
	p := &Provider{}
	p.value.Store(c)
	return p
}

// Get returns the current configuration snapshot. Safe for concurrent use.
func (p *Provider) Get() *Config {
	return p.value.Load().(*Config)
}

// Update atomically swaps in a new configuration. Callers must validate
// newConfig before calling Update; the provider does not validate.
func (p *Provider) Update(newConfig *Config) {
	p.value.Store(newConfig)
}

// Duration wraps time.Duration so it can be read from TOML as a string
// ("30s", "2h") rather than a raw integer of nanoseconds. Grounded on the
// teacher's config.Duration (exercised by its config_test.go, though the
// type definition itself never made it into the copied config.go).
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LogLevel wraps slog.Level for TOML string decoding ("debug", "info",
// "warn", "error"), mirroring the teacher's config.LogLevel. Kept as a
// plain int rather than importing log/slog, since the only consumer needs
// the numeric level to hand to slog.HandlerOptions.
type LogLevel struct {
	Level int
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "debug":
		l.Level = -4
	case "info", "":
		l.Level = 0
	case "warn":
		l.Level = 4
	case "error":
		l.Level = 8
	default:
		return fmt.Errorf("config: invalid log level %q", text)
	}
	return nil
}

func (l LogLevel) MarshalText() ([]byte, error) {
	switch l.Level {
	case -4:
		return []byte("debug"), nil
	case 0:
		return []byte("info"), nil
	case 4:
		return []byte("warn"), nil
	case 8:
		return []byte("error"), nil
	}
	return nil, fmt.Errorf("config: log level %d has no name", l.Level)
}

// ChainConfig names the chain a deployment administers. admin.Command is
// scoped to one primitives.ChainName per deployment; the binary wiring
// supplies this once at startup.
type ChainConfig struct {
	Name string
}

// Scheduler configures the completion scheduler's dangling-reclaim ticker.
type Scheduler struct {
	ReclaimInterval   Duration
	DanglingThreshold Duration
}

// Notifier configures the event notifier's poll ticker and its subscriber
// rate limit.
type Notifier struct {
	Interval      Duration
	SinkRateLimit float64 // events/sec allowed per sink before dropping
	SinkBurst     int
}

// AbuseWatchdog configures the sliding-window top-K sketch that tracks
// verification-failure volume per external message origin. Field names
// mirror topk.SketchParams directly; this struct is the TOML-facing
// counterpart converted to a topk.SketchParams at wiring time.
type AbuseWatchdog struct {
	Activated       bool
	K               int
	WindowSize      int
	Width           int
	Depth           int
	TickSize        uint64
	MaxSharePercent int
	ActivationRPS   int
}

// Discord configures the ops-alarm sink used by the abuse watchdog, grounded
// on the teacher's notify/discord.Options. The scheduler does not send to
// it: dangling-reclaim failures are only logged.
type Discord struct {
	Activated   bool
	WebhookURL  string
	RateLimit   float64
	Burst       int
	SendTimeout Duration
}

// BatchLogger configures the non-blocking log batching daemon, grounded on
// the teacher's logger package.
type BatchLogger struct {
	ChanSize      int
	FlushSize     int
	FlushInterval Duration
	DbPath        string
}

// Log configures structured logging: the minimum level and the batch
// daemon that drains records into the store's own SQLite database.
type Log struct {
	Level LogLevel
	Batch BatchLogger
}

// Litestream configures continuous off-host replication of the store's
// SQLite file, grounded on the teacher's backup/litestream.go.
type Litestream struct {
	Activated   bool
	ReplicaPath string
	ReplicaName string
}

// Admin holds a listen address for an admin surface. No binary in this
// module reads it: cmd/regadmin takes its commands from stdin.
type Admin struct {
	ListenAddr string
}

// Config is the verification core's complete runtime configuration,
// decoded from TOML via BurntSushi/toml, validated once at startup via
// Validate, and held in a Provider for hot-reload.
type Config struct {
	DBFile        string
	AgeKeyPath    string
	Chain         ChainConfig
	Scheduler     Scheduler
	Notifier      Notifier
	AbuseWatchdog AbuseWatchdog
	Discord       Discord
	Log           Log
	Litestream    Litestream
	Admin         Admin
}
