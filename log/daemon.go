package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/caasmo/regverify/config"
	"github.com/caasmo/regverify/store/zombiezen"
)

// LogStore is the subset of store/zombiezen's Store the log daemon needs:
// batch insertion of pre-flattened entries. A narrow interface so tests
// can exercise the daemon's batching logic without a real SQLite file.
type LogStore interface {
	WriteLogBatch(ctx context.Context, batch []zombiezen.LogEntry) error
}

// Daemon consumes slog.Records from a channel and batch-writes them into
// the store's own SQLite database, so operational logs and domain events
// share one durable file. Grounded on the teacher's logger.Daemon.
type Daemon struct {
	recordChan     chan slog.Record
	store          LogStore
	opLogger       *slog.Logger
	configProvider *config.Provider

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

// New creates a Daemon writing into store, sized from the live config's
// Log.Batch.ChanSize.
func New(configProvider *config.Provider, opLogger *slog.Logger, store LogStore) (*Daemon, error) {
	if store == nil {
		return nil, fmt.Errorf("log: store cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cfg := configProvider.Get()

	return &Daemon{
		recordChan:     make(chan slog.Record, cfg.Log.Batch.ChanSize),
		store:          store,
		opLogger:       opLogger.With("component", "log_daemon"),
		configProvider: configProvider,
		ctx:            ctx,
		cancel:         cancel,
		shutdownDone:   make(chan struct{}),
	}, nil
}

// Chan returns the write-end of the record channel and the daemon's
// context, so a BatchHandler can detect shutdown without the daemon
// exposing its cancel func.
func (d *Daemon) Chan() (chan<- slog.Record, context.Context) {
	return d.recordChan, d.ctx
}

// Start begins the daemon's processing goroutine.
func (d *Daemon) Start() error {
	d.opLogger.Info("starting log daemon")
	go d.processLogs()
	return nil
}

// Stop cancels the daemon's context and waits for processLogs to finish
// draining and flushing, or for ctx to expire first.
func (d *Daemon) Stop(ctx context.Context) error {
	d.opLogger.Info("stopping log daemon")
	d.cancel()

	select {
	case <-d.shutdownDone:
		d.opLogger.Info("log daemon stopped")
		return nil
	case <-ctx.Done():
		d.opLogger.Error("log daemon shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

// prepareRecordForDB flattens an slog.Record's attributes into a JSON
// payload and wraps it in a zombiezen.LogEntry ready for batch insertion.
func (d *Daemon) prepareRecordForDB(record slog.Record) (zombiezen.LogEntry, error) {
	data := convertSlogRecordToMap(record)
	jsonData, err := json.Marshal(data)
	if err != nil {
		return zombiezen.LogEntry{}, fmt.Errorf("marshal log record: %w", err)
	}

	return zombiezen.LogEntry{
		Level:    int64(record.Level),
		Message:  record.Message,
		JSONData: string(jsonData),
		Created:  record.Time.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (d *Daemon) processLogs() {
	defer close(d.shutdownDone)

	cfg := d.configProvider.Get()
	ticker := time.NewTicker(cfg.Log.Batch.FlushInterval.Duration)
	defer ticker.Stop()

	batch := make([]zombiezen.LogEntry, 0, cfg.Log.Batch.FlushSize)

	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		if err := d.store.WriteLogBatch(d.ctx, batch); err != nil {
			d.opLogger.Error("failed to write log batch", "error", err, "batch_size", len(batch), "reason", reason)
		}
		batch = batch[:0]
	}

	for {
		select {
		case record, ok := <-d.recordChan:
			if !ok {
				flush("channel_closed")
				return
			}
			entry, err := d.prepareRecordForDB(record)
			if err != nil {
				d.opLogger.Error("failed to prepare record, skipping", "error", err, "record_msg", record.Message)
				continue
			}
			batch = append(batch, entry)
			if len(batch) >= cfg.Log.Batch.FlushSize {
				flush("batch_full")
			}

		case <-ticker.C:
			flush("ticker")

		case <-d.ctx.Done():
			d.drainAndFlush(&batch, cfg.Log.Batch.FlushSize)
			flush("shutdown_final")
			close(d.recordChan)
			return
		}
	}
}

// drainAndFlush empties whatever is already queued on recordChan without
// blocking, appending to batch, flushing mid-drain if it fills.
func (d *Daemon) drainAndFlush(batch *[]zombiezen.LogEntry, flushSize int) {
	for {
		select {
		case record, ok := <-d.recordChan:
			if !ok {
				return
			}
			entry, err := d.prepareRecordForDB(record)
			if err != nil {
				d.opLogger.Error("failed to prepare record during drain, skipping", "error", err, "record_msg", record.Message)
				continue
			}
			*batch = append(*batch, entry)
			if len(*batch) >= flushSize {
				if err := d.store.WriteLogBatch(d.ctx, *batch); err != nil {
					d.opLogger.Error("failed to write log batch during drain", "error", err)
				}
				*batch = (*batch)[:0]
			}
		default:
			return
		}
	}
}

func convertSlogRecordToMap(r slog.Record) map[string]any {
	data := make(map[string]any)
	data["time"] = r.Time.UTC().Format(time.RFC3339Nano)
	data["level"] = r.Level.String()
	data["msg"] = r.Message

	r.Attrs(func(a slog.Attr) bool {
		resolveAndInsertAttr(data, a)
		return true
	})
	return data
}

func resolveAndInsertAttr(m map[string]any, a slog.Attr) {
	key := a.Key
	if key == "" {
		return
	}

	val := a.Value.Resolve()
	switch val.Kind() {
	case slog.KindString:
		m[key] = val.String()
	case slog.KindInt64:
		m[key] = val.Int64()
	case slog.KindUint64:
		m[key] = val.Uint64()
	case slog.KindFloat64:
		m[key] = val.Float64()
	case slog.KindBool:
		m[key] = val.Bool()
	case slog.KindDuration:
		m[key] = val.Duration().String()
	case slog.KindTime:
		m[key] = val.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		groupAttrs := val.Group()
		if len(groupAttrs) == 0 {
			return
		}
		groupMap := make(map[string]any)
		for _, ga := range groupAttrs {
			resolveAndInsertAttr(groupMap, ga)
		}
		if len(groupMap) > 0 {
			m[key] = groupMap
		}
	default:
		anyVal := val.Any()
		if err, ok := anyVal.(error); ok {
			m[key] = err.Error()
		} else {
			m[key] = fmt.Sprint(anyVal)
		}
	}
}
