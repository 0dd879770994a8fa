package log

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/regverify/config"
	"github.com/caasmo/regverify/store/zombiezen"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return config.NewDefaultConfig("test.sqlite", "test-key.txt", "polkadot")
}

// mockLogStore is a mock LogStore for exercising Daemon's batching logic
// in isolation from store/zombiezen, grounded on the teacher's
// logger.mockDbLog.
type mockLogStore struct {
	mu              sync.Mutex
	insertedBatches [][]zombiezen.LogEntry
	insertErr       error
	batchReceived   chan int
}

func newMockLogStore() *mockLogStore {
	return &mockLogStore{batchReceived: make(chan int, 10)}
}

func (m *mockLogStore) WriteLogBatch(ctx context.Context, batch []zombiezen.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		m.batchReceived <- len(batch)
		return m.insertErr
	}

	batchCopy := make([]zombiezen.LogEntry, len(batch))
	copy(batchCopy, batch)
	m.insertedBatches = append(m.insertedBatches, batchCopy)

	m.batchReceived <- len(batch)
	return nil
}

func (m *mockLogStore) getInsertedBatches() [][]zombiezen.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertedBatches
}

func (m *mockLogStore) setInsertError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertErr = err
}

func (m *mockLogStore) waitForBatch(t *testing.T, timeout time.Duration) int {
	t.Helper()
	select {
	case batchSize := <-m.batchReceived:
		return batchSize
	case <-time.After(timeout):
		t.Fatal("timed out waiting for log batch to be processed")
		return 0
	}
}

func TestDaemonFlushOnBatchSize(t *testing.T) {
	store := newMockLogStore()
	cfg := newTestConfig()
	cfg.Log.Batch.FlushSize = 3
	cfg.Log.Batch.FlushInterval.Duration = time.Minute
	provider := config.NewProvider(cfg)

	daemon, err := New(provider, newTestLogger(), store)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer daemon.Stop(context.Background())

	recordChan, _ := daemon.Chan()
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0)

	recordChan <- record
	recordChan <- record
	if len(store.getInsertedBatches()) != 0 {
		t.Fatal("daemon flushed batch before reaching flush size")
	}

	recordChan <- record
	batchSize := store.waitForBatch(t, time.Second)
	if batchSize != 3 {
		t.Errorf("expected batch size 3, got %d", batchSize)
	}
}

func TestDaemonFlushOnInterval(t *testing.T) {
	store := newMockLogStore()
	cfg := newTestConfig()
	cfg.Log.Batch.FlushSize = 10
	cfg.Log.Batch.FlushInterval.Duration = 20 * time.Millisecond
	provider := config.NewProvider(cfg)

	daemon, err := New(provider, newTestLogger(), store)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer daemon.Stop(context.Background())

	recordChan, _ := daemon.Chan()
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0)
	recordChan <- record
	recordChan <- record

	batchSize := store.waitForBatch(t, 100*time.Millisecond)
	if batchSize != 2 {
		t.Errorf("expected batch size 2, got %d", batchSize)
	}
}

func TestDaemonShutdownDrainsLogs(t *testing.T) {
	store := newMockLogStore()
	cfg := newTestConfig()
	cfg.Log.Batch.FlushSize = 10
	provider := config.NewProvider(cfg)

	daemon, err := New(provider, newTestLogger(), store)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	recordChan, _ := daemon.Chan()
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0)
	for i := 0; i < 5; i++ {
		recordChan <- record
	}

	if err := daemon.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() returned an error: %v", err)
	}

	batches := store.getInsertedBatches()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch written on shutdown, got %d", len(batches))
	}
	if len(batches[0]) != 5 {
		t.Errorf("expected batch to contain 5 records, got %d", len(batches[0]))
	}
}

func TestDaemonSurvivesStoreError(t *testing.T) {
	store := newMockLogStore()
	store.setInsertError(errors.New("simulated store error"))

	var logOutput bytes.Buffer
	opLogger := slog.New(slog.NewTextHandler(&logOutput, nil))

	cfg := newTestConfig()
	cfg.Log.Batch.FlushSize = 2
	provider := config.NewProvider(cfg)

	daemon, err := New(provider, opLogger, store)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer daemon.Stop(context.Background())

	recordChan, _ := daemon.Chan()
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0)
	recordChan <- record
	recordChan <- record
	_ = store.waitForBatch(t, time.Second)

	if !bytes.Contains(logOutput.Bytes(), []byte("simulated store error")) {
		t.Fatal("daemon did not log the store error")
	}

	store.setInsertError(nil)
	recordChan <- record
	recordChan <- record
	batchSize := store.waitForBatch(t, time.Second)
	if batchSize != 2 {
		t.Errorf("expected batch size 2 for the second batch, got %d", batchSize)
	}
}

func TestDaemonSkipsUnserializableRecord(t *testing.T) {
	store := newMockLogStore()
	var logOutput bytes.Buffer
	opLogger := slog.New(slog.NewTextHandler(&logOutput, nil))

	cfg := newTestConfig()
	cfg.Log.Batch.FlushSize = 2
	provider := config.NewProvider(cfg)

	daemon, err := New(provider, opLogger, store)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer daemon.Stop(context.Background())

	recordChan, _ := daemon.Chan()
	badRecord := slog.NewRecord(time.Now(), slog.LevelInfo, "bad record", 0)
	badRecord.AddAttrs(slog.Float64("bad_attr", math.NaN()))
	goodRecord := slog.NewRecord(time.Now(), slog.LevelInfo, "good record", 0)

	recordChan <- badRecord
	recordChan <- goodRecord
	recordChan <- goodRecord

	batchSize := store.waitForBatch(t, 200*time.Millisecond)
	if batchSize != 2 {
		t.Fatalf("expected batch size 2, got %d", batchSize)
	}
	if logOutput.Len() == 0 {
		t.Fatal("daemon did not log the serialization error")
	}

	batches := store.getInsertedBatches()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch to be written, got %d", len(batches))
	}
	if batches[0][0].Message != "good record" || batches[0][1].Message != "good record" {
		t.Errorf("batch did not contain the expected records, got: %s, %s",
			batches[0][0].Message, batches[0][1].Message)
	}
}
