package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/benbjohnson/litestream"
	"github.com/benbjohnson/litestream/file"
	"github.com/caasmo/regverify/config"
)

// Litestream replicates the verification store's SQLite file to a local
// replica directory continuously, grounded on the teacher's
// backup/litestream.go. Whichever chain the deployment administers, the
// store (decisions, pending verifications, event log) is the
// one thing a node operator cannot afford to lose between snapshots.
type Litestream struct {
	configProvider *config.Provider
	logger         *slog.Logger
	db             *litestream.DB
	replica        *litestream.Replica

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

func NewLitestream(configProvider *config.Provider, logger *slog.Logger) (*Litestream, error) {
	mainCfg := configProvider.Get()
	litestreamCfg := mainCfg.Litestream
	ctx, cancel := context.WithCancel(context.Background())

	db := litestream.NewDB(mainCfg.DBFile)
	db.Logger = logger.With("db", mainCfg.DBFile)

	if err := os.MkdirAll(litestreamCfg.ReplicaPath, 0750); err != nil && !os.IsExist(err) {
		cancel()
		return nil, fmt.Errorf("litestream: failed to create replica directory %q: %w", litestreamCfg.ReplicaPath, err)
	}
	absReplicaPath, err := filepath.Abs(litestreamCfg.ReplicaPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("litestream: failed to resolve replica path %q: %w", litestreamCfg.ReplicaPath, err)
	}
	replicaClient := file.NewReplicaClient(absReplicaPath)

	replica := litestream.NewReplica(db, litestreamCfg.ReplicaName)
	replica.Client = replicaClient
	db.Replicas = append(db.Replicas, replica)

	return &Litestream{
		configProvider: configProvider,
		logger:         logger.With("component", "litestream"),
		db:             db,
		replica:        replica,
		ctx:            ctx,
		cancel:         cancel,
		shutdownDone:   make(chan struct{}),
	}, nil
}

// Start opens the database and begins continuous replication in a
// goroutine. It blocks until the initial open/replica start succeeds or
// fails, then returns; replication itself continues in the background.
func (l *Litestream) Start() error {
	startupErrChan := make(chan error, 1)

	go func() {
		l.logger.Info("starting continuous backup")

		if err := l.db.Open(); err != nil {
			l.logger.Error("failed to open database", "error", err)
			close(l.shutdownDone)
			startupErrChan <- err
			return
		}

		if err := l.replica.Start(l.ctx); err != nil {
			l.logger.Error("failed to start replica", "error", err)
			close(l.shutdownDone)
			startupErrChan <- err
			return
		}

		l.logger.Info("replication started")
		startupErrChan <- nil

		<-l.ctx.Done()
		l.logger.Info("received shutdown signal")

		if err := l.replica.Stop(false); err != nil {
			l.logger.Error("error stopping replica", "error", err)
		}
		if err := l.db.Close(); err != nil {
			l.logger.Error("error closing database", "error", err)
		}

		close(l.shutdownDone)
	}()

	return <-startupErrChan
}

// Stop cancels replication and waits for it to wind down, or for ctx to
// expire first.
func (l *Litestream) Stop(ctx context.Context) error {
	l.logger.Info("stopping")
	l.cancel()

	select {
	case <-l.shutdownDone:
		l.logger.Info("stopped gracefully")
		return nil
	case <-ctx.Done():
		l.logger.Error("shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}
