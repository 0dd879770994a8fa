// Package scheduler runs the completion core's background ticker: periodic
// reclamation of dangling fully-verified states whose candidate emission
// never got picked up and submitted on chain. Grounded on the teacher's
// job/scheduler.go ticker-with-context-cancel skeleton. Candidate emission
// itself is not scheduled here — it is synchronous, on-demand, exposed as
// engine.Engine.FetchCandidates, called by the external chain submitter.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Reclaimer is the subset of store.Store the dangling-reclaim ticker needs.
// Scoped narrowly so scheduler tests can stub just this one method.
type Reclaimer interface {
	ReclaimDangling(ctx context.Context, threshold time.Duration) (int, error)
}

// Config fixes the scheduler's tick interval and dangling threshold.
type Config struct {
	// ReclaimInterval is how often the dangling-reclaim ticker fires.
	// Defaults to 60s if zero.
	ReclaimInterval time.Duration
	// DanglingThreshold is the age past completion_timestamp after which
	// an unsubmitted fully-verified state counts as dangling. Defaults to
	// 3600s (spec DANGLING_THRESHOLD) if zero.
	DanglingThreshold time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReclaimInterval <= 0 {
		c.ReclaimInterval = 60 * time.Second
	}
	if c.DanglingThreshold <= 0 {
		c.DanglingThreshold = 3600 * time.Second
	}
	return c
}

// Scheduler owns the dangling-reclaim ticker's lifecycle.
type Scheduler struct {
	store  Reclaimer
	cfg    Config
	logger *slog.Logger

	eg     *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(s Reclaimer, cfg Config, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	return &Scheduler{
		store:  s,
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "scheduler"),
		eg:     g,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start begins the dangling-reclaim ticker in the background.
func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.cfg.ReclaimInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				if err := s.eg.Wait(); err != nil {
					s.logger.Error("scheduler jobs returned error", "error", err)
				}
				close(s.done)
				return
			case <-ticker.C:
				s.reclaimOnce()
			}
		}
	}()
}

// Stop signals the scheduler to stop and waits for in-flight work to
// complete or ctx to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("stopping scheduler")
	s.cancel()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) reclaimOnce() {
	s.eg.Go(func() error {
		n, err := s.store.ReclaimDangling(s.ctx, s.cfg.DanglingThreshold)
		if err != nil {
			s.logger.Error("dangling reclaim failed", "error", err)
			return err
		}
		if n > 0 {
			s.logger.Info("reclaimed dangling judgement states", "count", n)
		}
		return nil
	})
}
