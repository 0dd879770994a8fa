// Command registrar-core runs the verification core as a long-lived
// daemon: store, engine, completion scheduler, event notifier, log
// daemon, abuse watchdog, and litestream replication wired together and
// kept alive until a shutdown signal arrives. Grounded on the teacher's
// cmd/restinpieces/main.go (flag-parsed bootstrap, config.Provider
// hot-reload on SIGHUP, signal-driven graceful shutdown with a timeout
// context).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caasmo/regverify/abuse"
	"github.com/caasmo/regverify/backup"
	"github.com/caasmo/regverify/cache/ristretto"
	"github.com/caasmo/regverify/config"
	"github.com/caasmo/regverify/engine"
	"github.com/caasmo/regverify/log"
	"github.com/caasmo/regverify/notifier"
	"github.com/caasmo/regverify/notify"
	"github.com/caasmo/regverify/notify/discord"
	"github.com/caasmo/regverify/primitives"
	"github.com/caasmo/regverify/scheduler"
	"github.com/caasmo/regverify/store/zombiezen"

	"golang.org/x/time/rate"
)

func main() {
	dbFile := flag.String("dbfile", "registrar.sqlite", "path to the verification store's SQLite file")
	ageKeyPath := flag.String("age-key", "", "path to the age identity file protecting the secure config store")
	chainName := flag.String("chain", "", "chain this deployment administers (e.g. polkadot, kusama)")
	flag.Parse()

	bootLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *ageKeyPath == "" {
		bootLogger.Error("missing required flag", "flag", "-age-key")
		os.Exit(1)
	}
	if *chainName == "" {
		bootLogger.Error("missing required flag", "flag", "-chain")
		os.Exit(1)
	}

	store, err := zombiezen.New(*dbFile)
	if err != nil {
		bootLogger.Error("failed to open store", "dbfile", *dbFile, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	secureStore, err := config.NewSecureStoreAge(store, *ageKeyPath, bootLogger)
	if err != nil {
		bootLogger.Error("failed to build secure config store", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	cfg, err := config.LoadFromSecureStore(ctx, secureStore, bootLogger)
	if err != nil {
		bootLogger.Info("no existing secure config found, bootstrapping defaults", "error", err)
		cfg = config.NewDefaultConfig(*dbFile, *ageKeyPath, *chainName)
		if err := config.Validate(cfg); err != nil {
			bootLogger.Error("default config failed validation", "error", err)
			os.Exit(1)
		}
		encoded, err := config.Encode(cfg)
		if err != nil {
			bootLogger.Error("failed to encode default config", "error", err)
			os.Exit(1)
		}
		if err := secureStore.Save(ctx, config.ScopeApplication, encoded, "toml", "bootstrap default config"); err != nil {
			bootLogger.Error("failed to persist bootstrap config", "error", err)
			os.Exit(1)
		}
	}

	provider := config.NewProvider(cfg)

	logDaemon, err := log.New(provider, bootLogger, store)
	if err != nil {
		bootLogger.Error("failed to create log daemon", "error", err)
		os.Exit(1)
	}
	if err := logDaemon.Start(); err != nil {
		bootLogger.Error("failed to start log daemon", "error", err)
		os.Exit(1)
	}
	recordChan, daemonCtx := logDaemon.Chan()
	appLogger := slog.New(log.NewBatchHandler(provider, recordChan, daemonCtx))

	var alarmSink notify.Notifier = notify.NewNilNotifier()
	if cfg.Discord.Activated {
		alarmSink, err = discord.New(cfg.Discord, appLogger)
		if err != nil {
			appLogger.Error("failed to create discord alarm sink, falling back to nil notifier", "error", err)
			alarmSink = notify.NewNilNotifier()
		}
	}

	var engineOpts []engine.Option
	if cfg.AbuseWatchdog.Activated {
		watchdog := abuse.New(cfg.AbuseWatchdog, alarmSink, appLogger)
		engineOpts = append(engineOpts, engine.WithFailureObserver(watchdog))
	}
	if displayNameCache, err := ristretto.New[[]primitives.DisplayNameEntry]("small"); err != nil {
		appLogger.Error("failed to create display-name cache, caching disabled", "error", err)
	} else {
		engineOpts = append(engineOpts, engine.WithDisplayNameCache(displayNameCache))
	}

	eng := engine.New(store, appLogger, engineOpts...)
	_ = eng // wired for use by an external adapter (chain submitter / message relay), not called directly by this daemon

	sched := scheduler.New(store, scheduler.Config{
		ReclaimInterval:   cfg.Scheduler.ReclaimInterval.Duration,
		DanglingThreshold: cfg.Scheduler.DanglingThreshold.Duration,
	}, appLogger)
	sched.Start()

	eventSink := notifier.NewRateLimitedSink(
		notifier.NewLogSink(appLogger),
		rate.Limit(cfg.Notifier.SinkRateLimit), cfg.Notifier.SinkBurst, appLogger)
	eventNotifier := notifier.New(store, eventSink, notifier.Config{
		Interval: cfg.Notifier.Interval.Duration,
	}, appLogger, time.Now())
	eventNotifier.Start()

	var litestreamBackup *backup.Litestream
	if cfg.Litestream.Activated {
		litestreamBackup, err = backup.NewLitestream(provider, appLogger)
		if err != nil {
			appLogger.Error("failed to create litestream backup, continuing without replication", "error", err)
		} else if err := litestreamBackup.Start(); err != nil {
			appLogger.Error("failed to start litestream replication, continuing without it", "error", err)
			litestreamBackup = nil
		}
	}

	stop := make(chan os.Signal, 1)
	reload := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	signal.Notify(reload, syscall.SIGHUP)

	appLogger.Info("registrar-core started", "dbfile", *dbFile, "chain", *chainName)

	reloadFn := config.Reload(secureStore, provider, appLogger)
	for {
		select {
		case <-reload:
			if err := reloadFn(); err != nil {
				appLogger.Error("config reload failed, continuing with previous config", "error", err)
			}
		case sig := <-stop:
			appLogger.Info("received shutdown signal", "signal", sig.String())
			shutdown(appLogger, sched, eventNotifier, logDaemon, litestreamBackup)
			return
		}
	}
}

func shutdown(logger *slog.Logger, sched *scheduler.Scheduler, n *notifier.Notifier, logDaemon *log.Daemon, ls *backup.Litestream) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(ctx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}
	if err := n.Stop(ctx); err != nil {
		logger.Error("notifier shutdown error", "error", err)
	}
	if ls != nil {
		if err := ls.Stop(ctx); err != nil {
			logger.Error("litestream shutdown error", "error", err)
		}
	}
	if err := logDaemon.Stop(ctx); err != nil {
		logger.Error("log daemon shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	fmt.Fprintln(os.Stdout, "registrar-core stopped")
}
