package serverrun

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/podium/internal/config"
	"github.com/rzbill/podium/internal/ledger"
	"github.com/rzbill/podium/internal/notify"
	"github.com/rzbill/podium/internal/projection"
	"github.com/rzbill/podium/internal/publisher"
	"github.com/rzbill/podium/internal/rankstore"
	"github.com/rzbill/podium/internal/recovery"
	"github.com/rzbill/podium/internal/runtime"
	httpserver "github.com/rzbill/podium/internal/server/http"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
	logpkg "github.com/rzbill/podium/pkg/log"
)

// Options configures a server run.
type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Run starts the full pipeline (ledger, publisher, projection, fan-out,
// HTTP) and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// layer a local signal context over the provided one so Run behaves
	// the same under the CLI and under tests
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	logpkg.RedirectStdLog(logger)

	cfg := opts.Config
	rt, err := runtime.Open(runtime.Options{
		DataDir:       filepath.Join(opts.DataDir, "store"),
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        cfg,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	led, err := openLedger(sctx, cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	logger.Info("starting podium server",
		logpkg.String("http", opts.HTTPAddr),
		logpkg.String("data_dir", opts.DataDir),
		logpkg.String("ledger", cfg.Ledger.Driver),
		logpkg.Int("partitions", cfg.Partitions),
	)

	store := rankstore.New(rankstore.Options{
		TopN:        cfg.TopN,
		SnapshotTTL: time.Duration(cfg.SnapshotTTLMs) * time.Millisecond,
	})
	if n, err := store.LoadWarm(rt.DB()); err != nil {
		logger.Warn("warm snapshot load failed", logpkg.Err(err))
	} else if n > 0 {
		logger.Info("warm snapshot loaded", logpkg.Int("entries", n))
	}
	if cfg.RecoverOnBoot {
		if _, err := recovery.Run(sctx, led, store, logger); err != nil {
			return err
		}
	}

	logs, err := rt.OpenRawScoreLogs()
	if err != nil {
		return err
	}
	pub := publisher.New(led, logs, publisher.Options{
		BatchSize: cfg.Publisher.BatchSize,
		IdleDelay: time.Duration(cfg.Publisher.IdlePollMs) * time.Millisecond,
	}, logger)

	throttle := notify.NewThrottle(time.Duration(cfg.Notify.ThrottleMs) * time.Millisecond)
	emitter := notify.NewEmitter(rt.DB())
	worker, err := projection.New(rt.DB(), logs, store, throttle, emitter, projection.Options{
		Group:    cfg.Projection.Group,
		Channel:  cfg.Channel,
		LeaseTTL: time.Duration(cfg.Projection.LeaseTTLMs) * time.Millisecond,
		Retry: projection.RetryPolicy{
			Type:        projection.BackoffExp,
			Base:        time.Duration(cfg.Projection.BackoffBaseMs) * time.Millisecond,
			Cap:         time.Duration(cfg.Projection.BackoffCapMs) * time.Millisecond,
			MaxAttempts: uint32(cfg.Projection.MaxAttempts),
		},
	}, logger)
	if err != nil {
		return err
	}

	hub := notify.NewHub(emitter, notify.HubOptions{
		RatePerSec: cfg.Notify.RatePerSec,
		Burst:      cfg.Notify.Burst,
	}, logger)
	hsrv := httpserver.New(httpserver.Deps{
		Runtime: rt,
		Ledger:  led,
		Store:   store,
		Hub:     hub,
		Logger:  logger,
		Recover: func(ctx context.Context) (recovery.Result, error) {
			return recovery.Run(ctx, led, store, logger)
		},
	})

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return pub.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		store.RunWarmSnapshots(gctx, rt.DB(), time.Minute, logger)
		return gctx.Err()
	})
	g.Go(func() error { return runRetention(gctx, cfg, led, emitter, logger) })
	g.Go(func() error {
		err := hsrv.ListenAndServe(gctx, opts.HTTPAddr)
		if err != nil && gctx.Err() == nil {
			return err
		}
		return gctx.Err()
	})

	err = g.Wait()
	hsrv.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openLedger(ctx context.Context, cfg cfgpkg.Config) (ledger.Ledger, error) {
	policy := ledger.Policy{AllowRegress: cfg.AllowRegress}
	if cfg.Ledger.Driver == "postgres" {
		return ledger.OpenPostgres(ctx, cfg.Ledger.DSN, policy)
	}
	return ledger.NewMemory(policy), nil
}

// runRetention periodically trims processed outbox rows and old
// notification history.
func runRetention(ctx context.Context, cfg cfgpkg.Config, led ledger.Ledger, emitter *notify.Emitter, logger logpkg.Logger) error {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if cfg.Ledger.OutboxRetentionMs > 0 {
			cutoff := time.Now().Add(-time.Duration(cfg.Ledger.OutboxRetentionMs) * time.Millisecond)
			if n, err := led.DeleteProcessedBefore(ctx, cutoff); err != nil {
				logger.Warn("outbox retention failed", logpkg.Err(err))
			} else if n > 0 {
				logger.Debug("outbox rows trimmed", logpkg.Int64("rows", n))
			}
		}
		if cfg.Notify.RetentionAgeMs > 0 {
			cutoffMs := time.Now().Add(-time.Duration(cfg.Notify.RetentionAgeMs) * time.Millisecond).UnixMilli()
			if n, err := emitter.TrimOlderThan(ctx, cutoffMs); err != nil {
				logger.Warn("notify retention failed", logpkg.Err(err))
			} else if n > 0 {
				logger.Debug("notifications trimmed", logpkg.Int("entries", n))
			}
		}
	}
}
