package projection

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzbill/podium/internal/eventlog"
	"github.com/rzbill/podium/internal/ledger"
	"github.com/rzbill/podium/internal/notify"
	"github.com/rzbill/podium/internal/rankstore"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
	"github.com/rzbill/podium/pkg/id"
	logpkg "github.com/rzbill/podium/pkg/log"
)

// Options configures a Worker.
type Options struct {
	// Group names the consumer group for cursors and leases. Default
	// "projection".
	Group string
	// Channel names the notification channel boards are rendered to.
	// Default "global".
	Channel string
	// Owner identifies this consumer for lease purposes. Default: random.
	Owner string
	// LeaseTTL bounds partition ownership between renewals. Default 10s.
	LeaseTTL time.Duration
	// Retry paces per-event retries before dead-lettering.
	Retry RetryPolicy
	// ReadBatch caps events read per poll. Default 128.
	ReadBatch int
	// PollWait bounds the idle block on an empty partition. Default 50ms.
	PollWait time.Duration
}

func (o *Options) withDefaults() {
	if o.Group == "" {
		o.Group = "projection"
	}
	if o.Channel == "" {
		o.Channel = "global"
	}
	if o.Owner == "" {
		o.Owner = id.NewGenerator().Next().String()
	}
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = 10 * time.Second
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = DefaultRetryPolicy()
	}
	if o.ReadBatch <= 0 {
		o.ReadBatch = 128
	}
	if o.PollWait <= 0 {
		o.PollWait = 50 * time.Millisecond
	}
}

// Worker projects raw score events into the ranked store and emits
// throttled board notifications.
type Worker struct {
	logs     []*eventlog.Log
	store    *rankstore.Store
	throttle *notify.Throttle
	leases   *LeaseManager
	dlq      *DLQ
	opts     Options
	logger   logpkg.Logger

	applied      atomic.Uint64
	discarded    atomic.Uint64
	deadLettered atomic.Uint64

	emit func(ctx context.Context, n notify.Notification) error
}

// New builds a worker over the given partition logs.
func New(db *pebblestore.DB, logs []*eventlog.Log, store *rankstore.Store, throttle *notify.Throttle, emitter *notify.Emitter, opts Options, logger logpkg.Logger) (*Worker, error) {
	opts.withDefaults()
	dlq, err := OpenDLQ(db)
	if err != nil {
		return nil, err
	}
	return &Worker{
		logs:     logs,
		store:    store,
		throttle: throttle,
		leases:   NewLeaseManager(db, opts.Group, opts.Owner, opts.LeaseTTL),
		dlq:      dlq,
		opts:     opts,
		logger:   logger.With(logpkg.Component("projection"), logpkg.String("owner", opts.Owner)),
		emit: func(ctx context.Context, n notify.Notification) error {
			_, err := emitter.Emit(ctx, n)
			return err
		},
	}, nil
}

// Stats reports cumulative event outcomes.
func (w *Worker) Stats() (applied, discarded, deadLettered uint64) {
	return w.applied.Load(), w.discarded.Load(), w.deadLettered.Load()
}

// DLQ exposes the dead-letter log.
func (w *Worker) DLQ() *DLQ { return w.dlq }

// Run processes all partitions until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range w.logs {
		l := l
		g.Go(func() error { return w.runPartition(gctx, l) })
	}
	return g.Wait()
}

func (w *Worker) runPartition(ctx context.Context, log *eventlog.Log) error {
	part := log.Partition()
	logger := w.logger.With(logpkg.Uint32("partition", part))

	start := w.resumeToken(log)
	held := false
	defer func() {
		if held {
			_ = w.leases.Release(part)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := w.leases.Acquire(part)
		if err != nil {
			return err
		}
		if !ok {
			// another consumer owns this partition; retry before its
			// lease could lapse, and pick up whatever it committed
			held = false
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.leases.TTL() / 2):
			}
			start = w.resumeToken(log)
			continue
		}
		if !held {
			held = true
			logger.Info("partition claimed", logpkg.Uint64("start", start.Seq()))
		}

		items, _, rerr := log.Read(eventlog.ReadOptions{Start: start, Limit: w.opts.ReadBatch})
		if rerr != nil {
			logger.Error("partition read failed", logpkg.Err(rerr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.opts.PollWait):
			}
			continue
		}
		if len(items) == 0 {
			log.WaitForAppend(w.opts.PollWait)
			continue
		}
		for _, it := range items {
			if err := w.processOne(ctx, part, it); err != nil {
				return err
			}
		}
		last := items[len(items)-1].Seq
		if err := log.CommitCursor(w.opts.Group, eventlog.TokenFromSeq(last)); err != nil {
			logger.Error("cursor commit failed", logpkg.Err(err), logpkg.Uint64("seq", last))
		}
		start = eventlog.TokenFromSeq(last + 1)
	}
}

func (w *Worker) resumeToken(log *eventlog.Log) eventlog.Token {
	if tok, ok := log.GetCursor(w.opts.Group); ok {
		return eventlog.TokenFromSeq(tok.Seq() + 1)
	}
	return eventlog.Token{}
}

// processOne applies one event and, when the board changed, emits at most
// one notification. Returns an error only when ctx ends or the dead-letter
// log itself fails; every other failure is retried then dead-lettered so
// the partition keeps moving.
func (w *Worker) processOne(ctx context.Context, part uint32, it eventlog.Item) error {
	ev, err := ledger.DecodeRawEvent(it.Payload)
	if err != nil {
		w.logger.Warn("undecodable event dead-lettered",
			logpkg.Uint32("partition", part), logpkg.Uint64("seq", it.Seq), logpkg.Err(err))
		return w.routeDLQ(ctx, part, it, err, 1)
	}

	applied := false
	for attempt := uint32(1); ; attempt++ {
		if !applied {
			res := w.store.Apply(ev.UserID, ev.Score, ev.Version)
			applied = true
			if !res.Applied {
				// duplicate or stale version, a normal at-least-once outcome
				w.discarded.Add(1)
				w.logger.Debug("stale version discarded",
					logpkg.Int64("user", ev.UserID), logpkg.Int64("version", ev.Version))
				return nil
			}
			w.applied.Add(1)
			if !res.TopAffected {
				return nil
			}
		}

		nerr := w.notifyOnce(ctx)
		if nerr == nil {
			return nil
		}
		if attempt >= w.opts.Retry.MaxAttempts {
			w.logger.Error("event dead-lettered after retries",
				logpkg.Uint32("partition", part), logpkg.Uint64("seq", it.Seq),
				logpkg.Uint32("attempts", attempt), logpkg.Err(nerr))
			return w.routeDLQ(ctx, part, it, nerr, attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ComputeBackoff(w.opts.Retry, attempt)):
		}
	}
}

func (w *Worker) notifyOnce(ctx context.Context) error {
	snap, err := w.store.Snapshot()
	if err != nil {
		return err
	}
	_, err = w.throttle.Emit(snap.Digest, snap.MemberIDs(), func() error {
		return w.emit(ctx, notify.Notification{
			Channel:   w.opts.Channel,
			TopN:      snap.Entries,
			EmittedAt: time.Now(),
			Digest:    snap.Digest,
		})
	})
	return err
}

func (w *Worker) routeDLQ(ctx context.Context, part uint32, it eventlog.Item, cause error, attempts uint32) error {
	w.deadLettered.Add(1)
	return w.dlq.Route(ctx, DLQEntry{
		Event:     append([]byte(nil), it.Payload...),
		Error:     cause.Error(),
		Attempts:  attempts,
		FailedAt:  time.Now(),
		Partition: part,
		Seq:       it.Seq,
	})
}
