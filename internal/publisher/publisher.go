package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/rzbill/podium/internal/eventlog"
	"github.com/rzbill/podium/internal/ledger"
	logpkg "github.com/rzbill/podium/pkg/log"
)

// Options tunes a Publisher.
type Options struct {
	// BatchSize bounds rows claimed per cycle. Default 256.
	BatchSize int
	// IdleDelay is the poll backoff when the outbox is empty. Default 25ms.
	IdleDelay time.Duration
	// ErrDelayMax caps the backoff while the log is failing. Default 2s.
	ErrDelayMax time.Duration
}

func (o *Options) withDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 256
	}
	if o.IdleDelay <= 0 {
		o.IdleDelay = 25 * time.Millisecond
	}
	if o.ErrDelayMax <= 0 {
		o.ErrDelayMax = 2 * time.Second
	}
}

// Publisher drains the outbox onto the raw event log.
type Publisher struct {
	ledger ledger.Ledger
	logs   []*eventlog.Log // index = partition
	opts   Options
	logger logpkg.Logger

	// appendBatch is swappable in tests to inject publish failures.
	appendBatch func(ctx context.Context, partition uint32, recs []eventlog.AppendRecord) error
}

// New builds a Publisher over one log per raw partition.
func New(led ledger.Ledger, logs []*eventlog.Log, opts Options, logger logpkg.Logger) *Publisher {
	opts.withDefaults()
	p := &Publisher{ledger: led, logs: logs, opts: opts, logger: logger.With(logpkg.Component("publisher"))}
	p.appendBatch = func(ctx context.Context, partition uint32, recs []eventlog.AppendRecord) error {
		_, err := p.logs[partition].Append(ctx, recs)
		return err
	}
	return p
}

// Run loops until ctx is cancelled. Transient failures are retried with
// backoff; rows stay pending in the ledger until a cycle succeeds.
func (p *Publisher) Run(ctx context.Context) error {
	errDelay := p.opts.IdleDelay
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := p.PublishOnce(ctx)
		switch {
		case err != nil:
			p.logger.Warn("publish cycle failed, will retry", logpkg.Err(err))
			if !sleepCtx(ctx, errDelay) {
				return nil
			}
			errDelay = minDur(errDelay*2, p.opts.ErrDelayMax)
		case n > 0:
			// tight re-poll while there is work
			errDelay = p.opts.IdleDelay
		default:
			errDelay = p.opts.IdleDelay
			if !sleepCtx(ctx, p.opts.IdleDelay) {
				return nil
			}
		}
	}
}

// PublishOnce runs a single claim/publish/mark cycle and returns the number
// of rows published.
func (p *Publisher) PublishOnce(ctx context.Context) (int, error) {
	return p.ledger.ClaimPending(ctx, p.opts.BatchSize, func(ctx context.Context, batch []ledger.OutboxEvent) error {
		// Group by partition, keeping outbox ID order inside each group so
		// per-user order survives (a user always hashes to one partition).
		parts := len(p.logs)
		grouped := make(map[uint32][]eventlog.AppendRecord)
		for _, ev := range batch {
			part := eventlog.PartitionFor(ev.UserID, parts)
			grouped[part] = append(grouped[part], eventlog.AppendRecord{
				Header:  eventlog.HeaderAt(ev.OccurredAt.UnixMilli()),
				Payload: ev.Payload,
			})
		}
		for part, recs := range grouped {
			if err := p.appendBatch(ctx, part, recs); err != nil {
				return fmt.Errorf("publisher: append partition %d: %w", part, err)
			}
		}
		p.logger.Debug("batch published", logpkg.Int("events", len(batch)))
		return nil
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
