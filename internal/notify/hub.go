package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzbill/podium/internal/eventlog"
	logpkg "github.com/rzbill/podium/pkg/log"
)

// Sink is the transport half of one subscription. The HTTP layer implements
// it over SSE; tests implement it over slices.
type Sink interface {
	Send(d Delivery) error
	Context() context.Context
	Flush() error
}

// Delivery is one notification handed to a sink, with the log sequence a
// client echoes back to resume.
type Delivery struct {
	Seq          uint64
	Notification Notification
}

// HubOptions configures subscription delivery.
type HubOptions struct {
	// RatePerSec caps deliveries per connection. Default 10.
	RatePerSec float64
	// Burst is the limiter burst size. Default 2.
	Burst int
	// PollWait bounds how long an idle subscription blocks before
	// re-checking its context. Default 50ms.
	PollWait time.Duration
}

func (o *HubOptions) withDefaults() {
	if o.RatePerSec <= 0 {
		o.RatePerSec = 10
	}
	if o.Burst <= 0 {
		o.Burst = 2
	}
	if o.PollWait <= 0 {
		o.PollWait = 50 * time.Millisecond
	}
}

// SubscribeOptions shapes one subscription.
type SubscribeOptions struct {
	// LastSeen resumes delivery after the given sequence when that history
	// still exists; 0 means a fresh connect.
	LastSeen uint64
	// Filter is an optional CEL expression evaluated per notification.
	Filter string
}

// Hub fans notification logs out to subscribed connections. It reads
// through the emitter's per-channel logs so an append wakes blocked
// subscribers instead of leaving them to their poll interval.
type Hub struct {
	emitter *Emitter
	opts    HubOptions
	logger  logpkg.Logger
}

// NewHub builds a hub over the given emitter.
func NewHub(emitter *Emitter, opts HubOptions, logger logpkg.Logger) *Hub {
	opts.withDefaults()
	return &Hub{emitter: emitter, opts: opts, logger: logger.With(logpkg.Component("notify.hub"))}
}

// Subscribe tails a channel until the sink's context ends. Delivery is
// in order; when the connection is over its rate budget, queued
// notifications are replaced by newer ones so the subscriber converges on
// the latest board instead of draining a backlog. A LastSeen older than the
// retained history falls forward to the latest notification.
func (h *Hub) Subscribe(channel string, opts SubscribeOptions, sink Sink) error {
	log, err := h.emitter.channelLog(channel)
	if err != nil {
		return err
	}
	filter, err := NewFilter(opts.Filter)
	if err != nil {
		return err
	}
	lim := rate.NewLimiter(rate.Limit(h.opts.RatePerSec), h.opts.Burst)

	start := h.resolveStart(log, opts.LastSeen)
	h.logger.Debug("subscribe",
		logpkg.String("channel", channel),
		logpkg.Uint64("last_seen", opts.LastSeen),
		logpkg.Uint64("start", start.Seq()),
	)

	var pending *Delivery
	for {
		if err := sink.Context().Err(); err != nil {
			return err
		}
		items, _, err := log.Read(eventlog.ReadOptions{Start: start, Limit: 64})
		if err != nil {
			return err
		}
		for _, it := range items {
			n, derr := DecodeNotification(it.Payload)
			if derr != nil || !filter.Eval(&n) {
				continue
			}
			// replace, never queue: the newest board supersedes older ones
			pending = &Delivery{Seq: it.Seq, Notification: n}
		}
		if len(items) > 0 {
			start = eventlog.TokenFromSeq(items[len(items)-1].Seq + 1)
		}

		if pending != nil && lim.Allow() {
			if err := sink.Send(*pending); err != nil {
				return err
			}
			if err := sink.Flush(); err != nil {
				return err
			}
			pending = nil
		}

		if len(items) == 0 {
			log.WaitForAppend(h.opts.PollWait)
		}
	}
}

// resolveStart picks the starting token for a subscription. A resumable
// LastSeen continues right after it; anything else (fresh connect, pruned
// history) starts at the latest notification so the client sees the
// current board immediately.
func (h *Hub) resolveStart(log *eventlog.Log, lastSeen uint64) eventlog.Token {
	if lastSeen > 0 {
		first := log.FirstSeq()
		if first > 0 && lastSeen+1 >= first {
			return eventlog.TokenFromSeq(lastSeen + 1)
		}
	}
	if it, ok := log.Last(); ok {
		return eventlog.TokenFromSeq(it.Seq)
	}
	return eventlog.Token{}
}
