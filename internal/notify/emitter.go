package notify

import (
	"context"
	"sync"

	"github.com/rzbill/podium/internal/eventlog"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

// channelTopic names the durable log backing one notification channel.
// Channel logs are single-partition: board renders for one channel are a
// total order.
func channelTopic(channel string) string { return "notify/" + channel }

// openChannelLog opens the notification log for a channel.
func openChannelLog(db *pebblestore.DB, channel string) (*eventlog.Log, error) {
	return eventlog.OpenLog(db, channelTopic(channel), 0)
}

// Emitter appends rendered notifications to per-channel logs. Safe for
// concurrent use by multiple projection partitions.
type Emitter struct {
	db   *pebblestore.DB
	mu   sync.Mutex
	logs map[string]*eventlog.Log
}

// NewEmitter builds an emitter over the given store.
func NewEmitter(db *pebblestore.DB) *Emitter {
	return &Emitter{db: db, logs: make(map[string]*eventlog.Log)}
}

func (e *Emitter) channelLog(channel string) (*eventlog.Log, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.logs[channel]; ok {
		return l, nil
	}
	l, err := openChannelLog(e.db, channel)
	if err != nil {
		return nil, err
	}
	e.logs[channel] = l
	return l, nil
}

// Emit appends one notification to its channel log and returns the
// assigned sequence.
func (e *Emitter) Emit(ctx context.Context, n Notification) (uint64, error) {
	l, err := e.channelLog(n.Channel)
	if err != nil {
		return 0, err
	}
	payload, err := EncodeNotification(n)
	if err != nil {
		return 0, err
	}
	seqs, err := l.Append(ctx, []eventlog.AppendRecord{{
		Header:  eventlog.HeaderAt(n.EmittedAt.UnixMilli()),
		Payload: payload,
	}})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

// TrimOlderThan removes notification history older than cutoffMs across all
// channels this emitter has written to.
func (e *Emitter) TrimOlderThan(ctx context.Context, cutoffMs int64) (int, error) {
	e.mu.Lock()
	logs := make([]*eventlog.Log, 0, len(e.logs))
	for _, l := range e.logs {
		logs = append(logs, l)
	}
	e.mu.Unlock()

	total := 0
	for _, l := range logs {
		n, err := l.TrimOlderThan(ctx, cutoffMs, 1024)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
