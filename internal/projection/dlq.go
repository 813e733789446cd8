package projection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rzbill/podium/internal/eventlog"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

// DLQTopic is the dead-letter log for events that exhausted their retries.
const DLQTopic = "scores.raw.dlq"

// DLQEntry wraps a dead-lettered event with its failure context.
type DLQEntry struct {
	Event     json.RawMessage `json:"event"`
	Error     string          `json:"error"`
	Attempts  uint32          `json:"attempts"`
	FailedAt  time.Time       `json:"failedAt"`
	Partition uint32          `json:"partition"`
	Seq       uint64          `json:"seq"`
}

// DLQ appends dead-lettered events to a single-partition log.
type DLQ struct {
	log *eventlog.Log
}

// OpenDLQ opens the dead-letter log.
func OpenDLQ(db *pebblestore.DB) (*DLQ, error) {
	l, err := eventlog.OpenLog(db, DLQTopic, 0)
	if err != nil {
		return nil, err
	}
	return &DLQ{log: l}, nil
}

// Route appends one entry.
func (d *DLQ) Route(ctx context.Context, e DLQEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = d.log.Append(ctx, []eventlog.AppendRecord{{
		Header:  eventlog.HeaderAt(e.FailedAt.UnixMilli()),
		Payload: payload,
	}})
	return err
}

// List returns up to limit dead-lettered entries from the start.
func (d *DLQ) List(limit int) ([]DLQEntry, error) {
	items, _, err := d.log.Read(eventlog.ReadOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(items))
	for _, it := range items {
		var e DLQEntry
		if json.Unmarshal(it.Payload, &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of dead-lettered entries still retained.
func (d *DLQ) Len() int {
	first := d.log.FirstSeq()
	if first == 0 {
		return 0
	}
	return int(d.log.LastSeq() - first + 1)
}
