package eventlog

import (
	"context"

	"github.com/cockroachdb/pebble"
)

// TrimOlderThan deletes entries whose header timestamp is below cutoffMs.
// Deletes commit in batches of up to batchLimit keys. Returns the number of
// deleted entries. Cursors are left alone; a cursor pointing into a trimmed
// range simply resumes at the first surviving entry.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	low := KeyLogEntry(l.topic, l.part, 0)
	hi := KeyLogEntry(l.topic, l.part, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	ok := iter.First()
	for ok {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			dec, valid := DecodeRecord(iter.Value())
			if valid {
				ms, hasTs := HeaderTimestamp(dec.Header)
				if !hasTs || ms >= cutoffMs {
					// Entries are appended in time order; stop at the
					// first survivor.
					ok = false
					break
				}
			}
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
		}
		b.Close()
		if n < batchLimit {
			break
		}
	}
	return deleted, nil
}
