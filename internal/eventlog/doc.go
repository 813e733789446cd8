// Package eventlog implements podium's internal append-only event log.
//
// # Overview
//
// The log is partitioned by topic/partition and persisted in Pebble. Keys
// are lexicographically ordered for efficient range scans:
//   - log/{topic}/{part_be4}/m           (partition metadata: lastSeq)
//   - log/{topic}/{part_be4}/e/{seq_be8} (entries)
//   - cursor/{topic}/{group}/{part_be4}  (durable group cursors)
//
// Records are stored as: varint headerLen | header | payload | crc32c.
// The first 8 bytes of every header are the big-endian write timestamp in
// milliseconds; trims key off it.
//
// API surface (internal):
//
//	l, _ := OpenLog(db, "scores.raw", part)
//	seqs, _ := l.Append(ctx, []AppendRecord{{Header: HeaderNow(), Payload: p}})
//	items, next, _ := l.Read(ReadOptions{Start: TokenFromSeq(seqs[0]), Limit: 100})
//	woke := l.WaitForAppend(200 * time.Millisecond)
//	_ = l.CommitCursor("projector", TokenFromSeq(seqs[len(seqs)-1]))
//	_, _ = l.TrimOlderThan(ctx, cutoffMs, 1024)
//
// Cursor commits are idempotent and never regress, which makes replays after
// a crash safe for idempotent consumers.
package eventlog
