package eventlog

import (
	"context"
	"testing"

	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "scores.raw", 1)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func TestAppendAssignsSequential(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	seqs, err := l.Append(ctx, []AppendRecord{
		{Header: HeaderNow(), Payload: []byte("p1")},
		{Header: HeaderNow(), Payload: []byte("p2")},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(seqs) != 2 {
		t.Fatalf("want 2 seqs, got %d", len(seqs))
	}
	if !(seqs[0] < seqs[1]) {
		t.Fatalf("expected increasing seqs: %v", seqs)
	}
	if l.LastSeq() != seqs[1] {
		t.Fatalf("lastSeq=%d want %d", l.LastSeq(), seqs[1])
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	l, err := OpenLog(db, "scores.raw", 1)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	ctx := context.Background()
	seqs, err := l.Append(ctx, []AppendRecord{{Header: HeaderNow(), Payload: []byte("x")}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := OpenLog(db2, "scores.raw", 1)
	if err != nil {
		t.Fatalf("open log2: %v", err)
	}
	seqs2, err := l2.Append(ctx, []AppendRecord{{Header: HeaderNow(), Payload: []byte("y")}})
	if err != nil {
		t.Fatalf("append2: %v", err)
	}
	if !(seqs[0] < seqs2[0]) {
		t.Fatalf("expected next seq > previous: prev=%d next=%d", seqs[0], seqs2[0])
	}
}

func TestPartitionsIsolated(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	p0, _ := OpenLog(db, "scores.raw", 0)
	p1, _ := OpenLog(db, "scores.raw", 1)
	ctx := context.Background()
	if _, err := p0.Append(ctx, []AppendRecord{{Header: HeaderNow(), Payload: []byte("a")}}); err != nil {
		t.Fatalf("append p0: %v", err)
	}
	if _, err := p1.Append(ctx, []AppendRecord{{Header: HeaderNow(), Payload: []byte("b")}}); err != nil {
		t.Fatalf("append p1: %v", err)
	}
	items, _, _ := p0.Read(ReadOptions{})
	if len(items) != 1 || string(items[0].Payload) != "a" {
		t.Fatalf("p0 saw %v", items)
	}
	items, _, _ = p1.Read(ReadOptions{})
	if len(items) != 1 || string(items[0].Payload) != "b" {
		t.Fatalf("p1 saw %v", items)
	}
}
