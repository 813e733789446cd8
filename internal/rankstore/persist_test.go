package rankstore

import (
	"testing"
	"time"

	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

func newWarmDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       t.TempDir(),
		Fsync:         pebblestore.FsyncModeInterval,
		FsyncInterval: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestWarmSaveLoad(t *testing.T) {
	db := newWarmDB(t)

	src := New(Options{TopN: 3, SnapshotTTL: time.Minute, Seed: 1})
	src.Apply(1, 100, 2)
	src.Apply(2, 300, 5)
	src.Apply(3, 200, 1)
	if err := src.SaveWarm(db); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := New(Options{TopN: 3, SnapshotTTL: time.Minute, Seed: 2})
	n, err := dst.LoadWarm(db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 loaded entries, got %d", n)
	}
	if !dst.Ready() {
		t.Fatal("expected store ready after warm load")
	}
	a, _ := src.Snapshot()
	b, _ := dst.Snapshot()
	if a.Digest != b.Digest {
		t.Fatalf("warm-loaded board diverged: %s vs %s", a.Digest, b.Digest)
	}
	// versions survive so replays after the snapshot point stay gated
	if v, ok := dst.Version(2); !ok || v != 5 {
		t.Fatalf("expected version 5 for user 2, got %d (ok=%v)", v, ok)
	}
	if res := dst.Apply(2, 999, 5); res.Applied {
		t.Fatal("expected replayed version to be discarded after warm load")
	}
}

func TestWarmLoadMissing(t *testing.T) {
	db := newWarmDB(t)
	s := New(Options{TopN: 3, SnapshotTTL: time.Minute, Seed: 1})
	n, err := s.LoadWarm(db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 entries, got %d", n)
	}
	if s.Ready() {
		t.Fatal("missing snapshot must not mark the store ready")
	}
}
