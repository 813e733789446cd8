package rankstore

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{TopN: 3, SnapshotTTL: time.Minute, Seed: 1})
}

func TestApplyVersionGate(t *testing.T) {
	s := newTestStore(t)

	if res := s.Apply(1, 100, 1); !res.Applied {
		t.Fatal("expected first apply to land")
	}
	// same version again: duplicate delivery, must be a no-op
	if res := s.Apply(1, 999, 1); res.Applied {
		t.Fatal("expected duplicate version to be discarded")
	}
	// stale version: must be a no-op
	if res := s.Apply(1, 999, 0); res.Applied {
		t.Fatal("expected stale version to be discarded")
	}
	if _, score, err := s.RankOf(1); err != nil || score != 100 {
		t.Fatalf("expected score 100, got %d (err %v)", score, err)
	}

	if res := s.Apply(1, 50, 2); !res.Applied {
		t.Fatal("expected newer version to land")
	}
	if _, score, _ := s.RankOf(1); score != 50 {
		t.Fatalf("expected score 50 after version 2, got %d", score)
	}
}

func TestApplyConvergesRegardlessOfOrder(t *testing.T) {
	events := []struct{ user, score, version int64 }{
		{1, 100, 1}, {2, 200, 1}, {1, 150, 2}, {3, 50, 1}, {2, 120, 2},
	}

	forward := newTestStore(t)
	for _, e := range events {
		forward.Apply(e.user, e.score, e.version)
	}
	backward := newTestStore(t)
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		backward.Apply(e.user, e.score, e.version)
	}

	a, err := forward.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	b, err := backward.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest != b.Digest {
		t.Fatalf("digests diverged: %s vs %s", a.Digest, b.Digest)
	}
}

func TestTopAffected(t *testing.T) {
	s := newTestStore(t) // TopN: 3
	for i := int64(1); i <= 3; i++ {
		if res := s.Apply(i, i*100, 1); !res.TopAffected {
			t.Fatalf("user %d should affect an underfull board", i)
		}
	}
	// lands at rank 4, board unchanged
	if res := s.Apply(4, 10, 1); res.TopAffected {
		t.Fatal("rank-4 entry should not affect the top")
	}
	// displaces rank 3
	if res := s.Apply(4, 150, 2); !res.TopAffected {
		t.Fatal("entry into the top should be reported")
	}
	// member moving within the board
	if res := s.Apply(2, 400, 2); !res.TopAffected {
		t.Fatal("member reorder should be reported")
	}
	// member dropping out of the board
	if res := s.Apply(4, 20, 3); !res.TopAffected {
		t.Fatal("member leaving the top should be reported")
	}
}

func TestRankOf(t *testing.T) {
	s := New(Options{TopN: 2, SnapshotTTL: time.Minute, Seed: 1})
	for i := int64(1); i <= 10; i++ {
		s.Apply(i, i*10, 1)
	}
	// RankOf works beyond the rendered snapshot size
	rank, score, err := s.RankOf(1)
	if err != nil {
		t.Fatal(err)
	}
	if rank != 10 || score != 10 {
		t.Fatalf("expected rank 10 score 10, got rank %d score %d", rank, score)
	}
	if _, _, err := s.RankOf(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnavailableBeforeWarm(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Snapshot(); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if _, _, err := s.RankOf(1); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	s.MarkReady()
	if _, _, err := s.RankOf(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after MarkReady, got %v", err)
	}
	if snap, err := s.Snapshot(); err != nil || len(snap.Entries) != 0 {
		t.Fatalf("expected empty snapshot, got %v (err %v)", snap, err)
	}
}

func TestSnapshotCache(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	s.Apply(1, 100, 1)
	first, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	// within TTL the cached pointer is served
	now = now.Add(30 * time.Second)
	again, _ := s.Snapshot()
	if again != first {
		t.Fatal("expected cached snapshot within TTL")
	}
	// past TTL a recompute happens even without writes
	now = now.Add(2 * time.Minute)
	fresh, _ := s.Snapshot()
	if fresh == first {
		t.Fatal("expected recompute past TTL")
	}
	if fresh.Digest != first.Digest {
		t.Fatal("recompute of unchanged board must keep the digest")
	}
}

func TestTopNCachedAndLive(t *testing.T) {
	s := newTestStore(t) // TopN: 3
	for i := int64(1); i <= 5; i++ {
		s.Apply(i, i*10, 1)
	}
	top2, err := s.TopN(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top2) != 2 || top2[0].UserID != 5 || top2[1].UserID != 4 {
		t.Fatalf("unexpected top2: %+v", top2)
	}
	// beyond the snapshot size falls through to the live structure
	top5, err := s.TopN(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(top5) != 5 || top5[4].UserID != 1 || top5[4].Rank != 5 {
		t.Fatalf("unexpected top5: %+v", top5)
	}
}

func TestConcurrentApplyAndRead(t *testing.T) {
	s := New(Options{TopN: 5, SnapshotTTL: time.Millisecond, Seed: 1})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for v := int64(1); v <= 200; v++ {
				s.Apply(int64(w), v, v)
			}
		}(w)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			s.TopN(5)
			s.RankOf(0)
			s.Snapshot()
		}
	}()
	wg.Wait()
	<-done

	for w := int64(0); w < 4; w++ {
		if _, score, err := s.RankOf(w); err != nil || score != 200 {
			t.Fatalf("user %d: expected final score 200, got %d (err %v)", w, score, err)
		}
	}
}
