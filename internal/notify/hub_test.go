package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rzbill/podium/internal/rankstore"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
	logpkg "github.com/rzbill/podium/pkg/log"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel), logpkg.WithWriter(&bytes.Buffer{}))
}

func testNotification(channel, digest string, users ...int64) Notification {
	entries := make([]rankstore.Entry, len(users))
	for i, u := range users {
		entries[i] = rankstore.Entry{UserID: u, Score: 100 - int64(i), Rank: int64(i + 1)}
	}
	return Notification{Channel: channel, TopN: entries, EmittedAt: time.Now(), Digest: digest}
}

type chanSink struct {
	ctx context.Context
	ch  chan Delivery
}

func (s *chanSink) Send(d Delivery) error    { s.ch <- d; return nil }
func (s *chanSink) Context() context.Context { return s.ctx }
func (s *chanSink) Flush() error             { return nil }

func recvDelivery(t *testing.T, ch chan Delivery, within time.Duration) Delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(within):
		t.Fatal("timed out waiting for delivery")
		return Delivery{}
	}
}

func TestSubscribeFreshConnectGetsLatest(t *testing.T) {
	db := newTestDB(t)
	em := NewEmitter(db)
	ctx := context.Background()
	for _, d := range []string{"d1", "d2", "d3"} {
		if _, err := em.Emit(ctx, testNotification("global", d, 1, 2)); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	hub := NewHub(em, HubOptions{RatePerSec: 100, Burst: 4}, quietLogger())
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := &chanSink{ctx: subCtx, ch: make(chan Delivery, 16)}
	go func() { _ = hub.Subscribe("global", SubscribeOptions{}, sink) }()

	got := recvDelivery(t, sink.ch, 2*time.Second)
	if got.Notification.Digest != "d3" {
		t.Fatalf("fresh connect should see the latest board, got %s", got.Notification.Digest)
	}
}

func TestSubscribeResumeFromLastSeen(t *testing.T) {
	db := newTestDB(t)
	em := NewEmitter(db)
	ctx := context.Background()
	var seqs []uint64
	for _, d := range []string{"d1", "d2", "d3"} {
		seq, err := em.Emit(ctx, testNotification("global", d, 1, 2))
		if err != nil {
			t.Fatalf("emit: %v", err)
		}
		seqs = append(seqs, seq)
	}

	hub := NewHub(em, HubOptions{RatePerSec: 100, Burst: 4}, quietLogger())
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := &chanSink{ctx: subCtx, ch: make(chan Delivery, 16)}
	go func() { _ = hub.Subscribe("global", SubscribeOptions{LastSeen: seqs[0]}, sink) }()

	// d2 and d3 arrive within one read batch; coalescing keeps only the
	// newest, so the first delivery is the latest surviving board
	got := recvDelivery(t, sink.ch, 2*time.Second)
	if got.Notification.Digest != "d3" {
		t.Fatalf("expected coalesced resume to land on d3, got %s", got.Notification.Digest)
	}
	if got.Seq != seqs[2] {
		t.Fatalf("expected seq %d, got %d", seqs[2], got.Seq)
	}
}

func TestSubscribePrunedResumeFallsToLatest(t *testing.T) {
	db := newTestDB(t)
	em := NewEmitter(db)
	ctx := context.Background()

	old := testNotification("global", "old", 1)
	old.EmittedAt = time.Now().Add(-time.Hour)
	oldSeq, err := em.Emit(ctx, old)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if _, err := em.TrimOlderThan(ctx, time.Now().Add(-time.Minute).UnixMilli()); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if _, err := em.Emit(ctx, testNotification("global", "fresh-1", 1, 2)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if _, err := em.Emit(ctx, testNotification("global", "fresh-2", 1, 2)); err != nil {
		t.Fatalf("emit: %v", err)
	}

	hub := NewHub(em, HubOptions{RatePerSec: 100, Burst: 4}, quietLogger())
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := &chanSink{ctx: subCtx, ch: make(chan Delivery, 16)}
	go func() { _ = hub.Subscribe("global", SubscribeOptions{LastSeen: oldSeq}, sink) }()

	got := recvDelivery(t, sink.ch, 2*time.Second)
	if got.Notification.Digest != "fresh-2" {
		t.Fatalf("pruned resume should land on the latest board, got %s", got.Notification.Digest)
	}
}

func TestSubscribeCoalescesWhenOverBudget(t *testing.T) {
	db := newTestDB(t)
	em := NewEmitter(db)
	ctx := context.Background()

	if _, err := em.Emit(ctx, testNotification("global", "d1", 1)); err != nil {
		t.Fatalf("emit: %v", err)
	}

	// one delivery per second, burst 1: the first send spends the budget
	hub := NewHub(em, HubOptions{RatePerSec: 1, Burst: 1}, quietLogger())
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := &chanSink{ctx: subCtx, ch: make(chan Delivery, 16)}
	go func() { _ = hub.Subscribe("global", SubscribeOptions{}, sink) }()

	first := recvDelivery(t, sink.ch, 2*time.Second)
	if first.Notification.Digest != "d1" {
		t.Fatalf("expected d1 first, got %s", first.Notification.Digest)
	}

	// burst of updates while the connection is over budget
	for _, d := range []string{"d2", "d3", "d4"} {
		if _, err := em.Emit(ctx, testNotification("global", d, 1)); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}
	second := recvDelivery(t, sink.ch, 3*time.Second)
	if second.Notification.Digest != "d4" {
		t.Fatalf("slow subscriber must get the final board, got %s", second.Notification.Digest)
	}
	select {
	case d := <-sink.ch:
		t.Fatalf("intermediate board leaked: %s", d.Notification.Digest)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeWakesOnEmit(t *testing.T) {
	db := newTestDB(t)
	em := NewEmitter(db)
	ctx := context.Background()

	// PollWait far beyond the test deadline: delivery can only arrive via
	// the append wake-up on the shared channel log
	hub := NewHub(em, HubOptions{RatePerSec: 100, Burst: 4, PollWait: time.Minute}, quietLogger())
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := &chanSink{ctx: subCtx, ch: make(chan Delivery, 16)}
	go func() { _ = hub.Subscribe("global", SubscribeOptions{}, sink) }()
	// let the subscription block on an empty log
	time.Sleep(100 * time.Millisecond)

	if _, err := em.Emit(ctx, testNotification("global", "woken", 1, 2)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := recvDelivery(t, sink.ch, 2*time.Second)
	if got.Notification.Digest != "woken" {
		t.Fatalf("expected the emitted board, got %s", got.Notification.Digest)
	}
}

func TestSubscribeFilter(t *testing.T) {
	db := newTestDB(t)
	em := NewEmitter(db)
	ctx := context.Background()

	hub := NewHub(em, HubOptions{RatePerSec: 100, Burst: 4}, quietLogger())
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := &chanSink{ctx: subCtx, ch: make(chan Delivery, 16)}
	go func() {
		_ = hub.Subscribe("global", SubscribeOptions{Filter: `top.exists(e, e.userId == 7)`}, sink)
	}()
	// let the subscription reach its tail position before emitting
	time.Sleep(100 * time.Millisecond)

	if _, err := em.Emit(ctx, testNotification("global", "no-seven", 1, 2)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if _, err := em.Emit(ctx, testNotification("global", "with-seven", 1, 7)); err != nil {
		t.Fatalf("emit: %v", err)
	}

	got := recvDelivery(t, sink.ch, 2*time.Second)
	if got.Notification.Digest != "with-seven" {
		t.Fatalf("filter should pass only boards containing user 7, got %s", got.Notification.Digest)
	}
}

func TestFilterRejectsBadExpression(t *testing.T) {
	if _, err := NewFilter("this is not cel ((("); err == nil {
		t.Fatal("expected compile error")
	}
	f, err := NewFilter("")
	if err != nil {
		t.Fatalf("empty filter: %v", err)
	}
	n := testNotification("global", "d", 1)
	if !f.Eval(&n) {
		t.Fatal("disabled filter must pass everything")
	}
}
