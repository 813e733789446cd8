package rankstore

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound indicates the user has no ranked entry.
var ErrNotFound = errors.New("rankstore: user not found")

// ErrCacheUnavailable indicates the store has not been warmed or caught up
// yet. The query layer falls back to the durable ledger on it, never to
// silently wrong data.
var ErrCacheUnavailable = errors.New("rankstore: cache unavailable")

// Options configures a Store.
type Options struct {
	// TopN is the rendered snapshot size. Default 10.
	TopN int
	// SnapshotTTL bounds how long a cached snapshot may serve reads before
	// a recompute. Default 5s.
	SnapshotTTL time.Duration
	// Seed fixes the skiplist level RNG; 0 means time-based.
	Seed int64
}

func (o *Options) withDefaults() {
	if o.TopN <= 0 {
		o.TopN = 10
	}
	if o.SnapshotTTL <= 0 {
		o.SnapshotTTL = 5 * time.Second
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
}

type userRec struct {
	score   int64
	version int64
}

// ApplyResult reports what a single event application did.
type ApplyResult struct {
	// Applied is false for duplicate or stale versions; nothing mutated.
	Applied bool
	// TopAffected is true when the mutation landed in or displaced a
	// member of the rendered top-N, i.e. the snapshot was recomputed.
	TopAffected bool
}

// Store is the in-memory ranked structure plus the cached top-N snapshot.
type Store struct {
	mu    sync.RWMutex
	list  *skiplist
	users map[int64]userRec
	opts  Options
	snap  *Snapshot
	ready bool
	now   func() time.Time
}

// New builds an empty Store.
func New(opts Options) *Store {
	opts.withDefaults()
	return &Store{
		list:  newSkiplist(opts.Seed),
		users: make(map[int64]userRec),
		opts:  opts,
		now:   time.Now,
	}
}

// Apply upserts one (userID, score, version) observation. The version gate
// makes it idempotent: a version at or below the recorded one is discarded
// without mutation, which is what makes at-least-once delivery and
// concurrent recovery safe.
func (s *Store) Apply(userID, score, version int64) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.users[userID]
	if exists && cur.version >= version {
		return ApplyResult{Applied: false}
	}

	oldInTop := false
	if exists {
		if r := s.list.rank(userID, cur.score); r > 0 && r <= s.opts.TopN {
			oldInTop = true
		}
		s.list.delete(userID, cur.score)
	}
	s.list.insert(userID, score)
	s.users[userID] = userRec{score: score, version: version}
	s.ready = true

	newRank := s.list.rank(userID, score)
	affected := oldInTop || (newRank > 0 && newRank <= s.opts.TopN)
	if affected {
		s.rebuildSnapshotLocked()
	}
	return ApplyResult{Applied: true, TopAffected: affected}
}

// Snapshot returns the current rendered top-N, recomputing when the cache
// is stale or missing. Returns ErrCacheUnavailable before the store has
// seen any state.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	if s.ready && s.snap != nil && s.now().Sub(s.snap.GeneratedAt) <= s.opts.SnapshotTTL {
		snap := s.snap
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrCacheUnavailable
	}
	if s.snap == nil || s.now().Sub(s.snap.GeneratedAt) > s.opts.SnapshotTTL {
		s.rebuildSnapshotLocked()
	}
	return s.snap, nil
}

// TopN returns up to count leading entries. Counts within the rendered
// snapshot size are served from the cache without touching the skiplist;
// larger counts read the live structure.
func (s *Store) TopN(count int) ([]Entry, error) {
	if count <= 0 {
		return nil, nil
	}
	if count <= s.opts.TopN {
		snap, err := s.Snapshot()
		if err != nil {
			return nil, err
		}
		if count > len(snap.Entries) {
			count = len(snap.Entries)
		}
		return append([]Entry(nil), snap.Entries[:count]...), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, ErrCacheUnavailable
	}
	return s.list.firstN(count), nil
}

// RankOf returns the 1-based rank and current score of a user, always from
// the live structure.
func (s *Store) RankOf(userID int64) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return 0, 0, ErrCacheUnavailable
	}
	rec, ok := s.users[userID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	r := s.list.rank(userID, rec.score)
	if r == 0 {
		return 0, 0, ErrNotFound
	}
	return int64(r), rec.score, nil
}

// Version returns the recorded version for a user, if any. Used by tests
// and the warm-start loader.
func (s *Store) Version(userID int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	return rec.version, ok
}

// Len returns the number of ranked users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.length
}

// MarkReady flags an empty store as authoritative (e.g. after a recovery
// run over an empty ledger), so queries return not-found instead of
// cache-unavailable.
func (s *Store) MarkReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

// Ready reports whether queries are being served from this store.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Store) rebuildSnapshotLocked() {
	entries := s.list.firstN(s.opts.TopN)
	s.snap = &Snapshot{
		Entries:     entries,
		GeneratedAt: s.now(),
		Digest:      computeDigest(entries),
	}
}
