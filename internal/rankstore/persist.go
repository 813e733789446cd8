package rankstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
	logpkg "github.com/rzbill/podium/pkg/log"
)

// Warm-start snapshots. Best effort only: the store is a pure function of
// the durable ledger, so losing or skipping these costs a recovery scan,
// never correctness.

var warmKey = []byte("rankstore/warm")

type warmEntry struct {
	UserID  int64 `json:"u"`
	Score   int64 `json:"s"`
	Version int64 `json:"v"`
}

// SaveWarm writes the full (userID, score, version) state to the store DB.
func (s *Store) SaveWarm(db *pebblestore.DB) error {
	s.mu.RLock()
	entries := make([]warmEntry, 0, len(s.users))
	for uid, rec := range s.users {
		entries = append(entries, warmEntry{UserID: uid, Score: rec.score, Version: rec.version})
	}
	s.mu.RUnlock()

	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return db.Set(warmKey, b)
}

// LoadWarm replays a previously saved warm snapshot through the normal
// version-gated apply path and marks the store ready. Returns the number
// of loaded entries; a missing snapshot is not an error.
func (s *Store) LoadWarm(db *pebblestore.DB) (int, error) {
	b, err := db.Get(warmKey)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var entries []warmEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return 0, err
	}
	for _, e := range entries {
		s.Apply(e.UserID, e.Score, e.Version)
	}
	s.MarkReady()
	return len(entries), nil
}

// RunWarmSnapshots periodically saves warm snapshots until ctx is done.
func (s *Store) RunWarmSnapshots(ctx context.Context, db *pebblestore.DB, interval time.Duration, logger logpkg.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			// final save on shutdown, still best effort
			if err := s.SaveWarm(db); err != nil {
				logger.Warn("final warm snapshot failed", logpkg.Err(err))
			}
			return
		case <-t.C:
			if err := s.SaveWarm(db); err != nil {
				logger.Warn("warm snapshot failed", logpkg.Err(err))
			}
		}
	}
}
