package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Ledger entirely in process. It mirrors the Postgres
// semantics, including claim exclusivity: rows handed to an in-flight claim
// callback are invisible to concurrent claimers, the moral equivalent of
// FOR UPDATE SKIP LOCKED.
type Memory struct {
	mu      sync.Mutex
	scores  map[int64]UserScore
	outbox  []OutboxEvent
	claimed map[int64]bool
	nextID  int64
	policy  Policy
	now     func() time.Time
}

// NewMemory builds an empty in-memory ledger.
func NewMemory(policy Policy) *Memory {
	return &Memory{
		scores:  make(map[int64]UserScore),
		claimed: make(map[int64]bool),
		policy:  policy,
		now:     time.Now,
	}
}

// Close implements Ledger.
func (m *Memory) Close() {}

// SubmitScore implements Ledger.
func (m *Memory) SubmitScore(ctx context.Context, userID, score int64) (SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.scores[userID]
	if exists && !m.policy.AllowRegress && cur.Score >= score {
		return SubmitResult{Accepted: false}, nil
	}

	version := int64(1)
	if exists {
		version = cur.Version + 1
	}
	now := m.now().UTC()
	m.scores[userID] = UserScore{UserID: userID, Score: score, Version: version, UpdatedAt: now}

	m.nextID++
	m.outbox = append(m.outbox, OutboxEvent{
		ID:         m.nextID,
		UserID:     userID,
		Score:      score,
		Version:    version,
		OccurredAt: now,
		Payload:    EncodeRawEvent(RawEvent{UserID: userID, Score: score, Version: version, OccurredAt: now}),
	})
	return SubmitResult{Accepted: true, Version: version, Score: score}, nil
}

// ClaimPending implements Ledger.
func (m *Memory) ClaimPending(ctx context.Context, limit int, fn func(ctx context.Context, batch []OutboxEvent) error) (int, error) {
	m.mu.Lock()
	var batch []OutboxEvent
	for i := range m.outbox {
		if limit > 0 && len(batch) >= limit {
			break
		}
		row := &m.outbox[i]
		if row.ProcessedAt != nil || m.claimed[row.ID] {
			continue
		}
		m.claimed[row.ID] = true
		batch = append(batch, *row)
	}
	m.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	err := fn(ctx, batch)

	// Claimed rows are tracked by ID, not position: DeleteProcessedBefore
	// may have compacted the slice while fn ran.
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[int64]bool, len(batch))
	for _, e := range batch {
		ids[e.ID] = true
		delete(m.claimed, e.ID)
	}
	if err != nil {
		return 0, err
	}
	ts := m.now().UTC()
	for i := range m.outbox {
		if ids[m.outbox[i].ID] {
			m.outbox[i].ProcessedAt = &ts
		}
	}
	return len(batch), nil
}

// ScanScores implements Ledger.
func (m *Memory) ScanScores(ctx context.Context, batchSize int, fn func(batch []UserScore) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	m.mu.Lock()
	all := make([]UserScore, 0, len(m.scores))
	for _, us := range m.scores {
		all = append(all, us)
	}
	m.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })

	for start := 0; start < len(all); start += batchSize {
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// RankOf implements Ledger.
func (m *Memory) RankOf(ctx context.Context, userID int64) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	me, ok := m.scores[userID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	rank := int64(1)
	for _, other := range m.scores {
		if other.Score > me.Score || (other.Score == me.Score && other.UserID < userID) {
			rank++
		}
	}
	return rank, me.Score, nil
}

// TopN implements Ledger.
func (m *Memory) TopN(ctx context.Context, n int) ([]UserScore, error) {
	m.mu.Lock()
	all := make([]UserScore, 0, len(m.scores))
	for _, us := range m.scores {
		all = append(all, us)
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].UserID < all[j].UserID
	})
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

// DeleteProcessedBefore implements Ledger.
func (m *Memory) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.outbox[:0]
	var removed int64
	for _, row := range m.outbox {
		if row.ProcessedAt != nil && row.ProcessedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	m.outbox = kept
	return removed, nil
}

// PendingCount reports outbox rows not yet marked processed. Test helper.
func (m *Memory) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.outbox {
		if row.ProcessedAt == nil {
			n++
		}
	}
	return n
}
