package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates the user has no durable score.
var ErrNotFound = errors.New("ledger: user not found")

// ErrUnavailable indicates the durable store cannot be reached. Writes must
// fail loudly on it; reads may degrade to the cache.
var ErrUnavailable = errors.New("ledger: unavailable")

// UserScore is the durable current score of one user. Version starts at 1
// and increments exactly once per accepted write.
type UserScore struct {
	UserID    int64
	Score     int64
	Version   int64
	UpdatedAt time.Time
}

// OutboxEvent is a durable intent-to-publish row created in the same
// transaction as the UserScore mutation. ProcessedAt is set exactly once by
// a successful claim and never unset.
type OutboxEvent struct {
	ID          int64
	UserID      int64
	Score       int64
	Version     int64
	OccurredAt  time.Time
	Payload     []byte
	ProcessedAt *time.Time
}

// SubmitResult reports the outcome of a score submit.
type SubmitResult struct {
	// Accepted is false when the policy rejected the write (e.g. the score
	// did not improve). A rejected write mutates nothing.
	Accepted bool
	Version  int64
	Score    int64
}

// Policy controls which writes the ledger accepts.
type Policy struct {
	// AllowRegress accepts writes that do not improve the score. Default is
	// higher-score-wins.
	AllowRegress bool
}

// Ledger is the durable store interface consumed by the write path, the
// change publisher, and the recovery job.
type Ledger interface {
	// SubmitScore atomically applies the score policy, bumps the version,
	// and enqueues the outbox row. All-or-nothing.
	SubmitScore(ctx context.Context, userID, score int64) (SubmitResult, error)

	// ClaimPending selects up to limit unpublished outbox rows in ID order,
	// exclusively against concurrent claimers, and invokes fn with them.
	// When fn returns nil the rows are marked processed in the same
	// transaction; any error rolls back and leaves them pending. Returns the
	// number of rows handed to fn.
	ClaimPending(ctx context.Context, limit int, fn func(ctx context.Context, batch []OutboxEvent) error) (int, error)

	// ScanScores streams the current UserScore table in batches, in
	// arbitrary but stable order. Used by the recovery job.
	ScanScores(ctx context.Context, batchSize int, fn func(batch []UserScore) error) error

	// RankOf computes the 1-based durable rank of a user (score desc,
	// userID asc tie-break). Fallback path when the cache is unavailable.
	RankOf(ctx context.Context, userID int64) (rank int64, score int64, err error)

	// TopN returns the durable top-n. Fallback path only.
	TopN(ctx context.Context, n int) ([]UserScore, error)

	// DeleteProcessedBefore removes processed outbox rows older than cutoff.
	// Retention only; never called by publisher logic.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close()
}

// RawEvent is the wire schema of a score-change event carried by outbox
// payloads and the raw event log.
type RawEvent struct {
	UserID     int64     `json:"userId"`
	Score      int64     `json:"score"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EncodeRawEvent serializes a RawEvent payload.
func EncodeRawEvent(e RawEvent) []byte {
	b, _ := json.Marshal(e)
	return b
}

// DecodeRawEvent parses a RawEvent payload.
func DecodeRawEvent(b []byte) (RawEvent, error) {
	var e RawEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return RawEvent{}, err
	}
	return e, nil
}
