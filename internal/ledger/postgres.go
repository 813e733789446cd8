package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema for the durable ledger. outbox_pending_idx keeps the claim query
// cheap regardless of how much processed history is retained.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_scores (
	user_id    BIGINT PRIMARY KEY,
	score      BIGINT NOT NULL,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outbox_events (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL,
	score        BIGINT NOT NULL,
	version      BIGINT NOT NULL,
	occurred_at  TIMESTAMPTZ NOT NULL,
	payload      BYTEA NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_pending_idx
	ON outbox_events (id) WHERE processed_at IS NULL;
`

const (
	submitImproveSQL = `
INSERT INTO user_scores (user_id, score, version, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (user_id) DO UPDATE
	SET score = EXCLUDED.score,
	    version = user_scores.version + 1,
	    updated_at = now()
	WHERE user_scores.score < EXCLUDED.score
RETURNING version, score`

	submitAnySQL = `
INSERT INTO user_scores (user_id, score, version, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (user_id) DO UPDATE
	SET score = EXCLUDED.score,
	    version = user_scores.version + 1,
	    updated_at = now()
RETURNING version, score`

	insertOutboxSQL = `
INSERT INTO outbox_events (user_id, score, version, occurred_at, payload)
VALUES ($1, $2, $3, $4, $5)`

	claimSQL = `
SELECT id, user_id, score, version, occurred_at, payload
FROM outbox_events
WHERE processed_at IS NULL
ORDER BY id
LIMIT $1
FOR UPDATE SKIP LOCKED`

	markProcessedSQL = `
UPDATE outbox_events SET processed_at = now() WHERE id = ANY($1)`

	scanScoresSQL = `
SELECT user_id, score, version, updated_at
FROM user_scores
WHERE user_id > $1
ORDER BY user_id
LIMIT $2`

	rankOfSQL = `
SELECT rank, score FROM (
	SELECT user_id, score,
	       ROW_NUMBER() OVER (ORDER BY score DESC, user_id ASC) AS rank
	FROM user_scores
) ranked
WHERE user_id = $1`

	topNSQL = `
SELECT user_id, score, version, updated_at
FROM user_scores
ORDER BY score DESC, user_id ASC
LIMIT $1`

	deleteProcessedSQL = `
DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < $1`
)

// Postgres implements Ledger on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	policy Policy
}

// OpenPostgres connects, applies the schema, and returns the ledger.
func OpenPostgres(ctx context.Context, dsn string, policy Policy) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: ensure schema: %w", err)
	}
	return &Postgres{pool: pool, policy: policy}, nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.pool.Close() }

// SubmitScore implements Ledger.
func (p *Postgres) SubmitScore(ctx context.Context, userID, score int64) (SubmitResult, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("ledger: begin: %w (%w)", err, ErrUnavailable)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := submitImproveSQL
	if p.policy.AllowRegress {
		q = submitAnySQL
	}

	var version, newScore int64
	err = tx.QueryRow(ctx, q, userID, score).Scan(&version, &newScore)
	if errors.Is(err, pgx.ErrNoRows) {
		// policy rejected the write; nothing changed, nothing to publish
		return SubmitResult{Accepted: false}, nil
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("ledger: submit: %w", err)
	}

	occurredAt := time.Now().UTC()
	payload := EncodeRawEvent(RawEvent{UserID: userID, Score: newScore, Version: version, OccurredAt: occurredAt})
	if _, err := tx.Exec(ctx, insertOutboxSQL, userID, newScore, version, occurredAt, payload); err != nil {
		return SubmitResult{}, fmt.Errorf("ledger: enqueue outbox: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return SubmitResult{}, fmt.Errorf("ledger: commit: %w", err)
	}
	return SubmitResult{Accepted: true, Version: version, Score: newScore}, nil
}

// ClaimPending implements Ledger. The SKIP LOCKED select keeps concurrent
// publisher instances on disjoint rows with no extra coordination.
func (p *Postgres) ClaimPending(ctx context.Context, limit int, fn func(ctx context.Context, batch []OutboxEvent) error) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: begin claim: %w (%w)", err, ErrUnavailable)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, claimSQL, limit)
	if err != nil {
		return 0, fmt.Errorf("ledger: claim select: %w", err)
	}
	var batch []OutboxEvent
	var ids []int64
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Score, &ev.Version, &ev.OccurredAt, &ev.Payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("ledger: claim scan: %w", err)
		}
		batch = append(batch, ev)
		ids = append(ids, ev.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("ledger: claim rows: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	if err := fn(ctx, batch); err != nil {
		// rollback leaves the rows pending for a later attempt
		return 0, err
	}

	if _, err := tx.Exec(ctx, markProcessedSQL, ids); err != nil {
		return 0, fmt.Errorf("ledger: mark processed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ledger: commit claim: %w", err)
	}
	return len(batch), nil
}

// ScanScores implements Ledger with keyset pagination.
func (p *Postgres) ScanScores(ctx context.Context, batchSize int, fn func(batch []UserScore) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	var after int64 = -1 << 63
	for {
		rows, err := p.pool.Query(ctx, scanScoresSQL, after, batchSize)
		if err != nil {
			return fmt.Errorf("ledger: scan: %w", err)
		}
		var batch []UserScore
		for rows.Next() {
			var us UserScore
			if err := rows.Scan(&us.UserID, &us.Score, &us.Version, &us.UpdatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("ledger: scan row: %w", err)
			}
			batch = append(batch, us)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("ledger: scan rows: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		after = batch[len(batch)-1].UserID
		if len(batch) < batchSize {
			return nil
		}
	}
}

// RankOf implements Ledger via a window-function scan.
func (p *Postgres) RankOf(ctx context.Context, userID int64) (int64, int64, error) {
	var rank, score int64
	err := p.pool.QueryRow(ctx, rankOfSQL, userID).Scan(&rank, &score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ledger: rank: %w", err)
	}
	return rank, score, nil
}

// TopN implements Ledger.
func (p *Postgres) TopN(ctx context.Context, n int) ([]UserScore, error) {
	rows, err := p.pool.Query(ctx, topNSQL, n)
	if err != nil {
		return nil, fmt.Errorf("ledger: topN: %w", err)
	}
	defer rows.Close()
	var out []UserScore
	for rows.Next() {
		var us UserScore
		if err := rows.Scan(&us.UserID, &us.Score, &us.Version, &us.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ledger: topN scan: %w", err)
		}
		out = append(out, us)
	}
	return out, rows.Err()
}

// DeleteProcessedBefore implements Ledger.
func (p *Postgres) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, deleteProcessedSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ledger: retention: %w", err)
	}
	return tag.RowsAffected(), nil
}
