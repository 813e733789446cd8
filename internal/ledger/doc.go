// Package ledger is the durable source of truth for scores.
//
// It holds the current score-per-user table and an append-only outbox of
// pending change events. A score submit and its outbox row commit in one
// transaction, so every accepted write is eventually published even if the
// process dies right after commit (the outbox pattern).
//
// Two implementations exist: Postgres via pgx (production) and an in-memory
// store with the same claim-exclusivity semantics (tests, dev mode). The
// claim path hands a batch of unpublished rows to a callback and marks them
// processed only when the callback succeeds, inside the claiming
// transaction; concurrent claimers skip each other's rows.
package ledger
