// Package publisher moves committed outbox rows onto the raw event log.
//
// Each cycle claims a bounded batch of unpublished rows (claim exclusivity
// comes from the ledger), appends them to the per-user partition of the
// scores.raw topic in outbox ID order, and marks the rows processed inside
// the claiming transaction only after the log append durably committed. A
// failed append rolls the claim back, so delivery is at-least-once and rows
// are never skipped.
//
// Cadence: immediate re-poll after a full batch, short backoff when the
// outbox is drained, growing backoff while the log is unavailable.
package publisher
