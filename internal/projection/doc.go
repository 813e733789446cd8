// Package projection consumes raw score events from the partitioned event
// log and maintains the in-memory ranked store.
//
// Partitions are claimed through TTL leases so one live owner processes a
// partition at a time; a crashed owner's partitions are taken over once its
// leases expire. Event application is idempotent through the store's
// per-user version gate, so replays after a crash or cursor regression are
// harmless. Events that keep failing after retries with backoff are routed
// to a dead-letter log and the partition advances past them.
package projection
