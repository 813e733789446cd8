// Package rankstore holds the derived ranking state: an order-statistics
// skiplist keyed by (score desc, userID asc), a per-user version gate that
// makes event application idempotent, and a cached rendered top-N snapshot
// with a content digest.
//
// Everything in here is rebuildable from the durable ledger; the store
// itself persists nothing except an optional best-effort warm-start
// snapshot used to shorten cold boots.
//
// Writers are projection workers (disjoint user sets per partition);
// readers are unlimited. An RWMutex guards the structure: TopN serves the
// cached snapshot without touching the skiplist, RankOf always queries the
// live structure.
package rankstore
