// Package id generates lexicographically sortable 128-bit identifiers used
// for event and delivery IDs. An ID is 16 bytes big-endian:
// [8 bytes ms timestamp][8 bytes per-process sequence], so byte order equals
// generation order within one process.
package id
