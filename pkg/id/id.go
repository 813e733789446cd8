package id

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ID is a 128-bit, lexicographically sortable identifier.
type ID [16]byte

// Bytes returns the raw 16-byte representation.
func (i ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, i[:])
	return b
}

// String returns the lowercase hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// TimeMs returns the embedded millisecond timestamp.
func (i ID) TimeMs() int64 { return int64(binary.BigEndian.Uint64(i[0:8])) }

// Compare returns -1, 0, or 1 by byte order.
func (i ID) Compare(other ID) int { return bytes.Compare(i[:], other[:]) }

// FromBytes parses a raw 16-byte ID.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != 16 {
		return id, errors.New("id: need exactly 16 bytes")
	}
	copy(id[:], b)
	return id, nil
}

// Generator produces monotonically increasing IDs per process.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator creates a Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs is swappable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID, never smaller than a previously returned one even
// if the wall clock steps backwards.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	if ms == g.lastMs {
		g.seq++
	} else {
		g.seq = 0
		g.lastMs = ms
	}

	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	binary.BigEndian.PutUint64(id[8:16], g.seq)
	return id
}
