package rankstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Entry is one ranked row as rendered into a snapshot.
type Entry struct {
	UserID int64 `json:"userId"`
	Score  int64 `json:"score"`
	Rank   int64 `json:"rank"`
}

// Snapshot is a rendered, cached view of the highest-N entries.
type Snapshot struct {
	Entries     []Entry   `json:"topN"`
	GeneratedAt time.Time `json:"generatedAt"`
	Digest      string    `json:"digest"`
}

// MemberIDs returns the ordered member identities of the snapshot. Order
// matters: a swap between two members is a structural change even when the
// set is unchanged.
func (s *Snapshot) MemberIDs() []int64 {
	ids := make([]int64, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.UserID
	}
	return ids
}

// computeDigest hashes the deterministic serialization of the entries.
// Field order and the tie-break rule are fixed, so equal boards produce
// equal digests in every process.
func computeDigest(entries []Entry) string {
	h := sha256.New()
	var buf []byte
	for _, e := range entries {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, e.Rank, 10)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, e.UserID, 10)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, e.Score, 10)
		buf = append(buf, '\n')
		_, _ = h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
