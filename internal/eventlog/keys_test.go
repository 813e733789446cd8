package eventlog

import (
	"bytes"
	"testing"
)

func TestEntryKeysSortBySeq(t *testing.T) {
	k1 := KeyLogEntry("scores.raw", 3, 1)
	k2 := KeyLogEntry("scores.raw", 3, 2)
	k300 := KeyLogEntry("scores.raw", 3, 300)
	if !(bytes.Compare(k1, k2) < 0 && bytes.Compare(k2, k300) < 0) {
		t.Fatalf("entry keys not ordered by seq")
	}
}

func TestPartitionForStableAndBounded(t *testing.T) {
	const parts = 16
	for _, uid := range []int64{0, 1, 42, -7, 1 << 40} {
		p := PartitionFor(uid, parts)
		if p >= parts {
			t.Fatalf("partition %d out of range for user %d", p, uid)
		}
		if p != PartitionFor(uid, parts) {
			t.Fatalf("partition not stable for user %d", uid)
		}
	}
	if PartitionFor(99, 1) != 0 {
		t.Fatalf("single partition must map to 0")
	}
}
