package rankstore

import (
	"math/rand"
	"sort"
	"testing"
)

func TestSkiplistOrdering(t *testing.T) {
	sl := newSkiplist(1)
	sl.insert(1, 100)
	sl.insert(2, 300)
	sl.insert(3, 200)

	got := sl.firstN(10)
	want := []int64{2, 3, 1}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.UserID != want[i] {
			t.Fatalf("rank %d: expected user %d, got %d", i+1, want[i], e.UserID)
		}
		if e.Rank != int64(i+1) {
			t.Fatalf("rank %d: expected rank %d, got %d", i+1, i+1, e.Rank)
		}
	}
}

func TestSkiplistTieBreakByUserID(t *testing.T) {
	sl := newSkiplist(1)
	sl.insert(30, 500)
	sl.insert(10, 500)
	sl.insert(20, 500)

	got := sl.firstN(3)
	want := []int64{10, 20, 30}
	for i, e := range got {
		if e.UserID != want[i] {
			t.Fatalf("tie order wrong at %d: expected %d, got %d", i, want[i], e.UserID)
		}
	}
}

func TestSkiplistRank(t *testing.T) {
	sl := newSkiplist(1)
	for i := int64(1); i <= 5; i++ {
		sl.insert(i, i*10)
	}
	// user 5 has the highest score
	if r := sl.rank(5, 50); r != 1 {
		t.Fatalf("expected rank 1, got %d", r)
	}
	if r := sl.rank(1, 10); r != 5 {
		t.Fatalf("expected rank 5, got %d", r)
	}
	if r := sl.rank(1, 999); r != 0 {
		t.Fatalf("expected 0 for absent entry, got %d", r)
	}
	if r := sl.rank(99, 10); r != 0 {
		t.Fatalf("expected 0 for unknown user, got %d", r)
	}
}

func TestSkiplistDelete(t *testing.T) {
	sl := newSkiplist(1)
	sl.insert(1, 100)
	sl.insert(2, 200)
	sl.insert(3, 300)

	if !sl.delete(2, 200) {
		t.Fatal("expected delete to succeed")
	}
	if sl.delete(2, 200) {
		t.Fatal("expected second delete to fail")
	}
	if sl.length != 2 {
		t.Fatalf("expected length 2, got %d", sl.length)
	}
	if r := sl.rank(1, 100); r != 2 {
		t.Fatalf("expected rank 2 after delete, got %d", r)
	}
}

func TestSkiplistRandomizedAgainstSort(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	sl := newSkiplist(7)

	type pair struct{ user, score int64 }
	var ref []pair
	for i := 0; i < 500; i++ {
		p := pair{user: int64(i), score: int64(rnd.Intn(100))}
		ref = append(ref, p)
		sl.insert(p.user, p.score)
	}
	// delete a third of them
	for i := 0; i < len(ref); i += 3 {
		if !sl.delete(ref[i].user, ref[i].score) {
			t.Fatalf("delete of user %d failed", ref[i].user)
		}
	}
	var kept []pair
	for i, p := range ref {
		if i%3 != 0 {
			kept = append(kept, p)
		}
	}
	sort.Slice(kept, func(a, b int) bool {
		return ranksBefore(kept[a].score, kept[a].user, kept[b].score, kept[b].user)
	})

	if sl.length != len(kept) {
		t.Fatalf("expected length %d, got %d", len(kept), sl.length)
	}
	got := sl.firstN(len(kept))
	for i, e := range got {
		if e.UserID != kept[i].user || e.Score != kept[i].score {
			t.Fatalf("position %d: expected (%d,%d), got (%d,%d)",
				i, kept[i].user, kept[i].score, e.UserID, e.Score)
		}
	}
	for i, p := range kept {
		if r := sl.rank(p.user, p.score); r != i+1 {
			t.Fatalf("user %d: expected rank %d, got %d", p.user, i+1, r)
		}
	}
}
