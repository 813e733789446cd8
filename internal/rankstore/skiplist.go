package rankstore

import (
	"math/rand"
)

// Order-statistics skiplist over (score desc, userID asc). Each forward
// pointer carries the span of entries it skips, so 1-based rank lookups,
// inserts, and deletes are all O(log n). This is the structure redis uses
// for sorted sets.

const (
	skiplistMaxLevel = 32
	skiplistP        = 0.25
)

type skiplistLevel struct {
	forward *slNode
	span    int
}

type slNode struct {
	userID int64
	score  int64
	levels []skiplistLevel
}

type skiplist struct {
	head   *slNode
	length int
	level  int
	rnd    *rand.Rand
}

func newSkiplist(seed int64) *skiplist {
	return &skiplist{
		head:  &slNode{levels: make([]skiplistLevel, skiplistMaxLevel)},
		level: 1,
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

// ranksBefore fixes the global ordering: higher score first, ties broken by
// ascending userID so ranks are reproducible across processes.
func ranksBefore(aScore, aUser, bScore, bUser int64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aUser < bUser
}

func (sl *skiplist) randomLevel() int {
	lvl := 1
	for lvl < skiplistMaxLevel && sl.rnd.Float64() < skiplistP {
		lvl++
	}
	return lvl
}

// insert adds an entry. The caller guarantees (userID, score) is not
// already present.
func (sl *skiplist) insert(userID, score int64) {
	var update [skiplistMaxLevel]*slNode
	var rank [skiplistMaxLevel]int

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		if i == sl.level-1 {
			rank[i] = 0
		} else {
			rank[i] = rank[i+1]
		}
		for x.levels[i].forward != nil &&
			ranksBefore(x.levels[i].forward.score, x.levels[i].forward.userID, score, userID) {
			rank[i] += x.levels[i].span
			x = x.levels[i].forward
		}
		update[i] = x
	}

	lvl := sl.randomLevel()
	if lvl > sl.level {
		for i := sl.level; i < lvl; i++ {
			rank[i] = 0
			update[i] = sl.head
			update[i].levels[i].span = sl.length
		}
		sl.level = lvl
	}

	n := &slNode{userID: userID, score: score, levels: make([]skiplistLevel, lvl)}
	for i := 0; i < lvl; i++ {
		n.levels[i].forward = update[i].levels[i].forward
		update[i].levels[i].forward = n
		n.levels[i].span = update[i].levels[i].span - (rank[0] - rank[i])
		update[i].levels[i].span = (rank[0] - rank[i]) + 1
	}
	for i := lvl; i < sl.level; i++ {
		update[i].levels[i].span++
	}
	sl.length++
}

// delete removes an entry by exact (userID, score). Returns false when the
// entry is absent.
func (sl *skiplist) delete(userID, score int64) bool {
	var update [skiplistMaxLevel]*slNode

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil &&
			ranksBefore(x.levels[i].forward.score, x.levels[i].forward.userID, score, userID) {
			x = x.levels[i].forward
		}
		update[i] = x
	}
	x = x.levels[0].forward
	if x == nil || x.userID != userID || x.score != score {
		return false
	}

	for i := 0; i < sl.level; i++ {
		if update[i].levels[i].forward == x {
			update[i].levels[i].span += x.levels[i].span - 1
			update[i].levels[i].forward = x.levels[i].forward
		} else {
			update[i].levels[i].span--
		}
	}
	for sl.level > 1 && sl.head.levels[sl.level-1].forward == nil {
		sl.head.levels[sl.level-1].span = 0
		sl.level--
	}
	sl.length--
	return true
}

// rank returns the 1-based rank of an exact (userID, score) entry, or 0
// when absent.
func (sl *skiplist) rank(userID, score int64) int {
	x := sl.head
	traversed := 0
	for i := sl.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil &&
			ranksBefore(x.levels[i].forward.score, x.levels[i].forward.userID, score, userID) {
			traversed += x.levels[i].span
			x = x.levels[i].forward
		}
	}
	next := x.levels[0].forward
	if next != nil && next.userID == userID && next.score == score {
		return traversed + 1
	}
	return 0
}

// firstN walks level 0 and returns up to n leading entries with ranks filled.
func (sl *skiplist) firstN(n int) []Entry {
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, min(n, sl.length))
	x := sl.head.levels[0].forward
	for x != nil && len(out) < n {
		out = append(out, Entry{UserID: x.userID, Score: x.score, Rank: int64(len(out) + 1)})
		x = x.levels[0].forward
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
