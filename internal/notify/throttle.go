package notify

import (
	"sync"
	"time"
)

// Throttle decides whether a board change is worth a notification. A change
// is emitted when the digest differs from the last emitted one AND either
// the minimum interval has elapsed or the ordered membership of the board
// changed. Membership order matters: two members swapping places is a
// structural change even though the set is the same.
//
// One Throttle guards one channel and is shared by all projection
// partitions in the process.
type Throttle struct {
	mu          sync.Mutex
	interval    time.Duration
	lastDigest  string
	lastAt      time.Time
	lastMembers []int64
	now         func() time.Time
}

// NewThrottle builds a throttle with the given minimum emit interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval, now: time.Now}
}

// Decide reports whether a notification should be emitted for the given
// board state and, when it should, records the emission.
func (t *Throttle) Decide(digest string, members []int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.shouldLocked(digest, members) {
		return false
	}
	t.recordLocked(digest, members)
	return true
}

// Emit runs the decision and the emission as one unit: the lock is held
// across emit so at most one notification goes out per board state, and a
// failed emit leaves the throttle unmarked for the retry.
func (t *Throttle) Emit(digest string, members []int64, emit func() error) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.shouldLocked(digest, members) {
		return false, nil
	}
	if err := emit(); err != nil {
		return false, err
	}
	t.recordLocked(digest, members)
	return true, nil
}

func (t *Throttle) shouldLocked(digest string, members []int64) bool {
	if digest == t.lastDigest {
		return false
	}
	if t.lastAt.IsZero() || t.now().Sub(t.lastAt) >= t.interval {
		return true
	}
	return !membersEqual(members, t.lastMembers)
}

func (t *Throttle) recordLocked(digest string, members []int64) {
	t.lastDigest = digest
	t.lastAt = t.now()
	t.lastMembers = append([]int64(nil), members...)
}

func membersEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
