package notify

import (
	"testing"
	"time"
)

func TestThrottleUnchangedDigest(t *testing.T) {
	th := NewThrottle(time.Second)
	if !th.Decide("d1", []int64{1, 2}) {
		t.Fatal("first change should emit")
	}
	if th.Decide("d1", []int64{1, 2}) {
		t.Fatal("unchanged digest must never emit")
	}
}

func TestThrottleBurstCollapses(t *testing.T) {
	th := NewThrottle(time.Minute)
	now := time.Unix(1000, 0)
	th.now = func() time.Time { return now }

	if !th.Decide("d1", []int64{1, 2, 3}) {
		t.Fatal("first change should emit")
	}
	// rapid score changes within the window, same membership: suppressed
	emits := 0
	for _, d := range []string{"d2", "d3", "d4"} {
		if th.Decide(d, []int64{1, 2, 3}) {
			emits++
		}
	}
	if emits != 0 {
		t.Fatalf("expected burst suppressed, got %d emits", emits)
	}
	// window elapses: next change goes out
	now = now.Add(2 * time.Minute)
	if !th.Decide("d5", []int64{1, 2, 3}) {
		t.Fatal("expected emit after interval elapsed")
	}
}

func TestThrottleMembershipChangeBypassesInterval(t *testing.T) {
	th := NewThrottle(time.Minute)
	now := time.Unix(1000, 0)
	th.now = func() time.Time { return now }

	th.Decide("d1", []int64{1, 2, 3})
	// new member within the window: immediate
	if !th.Decide("d2", []int64{1, 2, 4}) {
		t.Fatal("membership change must emit immediately")
	}
	// two members swapping places is structural too
	if !th.Decide("d3", []int64{2, 1, 4}) {
		t.Fatal("member reorder must emit immediately")
	}
	// same order again, new digest, window not elapsed: suppressed
	if th.Decide("d4", []int64{2, 1, 4}) {
		t.Fatal("score-only change within window must be suppressed")
	}
}
