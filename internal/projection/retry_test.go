package projection

import (
	"testing"
	"time"
)

func TestComputeBackoffExp(t *testing.T) {
	pol := DefaultRetryPolicy()
	if d := ComputeBackoff(pol, 1); d != 200*time.Millisecond {
		t.Fatalf("attempt 1: got %v", d)
	}
	if d := ComputeBackoff(pol, 2); d != 400*time.Millisecond {
		t.Fatalf("attempt 2: got %v", d)
	}
	if d := ComputeBackoff(pol, 3); d != 800*time.Millisecond {
		t.Fatalf("attempt 3: got %v", d)
	}
	// deep attempts hit the cap
	if d := ComputeBackoff(pol, 20); d != pol.Cap {
		t.Fatalf("attempt 20: got %v want cap %v", d, pol.Cap)
	}
}

func TestComputeBackoffFixedAndNone(t *testing.T) {
	fixed := RetryPolicy{Type: BackoffFixed, Base: time.Second, Cap: 500 * time.Millisecond}
	if d := ComputeBackoff(fixed, 3); d != 500*time.Millisecond {
		t.Fatalf("fixed above cap: got %v", d)
	}
	none := RetryPolicy{Type: BackoffNone, Base: time.Second}
	if d := ComputeBackoff(none, 1); d != 0 {
		t.Fatalf("none: got %v", d)
	}
}

func TestComputeBackoffJitterBounded(t *testing.T) {
	pol := RetryPolicy{Type: BackoffExpJitter, Base: 100 * time.Millisecond, Cap: time.Second, Factor: 2}
	for i := 0; i < 50; i++ {
		d := ComputeBackoff(pol, 3)
		if d <= 0 || d > 400*time.Millisecond {
			t.Fatalf("jitter out of bounds: %v", d)
		}
	}
}
