package projection

import (
	"math"
	"math/rand"
	"time"
)

type BackoffType string

const (
	BackoffExp       BackoffType = "exp"
	BackoffExpJitter BackoffType = "exp-jitter"
	BackoffFixed     BackoffType = "fixed"
	BackoffNone      BackoffType = "none"
)

// RetryPolicy controls per-event retry pacing before dead-lettering.
type RetryPolicy struct {
	Type        BackoffType
	Base        time.Duration
	Cap         time.Duration
	Factor      float64
	MaxAttempts uint32
}

// DefaultRetryPolicy is exponential, 200ms base, 30s cap, five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Type:        BackoffExp,
		Base:        200 * time.Millisecond,
		Cap:         30 * time.Second,
		Factor:      2.0,
		MaxAttempts: 5,
	}
}

// ComputeBackoff returns the delay before the given retry attempt
// (1-based: the delay after the first failure is attempt 1).
func ComputeBackoff(pol RetryPolicy, attempt uint32) time.Duration {
	switch pol.Type {
	case BackoffNone:
		return 0
	case BackoffFixed:
		if pol.Base <= 0 {
			return 0
		}
		if pol.Cap > 0 && pol.Base > pol.Cap {
			return pol.Cap
		}
		return pol.Base
	default: // exp, exp-jitter
		base := pol.Base
		if base <= 0 {
			base = 200 * time.Millisecond
		}
		factor := pol.Factor
		if factor <= 0 {
			factor = 2.0
		}
		d := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
		if pol.Cap > 0 && d > pol.Cap {
			d = pol.Cap
		}
		if pol.Type == BackoffExpJitter && d > 0 {
			d = time.Duration(rand.Int63n(int64(d)) + 1)
		}
		return d
	}
}
