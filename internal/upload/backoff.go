package upload

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes full-jitter exponential retry delays:
// Rand() * 2^attempt seconds, with attempt starting at 1 for the first retry.
//
// No ceiling is applied.
type Backoff struct {
	// Rand returns a value in [0, 1). Nil uses math/rand/v2.
	Rand func() float64
}

// NextDelay returns the delay before retry number attempt.
func (b Backoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	r := rand.Float64
	if b.Rand != nil {
		r = b.Rand
	}
	factor := r()
	if factor <= 0 || math.IsNaN(factor) {
		return 0
	}
	if factor >= 1 {
		factor = math.Nextafter(1, 0)
	}
	seconds := math.Ldexp(factor, attempt)
	if seconds >= math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper backed by a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
