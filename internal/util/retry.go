// ABOUTME: Exponential backoff between retried model API calls
// ABOUTME: The first retry waits the configured retry delay, later ones double it
package util

import (
	"math/rand/v2"
	"time"
)

// MaxBackoff caps the nominal wait before any single retry
const MaxBackoff = 30 * time.Second

// Backoff schedules waits between attempts of a completion or embedding call
type Backoff struct {
	// Base is the nominal wait before the first retry
	Base time.Duration
	// Max caps the nominal wait; zero means MaxBackoff
	Max time.Duration
}

// nominal is the jitter-free wait before retry number attempt
func (b Backoff) nominal(attempt int) time.Duration {
	if attempt <= 0 || b.Base <= 0 {
		return 0
	}
	limit := b.Max
	if limit <= 0 {
		limit = MaxBackoff
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		if d >= limit {
			break
		}
		d *= 2
	}
	return min(d, limit)
}

// Delay returns the wait before retry number attempt, with up to 25%
// jitter either side of the nominal wait. Attempt 0 is the first try.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.nominal(attempt)
	half := int64(d) / 2
	if half <= 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(half)) - d/4
}

// Bounds returns the window Delay(attempt) always falls into
func (b Backoff) Bounds(attempt int) (lo, hi time.Duration) {
	d := b.nominal(attempt)
	return d - d/4, d + d/4
}

// Budget is the longest a caller can spend waiting across retries
func (b Backoff) Budget(retries int) time.Duration {
	var total time.Duration
	for attempt := 1; attempt <= retries; attempt++ {
		_, hi := b.Bounds(attempt)
		total += hi
	}
	return total
}
