package generic

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK - Source of "now" for every engine operation
// =============================================================================

// SecondsPerWeek is the accrual period of a weekly salary.
const SecondsPerWeek int64 = 7 * 24 * 60 * 60

// Clock provides the current time. Engine timestamps have whole-second
// resolution, matching the accrual math.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// ManualClock is a settable clock for tests and scenario replay.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start.UTC().Truncate(time.Second)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d).Truncate(time.Second)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// ElapsedSeconds returns max(0, to-from) in whole seconds.
func ElapsedSeconds(from, to time.Time) int64 {
	if !to.After(from) {
		return 0
	}
	return int64(to.Sub(from) / time.Second)
}

// EarlierOf returns the earlier of a and b.
func EarlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
