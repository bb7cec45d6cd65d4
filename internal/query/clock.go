package query

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock used to order fetches and
// invalidations of cache entries.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// NowFunc supplies wall-clock time for staleness decisions.
type NowFunc func() time.Time
