package engine

import "sync/atomic"

// Clock is a monotonic sequence counter. Every accepted operation is
// stamped with a strictly increasing seq, which gives the status store
// a stable listing order independent of wall-clock resolution.
//
// Safe for concurrent use; Submit may be called from many goroutines.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known sequence number.
// Used when an on-disk status store already holds stamped operations.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
