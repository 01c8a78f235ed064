package datalayer

import "sync/atomic"

// Command is a named, ordered argument tuple appended to a Log.
// Commands are immutable once enqueued.
type Command struct {
	Name string
	Args []any

	// Seq is the 1-based append position stamped by the log's clock.
	Seq int64
}

// Arg returns the i-th argument, or nil when the command carries fewer.
func (c Command) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Clock is a monotonic logical clock stamping commands in append order.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
