package engine

import "sync/atomic"

// Clock stamps framed lines with sequence numbers.
//
// The first line of a session is seq 1. Sequence numbers are never reused,
// which lets logs, errors and transcripts refer to a line unambiguously.
// Clock is safe for concurrent use, though only the Run goroutine advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose first Next returns start+1.
// WithSeqStart uses it to continue numbering from a stored transcript.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
