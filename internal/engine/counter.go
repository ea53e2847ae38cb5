package engine

import "sync/atomic"

// ByteCounter is a monotonic transfer counter shared by every concurrent
// upload of a run, and optionally across runs for session-wide bandwidth
// reporting. All methods are safe for concurrent use.
type ByteCounter struct {
	n atomic.Int64
}

// NewByteCounter returns a counter starting at zero.
func NewByteCounter() *ByteCounter {
	return &ByteCounter{}
}

// Add records n more transferred bytes. Non-positive values are ignored.
func (c *ByteCounter) Add(n int64) {
	if n > 0 {
		c.n.Add(n)
	}
}

// Total returns the bytes counted so far.
func (c *ByteCounter) Total() int64 {
	return c.n.Load()
}

// Reset zeroes the counter.
func (c *ByteCounter) Reset() {
	c.n.Store(0)
}

// DeltaFunc returns a callback that converts a host client's cumulative
// sent-byte reports into counter increments, so overlapping uploads never
// double-count. Each upload needs its own callback; the returned function is
// not safe for concurrent use.
func (c *ByteCounter) DeltaFunc() func(sent int64) {
	var last int64
	return func(sent int64) {
		if sent > last {
			c.n.Add(sent - last)
			last = sent
		}
	}
}
