package review

import "sync/atomic"

// EditCounter is the monotonic count of local mutations in a session.
//
// A save records Current() when it starts; if the counter has moved by the
// time the response arrives, the response is stale for content.
//
// Thread-safety: EditCounter is safe for concurrent use (atomic operations).
type EditCounter struct {
	n atomic.Int64
}

// Next increments the counter and returns the new value.
func (c *EditCounter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the counter without incrementing.
func (c *EditCounter) Current() int64 {
	return c.n.Load()
}
