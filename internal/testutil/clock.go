package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a FakeClock.
var Epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// FakeClock is a wall clock that only moves when told to.
//
// Unlike time.Now, FakeClock makes timestamps written into briefs
// (confirmedAt, lockedAt, review timestamps) reproducible in golden files.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock reading start. A zero start uses Epoch.
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FakeClock{now: start.UTC()}
}

// Now returns the current fake time. It has the signature of time.Now so
// it can be passed wherever a clock function is expected.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
