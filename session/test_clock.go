package session

import (
	"sync"
	"time"
)

// TestClock is a manual Clock for tests. After advances the clock by the
// requested delay and fires immediately, so polling loops run without
// sleeping while observing consistent elapsed times.
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewTestClock returns a clock starting at start.
func NewTestClock(start time.Time) *TestClock {
	return &TestClock{now: start}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// Advance moves the clock forward by d.
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
