package util

import (
	"sync"
	"time"
)

// Clock supplies the current time in UTC. Stores and token issuers take a
// Clock so tests can pin or advance time.
type Clock interface {
	NowUtc() time.Time
}

type systemClock struct{}

func (systemClock) NowUtc() time.Time { return time.Now().UTC() }

// System is the wall clock.
var System Clock = systemClock{}

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock stopped at the current wall time.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Now().UTC()}
}

func (c *ManualClock) NowUtc() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
