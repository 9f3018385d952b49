package docstore

import (
	"sync"
	"time"
)

// Clock hands out store timestamps. Values are truncated to milliseconds
// (the precision BSON dates keep) and strictly increase across calls, so
// two writes from one store never share a timestamp.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock returns a Clock reading the wall clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockFunc returns a Clock reading now. Used by tests to pin time.
func NewClockFunc(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next returns the next timestamp.
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}
