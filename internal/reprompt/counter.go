// Package reprompt implements the counter that lets a tool request extra
// model turns without new user input.
package reprompt

import "sync"

// idle is the resting value. Zero and below mean nothing is pending.
const idle = -1

// Counter schedules automatic follow-up turns for a session.
//
// The first setter wins: TrySet only takes effect when nothing is pending,
// unless clear is true. Observing the counter via ConsumeIfPending decrements
// it, so a count of N yields exactly N automatic turns.
type Counter struct {
	mu    sync.Mutex
	count int
}

// New returns an idle counter.
func New() *Counter {
	return &Counter{count: idle}
}

// Restore returns a counter holding count, as produced by Pending.
func Restore(count int) *Counter {
	if count <= 0 {
		count = idle
	}
	return &Counter{count: count}
}

// TrySet schedules n automatic turns. It is a no-op while a count is pending
// unless clear is set. Returns whether the value was written.
func (c *Counter) TrySet(n int, clear bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count > 0 && !clear {
		return false
	}
	c.count = n
	return true
}

// Clear drops any pending turns.
func (c *Counter) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = idle
}

// ConsumeIfPending reports whether an automatic turn should run now, and
// consumes one if so.
func (c *Counter) ConsumeIfPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count > 0 {
		c.count--
		return true
	}
	c.count = idle
	return false
}

// Pending returns the number of automatic turns still scheduled.
func (c *Counter) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count < 0 {
		return 0
	}
	return c.count
}
