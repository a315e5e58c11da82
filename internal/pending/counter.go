package pending

import (
	"math"

	"awaitrt/internal/coro"
)

// Counter is the readiness model of repeating sources. Each tick adds one pending
// event and wakes a waiting task; each take removes one. Ticks that arrive while
// nobody waits accumulate, so a consumer that fell behind resumes at once.
type Counter struct {
	pending int
	waiter  coro.Handle
}

// Tick records one event and resumes the waiter, if any.
func (c *Counter) Tick() {
	if c.pending < math.MaxInt {
		c.pending++
	}
	if w := c.waiter; w != nil {
		c.waiter = nil
		w.Resume()
	}
}

// Take consumes one pending event. It reports false when none was pending.
func (c *Counter) Take() bool {
	if c.pending == 0 {
		return false
	}
	c.pending--
	return true
}

// Pending returns the number of events not yet taken.
func (c *Counter) Pending() int { return c.pending }

// Reset drops all pending events.
func (c *Counter) Reset() { c.pending = 0 }

// Waiting reports whether a task is suspended on the counter.
func (c *Counter) Waiting() bool { return c.waiter != nil }

// Ready reports whether an event is pending.
func (c *Counter) Ready() bool { return c.pending > 0 }

// Suspend records h as the task to resume on the next tick.
func (c *Counter) Suspend(h coro.Handle) { c.waiter = h }

// Detach forgets h.
func (c *Counter) Detach(h coro.Handle) {
	if c.waiter == h {
		c.waiter = nil
	}
}
