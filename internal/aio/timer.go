package aio

import (
	"time"

	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/pending"
	"awaitrt/internal/reactor"
)

// Timer is an awaitable reactor timer. Each expiry adds one tick; each await
// consumes one.
type Timer struct {
	h     reactor.Timer
	ticks pending.Counter
}

// NewTimer creates a stopped timer.
func NewTimer(r reactor.Reactor) *Timer {
	t := &Timer{}
	t.h = r.NewTimer(t.ticks.Tick)
	return t
}

// Start arms the timer for timeout, then every repeat when repeat > 0.
func (t *Timer) Start(timeout, repeat time.Duration) error { return t.h.Start(timeout, repeat) }

// Again restarts a repeating timer from now.
func (t *Timer) Again() error { return t.h.Again() }

func (t *Timer) SetRepeat(d time.Duration) { t.h.SetRepeat(d) }
func (t *Timer) Repeat() time.Duration     { return t.h.Repeat() }
func (t *Timer) Active() bool              { return t.h.Active() }

// Stop disarms the timer. Ticks already counted stay pending.
func (t *Timer) Stop() error { return t.h.Stop() }

// Close disarms and releases the timer.
func (t *Timer) Close() { t.h.Close() }

// Pending returns the ticks not yet awaited.
func (t *Timer) Pending() int { return t.ticks.Pending() }

func (t *Timer) Ready() bool           { return t.ticks.Ready() }
func (t *Timer) Suspend(h coro.Handle) { t.ticks.Suspend(h) }
func (t *Timer) Detach(h coro.Handle)  { t.ticks.Detach(h) }

func (t *Timer) Resume() outcome.Void {
	t.ticks.Take()
	return outcome.Void{}
}

// Sleep arms a one-shot timer for d and waits for it.
func Sleep(co *coro.Co, r reactor.Reactor, d time.Duration) error {
	t := NewTimer(r)
	defer t.Close()
	if err := t.Start(d, 0); err != nil {
		return err
	}
	coro.Await(co, t)
	return nil
}
