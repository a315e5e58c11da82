package aio

import (
	"os"

	"awaitrt/internal/coro"
	"awaitrt/internal/pending"
	"awaitrt/internal/reactor"
)

// Signal is an awaitable signal watcher. Awaiting yields the signals in the order
// they were delivered.
type Signal struct {
	h     reactor.Signal
	ticks pending.Counter
	fired []os.Signal
}

// NewSignal creates a stopped watcher.
func NewSignal(r reactor.Reactor) *Signal {
	s := &Signal{}
	s.h = r.NewSignal(s.onSignal)
	return s
}

func (s *Signal) onSignal(sig os.Signal) {
	s.fired = append(s.fired, sig)
	s.ticks.Tick()
}

// Start watches sig.
func (s *Signal) Start(sig os.Signal) error { return s.h.Start(sig) }

func (s *Signal) Stop() error { return s.h.Stop() }

func (s *Signal) Close() { s.h.Close() }

// Pending returns the deliveries not yet awaited.
func (s *Signal) Pending() int { return s.ticks.Pending() }

func (s *Signal) Ready() bool           { return s.ticks.Ready() }
func (s *Signal) Suspend(h coro.Handle) { s.ticks.Suspend(h) }
func (s *Signal) Detach(h coro.Handle)  { s.ticks.Detach(h) }

func (s *Signal) Resume() os.Signal {
	if !s.ticks.Take() || len(s.fired) == 0 {
		return nil
	}
	sig := s.fired[0]
	s.fired[0] = nil
	s.fired = s.fired[1:]
	return sig
}
