package aio

import (
	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/pending"
	"awaitrt/internal/reactor"
)

// Idle ticks once per loop iteration while started.
type Idle struct {
	h     reactor.Idle
	ticks pending.Counter
}

// NewIdle creates an idle source, started when autostart is set.
func NewIdle(r reactor.Reactor, autostart bool) (*Idle, error) {
	i := &Idle{}
	i.h = r.NewIdle(i.ticks.Tick)
	if autostart {
		if err := i.h.Start(); err != nil {
			i.h.Close()
			return nil, err
		}
	}
	return i, nil
}

func (i *Idle) Start() error { return i.h.Start() }
func (i *Idle) Stop() error  { return i.h.Stop() }
func (i *Idle) Close()       { i.h.Close() }

// Pending returns the iterations not yet awaited.
func (i *Idle) Pending() int { return i.ticks.Pending() }

func (i *Idle) Ready() bool           { return i.ticks.Ready() }
func (i *Idle) Suspend(h coro.Handle) { i.ticks.Suspend(h) }
func (i *Idle) Detach(h coro.Handle)  { i.ticks.Detach(h) }

func (i *Idle) Resume() outcome.Void {
	i.ticks.Take()
	return outcome.Void{}
}
