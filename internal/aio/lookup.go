package aio

import (
	"net/netip"

	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/pending"
	"awaitrt/internal/reactor"
)

// Addrs is the result of a lookup.
type Addrs = outcome.Outcome[[]netip.AddrPort]

// Lookup is an in-flight name resolution.
type Lookup struct {
	cell *pending.Cell[Addrs]
}

// Resolve starts resolving host and service (a port number or name; empty means
// port 0).
func Resolve(r reactor.Reactor, host, service string) *Lookup {
	cell := pending.New[Addrs](envOf(r), "resolve")
	req := r.Resolve(host, service, func(addrs []netip.AddrPort, err error) {
		cell.Complete(outcome.From(addrs, err))
	})
	cell.Arm(req.Cancel)
	return &Lookup{cell: cell}
}

// Close gives the lookup up. A lookup still in flight is cancelled, or released
// by its completion when the reactor can no longer cancel it.
func (l *Lookup) Close() { l.cell.Abandon() }

func (l *Lookup) Ready() bool           { return l.cell.Ready() }
func (l *Lookup) Suspend(h coro.Handle) { l.cell.Suspend(h) }
func (l *Lookup) Resume() Addrs         { return l.cell.Resume() }
func (l *Lookup) Detach(h coro.Handle)  { l.cell.Detach(h) }
