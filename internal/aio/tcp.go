package aio

import (
	"fmt"
	"net"
	"net/netip"

	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/pending"
	"awaitrt/internal/reactor"
)

// TCP is a stream socket handle: unbound, bound and listening, or connected.
type TCP struct {
	r        reactor.Reactor
	bind     string
	stream   reactor.Stream
	listener reactor.Listener
	reader   *Reader
	closed   bool
}

// NewTCP creates an unconnected handle.
func NewTCP(r reactor.Reactor) *TCP { return &TCP{r: r} }

// Bind records the local address to listen on.
func (t *TCP) Bind(addr string) error {
	if t.closed {
		return ErrClosed
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("bind %q: %w", addr, err)
	}
	t.bind = addr
	return nil
}

// Listen starts listening on the bound address.
func (t *TCP) Listen(backlog int) (*Listener, error) {
	switch {
	case t.closed:
		return nil, ErrClosed
	case t.bind == "":
		return nil, ErrNotBound
	case t.listener != nil || t.stream != nil:
		return nil, ErrBusy
	}
	l := &Listener{tcp: t}
	ln, err := t.r.Listen("tcp", t.bind, backlog, l.onReady)
	if err != nil {
		return nil, err
	}
	t.listener = ln
	return l, nil
}

// Accept moves one ready connection into client.
func (t *TCP) Accept(client *TCP) error {
	if t.listener == nil {
		return ErrNotListening
	}
	if client.closed {
		return ErrClosed
	}
	if client.stream != nil || client.listener != nil {
		return ErrBusy
	}
	s, err := t.listener.Accept()
	if err != nil {
		return err
	}
	client.stream = s
	return nil
}

// Connect dials addr. The connection cannot be cancelled once started.
func (t *TCP) Connect(addr string) *Connector {
	c := &Connector{tcp: t, status: StatusPending}
	c.cell = pending.New[dialResult](envOf(t.r), "connect")
	c.cell.OnRelease(func(late dialResult) {
		if late.stream != nil {
			_ = late.stream.Close() //nolint:errcheck
		}
	})

	switch {
	case t.closed:
		c.settle(ErrClosed)
		return c
	case t.stream != nil || t.listener != nil:
		c.settle(ErrBusy)
		return c
	}

	cell := c.cell
	req, err := t.r.Dial("tcp", addr, func(s reactor.Stream, err error) {
		if err == nil && t.closed {
			_ = s.Close() //nolint:errcheck
			s, err = nil, ErrClosed
		}
		if err == nil && cell.State() == pending.Armed {
			t.stream, s = s, nil
		}
		cell.Complete(dialResult{stream: s, err: err})
	})
	if err != nil {
		c.settle(err)
		return c
	}
	cell.Arm(req.Cancel)
	return c
}

// ConnectTo dials the first address of a lookup result, or fails with its error.
func (t *TCP) ConnectTo(addrs outcome.Outcome[[]netip.AddrPort]) *Connector {
	list, err := addrs.Get()
	if err == nil && len(list) == 0 {
		err = reactor.ErrNoAddress
	}
	if err != nil {
		c := &Connector{tcp: t, cell: pending.New[dialResult](envOf(t.r), "connect")}
		c.settle(outcome.Cause(err))
		return c
	}
	return t.Connect(list[0].String())
}

// Read returns the handle's reader. The first call starts reading.
func (t *TCP) Read() *Reader {
	if t.reader == nil {
		t.reader = &Reader{tcp: t}
	}
	return t.reader
}

// Write starts writing a copy of b.
func (t *TCP) Write(b []byte) *Writer {
	w := &Writer{tcp: t}
	w.start(b)
	return w
}

// Connected reports whether the handle carries a stream.
func (t *TCP) Connected() bool { return t.stream != nil && !t.closed }

func (t *TCP) LocalAddr() net.Addr {
	switch {
	case t.stream != nil:
		return t.stream.LocalAddr()
	case t.listener != nil:
		return t.listener.Addr()
	}
	return nil
}

func (t *TCP) RemoteAddr() net.Addr {
	if t.stream == nil {
		return nil
	}
	return t.stream.RemoteAddr()
}

// Close stops reading and closes the stream or listener. A task awaiting the
// reader resumes with ErrClosed. Writes in flight still complete, with an error.
func (t *TCP) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.reader != nil {
		t.reader.shut()
	}
	var err error
	if t.stream != nil {
		err = t.stream.Close()
	}
	if t.listener != nil {
		if lerr := t.listener.Close(); err == nil {
			err = lerr
		}
	}
	return err
}

type dialResult struct {
	stream reactor.Stream
	err    error
}

// Connector is an in-flight connect. Awaiting it yields the connect status.
type Connector struct {
	tcp    *TCP
	cell   *pending.Cell[dialResult]
	status int
}

func (c *Connector) settle(err error) {
	c.status = outcome.Status(err)
	c.cell.Settle(dialResult{err: err})
}

// Status is StatusPending until the result was awaited, 0 on success and a
// negative code on failure.
func (c *Connector) Status() int { return c.status }

// Close gives the connect up. A connection that still completes is closed.
func (c *Connector) Close() { c.cell.Abandon() }

func (c *Connector) Ready() bool           { return c.cell.Ready() }
func (c *Connector) Suspend(h coro.Handle) { c.cell.Suspend(h) }
func (c *Connector) Detach(h coro.Handle)  { c.cell.Detach(h) }

func (c *Connector) Resume() outcome.Outcome[outcome.Void] {
	res := c.cell.Resume()
	c.status = outcome.Status(res.err)
	return outcome.From(outcome.Void{}, res.err)
}

// Listener is the accept-ready source of a listening handle. Awaiting it yields
// nil when a connection can be accepted, or the accept error.
type Listener struct {
	tcp   *TCP
	ticks pending.Counter
	errs  []error
}

func (l *Listener) onReady(err error) {
	l.errs = append(l.errs, err)
	l.ticks.Tick()
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr { return l.tcp.LocalAddr() }

// Pending returns the ready events not yet awaited.
func (l *Listener) Pending() int { return l.ticks.Pending() }

// Close closes the listening handle.
func (l *Listener) Close() error { return l.tcp.Close() }

func (l *Listener) Ready() bool           { return l.ticks.Ready() }
func (l *Listener) Suspend(h coro.Handle) { l.ticks.Suspend(h) }
func (l *Listener) Detach(h coro.Handle)  { l.ticks.Detach(h) }

func (l *Listener) Resume() error {
	if !l.ticks.Take() || len(l.errs) == 0 {
		return nil
	}
	err := l.errs[0]
	l.errs[0] = nil
	l.errs = l.errs[1:]
	return err
}
