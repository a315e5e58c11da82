package reactor

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/eapache/queue"
)

// ErrNetwork is returned for networks the loop cannot dial or listen on.
var ErrNetwork = errors.New("reactor: unsupported network")

const acceptBackoff = 5 * time.Millisecond

func checkNetwork(network, address string) error {
	switch network {
	case "tcp", "tcp4", "tcp6":
		if _, _, err := net.SplitHostPort(address); err != nil {
			return err
		}
		return nil
	case "unix":
		if address == "" {
			return fmt.Errorf("unix: empty path: %w", ErrNetwork)
		}
		return nil
	default:
		return fmt.Errorf("%q: %w", network, ErrNetwork)
	}
}

// Dial connects on a helper goroutine. A connection that completes after the loop
// closed is closed again.
func (l *Loop) Dial(network, address string, cb func(Stream, error)) (Request, error) {
	if l.isClosed() {
		return nil, ErrClosed
	}
	if err := checkNetwork(network, address); err != nil {
		return nil, err
	}
	req, ctx := newRequest(l.ctx)
	l.active++
	go func() {
		conn, err := l.dialer.DialContext(ctx, network, address)
		l.complete(req,
			func() {
				if err != nil {
					cb(nil, err)
					return
				}
				cb(l.newStream(conn), nil)
			},
			func() {
				if conn != nil {
					_ = conn.Close() //nolint:errcheck
				}
			})
	}()
	return noCancel{}, nil
}

type listener struct {
	loop   *Loop
	ln     net.Listener
	cb     func(error)
	slots  chan struct{}
	quit   chan struct{}
	ready  *queue.Queue
	closed bool
}

// Listen binds address and accepts on a helper goroutine. At most backlog
// accepted connections wait for Accept; beyond that the kernel queue holds them.
func (l *Loop) Listen(network, address string, backlog int, cb func(error)) (Listener, error) {
	if l.isClosed() {
		return nil, ErrClosed
	}
	if err := checkNetwork(network, address); err != nil {
		return nil, err
	}
	if backlog <= 0 {
		backlog = l.cfg.Backlog
	}
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	lh := &listener{
		loop:  l,
		ln:    ln,
		cb:    cb,
		slots: make(chan struct{}, backlog),
		quit:  make(chan struct{}),
		ready: queue.New(),
	}
	l.track(lh)
	l.active++
	go lh.acceptLoop()
	return lh, nil
}

func (lh *listener) acceptLoop() {
	for {
		select {
		case lh.slots <- struct{}{}:
		case <-lh.quit:
			return
		}
		conn, err := lh.ln.Accept()
		if err != nil {
			<-lh.slots
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if !lh.loop.post(func() {
				if !lh.closed {
					lh.cb(err)
				}
			}) {
				return
			}
			select {
			case <-time.After(acceptBackoff):
			case <-lh.quit:
				return
			}
			continue
		}
		if !lh.loop.post(func() { lh.announce(conn) }) {
			_ = conn.Close() //nolint:errcheck
			return
		}
	}
}

func (lh *listener) announce(conn net.Conn) {
	if lh.closed {
		_ = conn.Close() //nolint:errcheck
		return
	}
	lh.ready.Add(conn)
	lh.cb(nil)
}

func (lh *listener) Accept() (Stream, error) {
	if lh.closed {
		return nil, ErrClosed
	}
	if lh.ready.Length() == 0 {
		return nil, ErrWouldBlock
	}
	conn, _ := lh.ready.Remove().(net.Conn)
	<-lh.slots
	return lh.loop.newStream(conn), nil
}

func (lh *listener) Addr() net.Addr { return lh.ln.Addr() }

func (lh *listener) Close() error {
	if lh.closed {
		return nil
	}
	lh.closed = true
	close(lh.quit)
	err := lh.ln.Close()
	for lh.ready.Length() > 0 {
		if conn, ok := lh.ready.Remove().(net.Conn); ok {
			_ = conn.Close() //nolint:errcheck
		}
	}
	lh.loop.untrack(lh)
	lh.loop.active--
	return err
}
