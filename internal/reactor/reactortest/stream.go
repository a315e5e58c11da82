package reactortest

import (
	"net"
	"slices"
	"sync"

	"awaitrt/internal/reactor"
)

// Stream is a fake connection. Inbound data is injected with Deliver; writes are
// recorded and complete on Complete.
type Stream struct {
	Local, Remote net.Addr

	onRead  func([]byte, error)
	reading bool
	closed  bool
	Writes  []*Write
}

var _ reactor.Stream = (*Stream)(nil)

// NewStream returns an open stream between two fake addresses.
func NewStream(local, remote string) *Stream {
	return &Stream{Local: Addr(local), Remote: Addr(remote)}
}

func (s *Stream) ReadStart(cb func([]byte, error)) error {
	if s.closed {
		return reactor.ErrClosed
	}
	if s.reading {
		return reactor.ErrAlreadyReading
	}
	s.onRead, s.reading = cb, true
	return nil
}

func (s *Stream) ReadStop() error {
	s.reading = false
	return nil
}

// Reading reports whether a read callback is installed.
func (s *Stream) Reading() bool { return s.reading }

// Deliver hands data to the read callback. It reports false when the stream is
// not reading; the data is then not delivered.
func (s *Stream) Deliver(data []byte) bool {
	if !s.reading || s.closed {
		return false
	}
	s.onRead(data, nil)
	return true
}

// Fail reports a terminal read error and stops reading.
func (s *Stream) Fail(err error) bool {
	if !s.reading || s.closed {
		return false
	}
	s.reading = false
	s.onRead(nil, err)
	return true
}

func (s *Stream) Write(b []byte, cb func(error)) error {
	if s.closed {
		return reactor.ErrClosed
	}
	s.Writes = append(s.Writes, &Write{Data: b, cb: cb})
	return nil
}

// LastWrite returns the most recent write.
func (s *Stream) LastWrite() *Write { return last(s.Writes) }

func (s *Stream) LocalAddr() net.Addr  { return s.Local }
func (s *Stream) RemoteAddr() net.Addr { return s.Remote }

func (s *Stream) Close() error {
	s.closed = true
	s.reading = false
	return nil
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool { return s.closed }

// Write is a recorded write. Data aliases the caller's slice.
type Write struct {
	Data []byte
	cb   func(error)
	done bool
}

// Complete runs the write callback once.
func (w *Write) Complete(err error) bool {
	if w.done {
		return false
	}
	w.done = true
	if w.cb != nil {
		w.cb(err)
	}
	return true
}

// Done reports whether the callback ran.
func (w *Write) Done() bool { return w.done }

// Listener is a fake listener. Connections are injected with Incoming.
type Listener struct {
	Network, Address string
	Backlog          int

	cb     func(error)
	queue  []reactor.Stream
	closed bool
}

func (f *Fake) Listen(network, address string, backlog int, cb func(error)) (reactor.Listener, error) {
	if f.ListenErr != nil {
		return nil, f.ListenErr
	}
	l := &Listener{Network: network, Address: address, Backlog: backlog, cb: cb}
	f.Listeners = append(f.Listeners, l)
	return l, nil
}

// Incoming queues s for Accept and announces it.
func (l *Listener) Incoming(s reactor.Stream) bool {
	if l.closed {
		return false
	}
	l.queue = append(l.queue, s)
	l.cb(nil)
	return true
}

// Fail reports an accept error.
func (l *Listener) Fail(err error) bool {
	if l.closed {
		return false
	}
	l.cb(err)
	return true
}

func (l *Listener) Accept() (reactor.Stream, error) {
	if l.closed {
		return nil, reactor.ErrClosed
	}
	if len(l.queue) == 0 {
		return nil, reactor.ErrWouldBlock
	}
	s := l.queue[0]
	l.queue = l.queue[1:]
	return s, nil
}

func (l *Listener) Addr() net.Addr { return Addr(l.Address) }

func (l *Listener) Close() error {
	l.closed = true
	return nil
}

// Closed reports whether Close was called.
func (l *Listener) Closed() bool { return l.closed }

// LastListener returns the most recent listener.
func (f *Fake) LastListener() *Listener { return last(f.Listeners) }

// Waker is a fake waker. Wake only marks it; Flush on the test goroutine runs
// the callback, and runs the close callback once the waker is closed.
type Waker struct {
	mu       sync.Mutex
	cb       func()
	pending  bool
	closed   bool
	released bool
	done     func()
	fired    int
}

func (f *Fake) NewWaker(cb func()) (reactor.Waker, error) {
	w := &Waker{cb: cb}
	f.wmu.Lock()
	f.wakers = append(f.wakers, w)
	f.wmu.Unlock()
	return w, nil
}

func (w *Waker) Wake() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return reactor.ErrClosed
	}
	w.pending = true
	return nil
}

func (w *Waker) Close(done func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.done = done
}

// Fired returns how many times the callback ran.
func (w *Waker) Fired() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// Released reports whether the close callback ran.
func (w *Waker) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}

func (w *Waker) flush() int {
	w.mu.Lock()
	fire := w.pending && !w.closed
	w.pending = false
	var done func()
	if w.closed && !w.released {
		w.released = true
		done = w.done
	}
	if fire {
		w.fired++
	}
	w.mu.Unlock()

	n := 0
	if fire {
		n++
		w.cb()
	}
	if done != nil {
		n++
		done()
	}
	return n
}

// Flush runs pending wake callbacks and due close callbacks. It returns the
// number of callbacks run.
func (f *Fake) Flush() int {
	f.wmu.Lock()
	wakers := slices.Clone(f.wakers)
	f.wmu.Unlock()
	n := 0
	for _, w := range wakers {
		n += w.flush()
	}
	return n
}

// Wakers returns every waker created so far.
func (f *Fake) Wakers() []*Waker {
	f.wmu.Lock()
	defer f.wmu.Unlock()
	return slices.Clone(f.wakers)
}
