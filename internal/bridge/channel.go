package bridge

import (
	"sync"

	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/reactor"
	"awaitrt/internal/trace"
)

// slot is the state shared by the receiver and every Sender. mu guards the
// value, never a resume.
type slot[T any] struct {
	mu       sync.Mutex
	val      T
	has      bool
	closed   bool
	released bool
	waker    reactor.Waker
}

func (s *slot[T]) take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.val, s.has
	var zero T
	s.val, s.has = zero, false
	return v, ok
}

// Channel receives values posted from other goroutines. It is not a queue: a
// value posted before the previous one was received replaces it.
type Channel[T any] struct {
	s      *slot[T]
	tracer trace.Tracer
	latest T
	ready  bool
	closed bool
	waiter coro.Handle
}

// Sender posts into a Channel. It is a small value; copy it freely.
type Sender[T any] struct {
	s *slot[T]
}

// NewChannel registers a channel with r. Close it on the loop goroutine.
func NewChannel[T any](r reactor.Reactor) (*Channel[T], error) {
	c := &Channel[T]{s: &slot[T]{}, tracer: trace.OrNop(r.Tracer())}
	w, err := r.NewWaker(c.onWake)
	if err != nil {
		return nil, err
	}
	c.s.waker = w
	return c, nil
}

// onWake moves the posted value to the loop side and resumes the receiver.
func (c *Channel[T]) onWake() {
	v, ok := c.s.take()
	if !ok {
		return
	}
	c.latest, c.ready = v, true
	if w := c.waiter; w != nil {
		c.waiter = nil
		w.Resume()
	}
}

// Sender returns a handle usable from any goroutine.
func (c *Channel[T]) Sender() Sender[T] { return Sender[T]{s: c.s} }

// Send replaces the pending value and wakes the loop.
func (s Sender[T]) Send(v T) error {
	s.s.mu.Lock()
	if s.s.closed {
		s.s.mu.Unlock()
		return ErrClosed
	}
	s.s.val, s.s.has = v, true
	s.s.mu.Unlock()
	if err := s.s.waker.Wake(); err != nil {
		return ErrClosed
	}
	return nil
}

// Close stops delivery. Senders fail from now on and a suspended receiver
// resumes, failing with ErrClosed. The shared slot is released once the loop
// has torn the waker down.
func (c *Channel[T]) Close() {
	s := c.s
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	var zero T
	c.latest, c.ready, c.closed = zero, false, true
	if w := c.waiter; w != nil {
		c.waiter = nil
		w.Resume()
	}
	s.waker.Close(func() {
		s.mu.Lock()
		var zero T
		s.val, s.has, s.released = zero, false, true
		s.mu.Unlock()
		trace.Point(c.tracer, trace.ScopeOp, "channel:released", 0, "")
	})
}

// Released reports whether the shared slot was torn down.
func (c *Channel[T]) Released() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.released
}

func (c *Channel[T]) Ready() bool           { return c.ready || c.closed }
func (c *Channel[T]) Suspend(h coro.Handle) { c.waiter = h }

// Resume yields the latest value. On a closed channel it fails the awaiting
// task with ErrClosed.
func (c *Channel[T]) Resume() T {
	if c.closed {
		panic(&outcome.PropagatedError{Err: ErrClosed})
	}
	v := c.latest
	var zero T
	c.latest, c.ready = zero, false
	return v
}

func (c *Channel[T]) Detach(h coro.Handle) {
	if c.waiter == h {
		c.waiter = nil
	}
}
