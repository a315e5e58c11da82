package reactor

import "sync/atomic"

type waker struct {
	loop    *Loop
	cb      func()
	pending atomic.Bool
	closed  atomic.Bool
}

// NewWaker registers cb. The waker keeps the loop alive until it is closed.
func (l *Loop) NewWaker(cb func()) (Waker, error) {
	if l.isClosed() {
		return nil, ErrClosed
	}
	l.active++
	return &waker{loop: l, cb: cb}, nil
}

func (w *waker) Wake() error {
	if w.closed.Load() {
		return ErrClosed
	}
	if !w.pending.CompareAndSwap(false, true) {
		return nil
	}
	if !w.loop.post(w.fire) {
		return ErrClosed
	}
	return nil
}

func (w *waker) fire() {
	w.pending.Store(false)
	if w.closed.Load() {
		return
	}
	w.cb()
}

// Close posts done behind every wake already queued, so it runs after the last
// callback that could still observe the waker.
func (w *waker) Close(done func()) {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	l := w.loop
	if !l.post(func() {
		l.active--
		if done != nil {
			done()
		}
	}) && done != nil {
		done()
	}
}
