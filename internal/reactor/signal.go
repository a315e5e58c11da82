package reactor

import (
	"os"
	"os/signal"
)

type signalHandle struct {
	loop   *Loop
	cb     func(os.Signal)
	ch     chan os.Signal
	stop   chan struct{}
	closed bool
}

// NewSignal creates a stopped signal watcher.
func (l *Loop) NewSignal(cb func(os.Signal)) Signal {
	return &signalHandle{loop: l, cb: cb}
}

// Start watches sig. Every delivery is forwarded to the loop; deliveries that
// arrive after Stop are dropped there.
func (s *signalHandle) Start(sig os.Signal) error {
	if s.closed || s.loop.isClosed() {
		return ErrClosed
	}
	s.halt()
	ch := make(chan os.Signal, 1)
	stop := make(chan struct{})
	s.ch, s.stop = ch, stop
	signal.Notify(ch, sig)
	s.loop.active++
	s.loop.signals[s] = struct{}{}

	go func() {
		for {
			select {
			case <-stop:
				return
			case got := <-ch:
				s.loop.post(func() {
					if s.ch != ch {
						return
					}
					s.cb(got)
				})
			}
		}
	}()
	return nil
}

func (s *signalHandle) Stop() error {
	s.halt()
	return nil
}

func (s *signalHandle) Close() {
	s.halt()
	s.closed = true
}

func (s *signalHandle) halt() {
	if s.ch == nil {
		return
	}
	signal.Stop(s.ch)
	close(s.stop)
	s.ch, s.stop = nil, nil
	delete(s.loop.signals, s)
	s.loop.active--
}
