package reactor

import (
	"net"
	"sync"

	"github.com/eapache/queue"
)

// stream adapts a net.Conn. One reader goroutine fills a single buffer and hands
// each chunk to the loop, then waits for a resume token before reading again, so
// a chunk stays valid until the loop has consumed it.
type stream struct {
	loop *Loop
	conn net.Conn

	// loop goroutine only
	onRead  func([]byte, error)
	reading bool
	started bool
	closed  bool
	parked  bool
	stash   []byte
	stashed bool
	readErr error

	resume chan struct{}
	quit   chan struct{}

	wmu    sync.Mutex
	writes *queue.Queue
	wbusy  bool
}

type writeReq struct {
	b  []byte
	cb func(error)
}

func (l *Loop) newStream(conn net.Conn) *stream {
	s := &stream{
		loop:   l,
		conn:   conn,
		resume: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		writes: queue.New(),
	}
	l.track(s)
	return s
}

func (s *stream) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *stream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *stream) ReadStart(cb func([]byte, error)) error {
	if s.closed {
		return ErrClosed
	}
	if s.reading {
		return ErrAlreadyReading
	}
	s.onRead, s.reading = cb, true
	s.loop.active++

	switch {
	case s.readErr != nil:
		err := s.readErr
		s.loop.post(func() { s.fail(err) })
	case !s.started:
		s.started = true
		go s.readLoop(make([]byte, s.loop.cfg.ReadBufferSize))
	case s.stashed:
		chunk := s.stash
		s.stash, s.stashed = nil, false
		s.loop.post(func() { s.deliver(chunk) })
	case s.parked:
		s.parked = false
		s.resume <- struct{}{}
	}
	return nil
}

func (s *stream) ReadStop() error {
	if !s.reading {
		return nil
	}
	s.reading = false
	s.loop.active--
	return nil
}

func (s *stream) readLoop(buf []byte) {
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !s.loop.post(func() { s.deliver(chunk) }) {
				return
			}
			select {
			case <-s.resume:
			case <-s.quit:
				return
			}
		}
		if err != nil {
			s.loop.post(func() { s.fail(err) })
			return
		}
	}
}

func (s *stream) deliver(chunk []byte) {
	if s.closed {
		return
	}
	if !s.reading {
		s.stash, s.stashed, s.parked = chunk, true, true
		return
	}
	s.onRead(chunk, nil)
	if s.reading && !s.closed {
		s.parked = false
		s.resume <- struct{}{}
		return
	}
	s.parked = true
}

// fail records the terminal read error and reports it once to the current reader.
// Reading stops; a later ReadStart reports the same error again.
func (s *stream) fail(err error) {
	if s.closed {
		return
	}
	s.readErr = err
	if !s.reading {
		return
	}
	s.reading = false
	s.loop.active--
	s.onRead(nil, err)
}

func (s *stream) Write(b []byte, cb func(error)) error {
	if s.closed {
		return ErrClosed
	}
	s.loop.active++
	s.wmu.Lock()
	s.writes.Add(writeReq{b: b, cb: cb})
	start := !s.wbusy
	s.wbusy = true
	s.wmu.Unlock()
	if start {
		go s.flush()
	}
	return nil
}

func (s *stream) flush() {
	for {
		s.wmu.Lock()
		if s.writes.Length() == 0 {
			s.wbusy = false
			s.wmu.Unlock()
			return
		}
		w, _ := s.writes.Remove().(writeReq)
		s.wmu.Unlock()

		_, err := s.conn.Write(w.b)
		s.loop.post(func() {
			s.loop.active--
			if w.cb != nil {
				w.cb(err)
			}
		})
	}
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.reading {
		s.reading = false
		s.loop.active--
	}
	s.stash = nil
	close(s.quit)
	s.loop.untrack(s)
	return s.conn.Close()
}
