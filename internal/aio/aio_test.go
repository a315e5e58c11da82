package aio

import (
	"errors"
	"io"
	"net/netip"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/reactor"
	"awaitrt/internal/reactor/reactortest"
)

type harness struct {
	f     *reactortest.Fake
	sched *coro.Scheduler
}

func newHarness() *harness {
	f := reactortest.New()
	return &harness{f: f, sched: coro.NewScheduler(coro.WithStats(f.Stats()))}
}

func (h *harness) suspends() uint64 { return h.sched.Stats().Suspends.Load() }

// repeating is a tick source under test: how to build it and how to make the
// fake reactor produce one event.
type repeating struct {
	name  string
	build func(h *harness) (await func(co *coro.Co), pendingFn func() int, tick func())
}

func repeatingSources() []repeating {
	return []repeating{
		{"timer", func(h *harness) (func(*coro.Co), func() int, func()) {
			t := NewTimer(h.f)
			if err := t.Start(time.Millisecond, time.Millisecond); err != nil {
				panic(err)
			}
			return func(co *coro.Co) { coro.Await(co, t) }, t.Pending, func() { h.f.Advance(time.Millisecond) }
		}},
		{"signal", func(h *harness) (func(*coro.Co), func() int, func()) {
			s := NewSignal(h.f)
			if err := s.Start(os.Interrupt); err != nil {
				panic(err)
			}
			return func(co *coro.Co) { coro.Await(co, s) }, s.Pending, func() { h.f.Raise(os.Interrupt) }
		}},
		{"idle", func(h *harness) (func(*coro.Co), func() int, func()) {
			i, err := NewIdle(h.f, true)
			if err != nil {
				panic(err)
			}
			return func(co *coro.Co) { coro.Await(co, i) }, i.Pending, func() { h.f.RunIdle() }
		}},
		{"listener", func(h *harness) (func(*coro.Co), func() int, func()) {
			srv := NewTCP(h.f)
			if err := srv.Bind("127.0.0.1:8000"); err != nil {
				panic(err)
			}
			l, err := srv.Listen(16)
			if err != nil {
				panic(err)
			}
			return func(co *coro.Co) { coro.Await(co, l) }, l.Pending, func() {
				h.f.LastListener().Incoming(reactortest.NewStream("127.0.0.1:8000", "127.0.0.1:9000"))
			}
		}},
	}
}

func TestRepeatingSourcesKeepUnawaitedTicks(t *testing.T) {
	const m, n = 5, 3
	for _, src := range repeatingSources() {
		t.Run(src.name, func(t *testing.T) {
			r := require.New(t)
			h := newHarness()
			await, pendingFn, tick := src.build(h)
			for range m {
				tick()
			}
			r.Equal(m, pendingFn())

			task := coro.StartFunc(h.sched, "drain", func(co *coro.Co) error {
				for range n {
					await(co)
				}
				return nil
			})
			r.True(task.Done())
			r.Zero(h.suspends(), "queued ticks resume immediately")
			r.Equal(m-n, pendingFn())
		})
	}
}

func TestRepeatingSourcesWakeWaiter(t *testing.T) {
	for _, src := range repeatingSources() {
		t.Run(src.name, func(t *testing.T) {
			r := require.New(t)
			h := newHarness()
			await, pendingFn, tick := src.build(h)
			got := 0
			task := coro.StartFunc(h.sched, "wait", func(co *coro.Co) error {
				for range 2 {
					await(co)
					got++
				}
				return nil
			})
			r.False(task.Done())
			tick()
			r.Equal(1, got)
			tick()
			r.True(task.Done())
			r.Equal(2, got)
			r.Equal(0, pendingFn())
			r.Equal(uint64(2), h.suspends())
		})
	}
}

func TestRepeatingSourcesForgetDestroyedWaiter(t *testing.T) {
	for _, src := range repeatingSources() {
		t.Run(src.name, func(t *testing.T) {
			r := require.New(t)
			h := newHarness()
			await, pendingFn, tick := src.build(h)
			task := coro.StartFunc(h.sched, "wait", func(co *coro.Co) error {
				await(co)
				return nil
			})
			task.Destroy()
			r.ErrorIs(task.Outcome().Err(), coro.ErrDestroyed)
			tick()
			r.Equal(1, pendingFn())
			r.Equal(0, h.sched.Live())
		})
	}
}

func TestTimerTenMillis(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tm := NewTimer(h.f)
	start := h.f.Now()
	var woke time.Time
	r.NoError(tm.Start(10*time.Millisecond, 0))

	task := coro.StartFunc(h.sched, "sleep", func(co *coro.Co) error {
		coro.Await(co, tm)
		woke = h.f.Now()
		return nil
	})
	h.f.Advance(9 * time.Millisecond)
	r.False(task.Done())
	h.f.Advance(time.Millisecond)
	r.True(task.Done())
	r.GreaterOrEqual(woke.Sub(start), 10*time.Millisecond)
	r.Equal(0, tm.Pending())
	r.False(tm.Active())
}

func TestTimerAgainAndRepeat(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tm := NewTimer(h.f)
	r.ErrorIs(tm.Again(), reactor.ErrNotStarted)
	r.NoError(tm.Start(time.Second, 0))
	tm.SetRepeat(5 * time.Millisecond)
	r.Equal(5*time.Millisecond, tm.Repeat())
	r.NoError(tm.Again())
	h.f.Advance(5 * time.Millisecond)
	r.Equal(1, tm.Pending())
	r.True(tm.Active())
	r.NoError(tm.Stop())
	tm.Close()
	r.Equal(1, tm.Pending())
}

func TestSleep(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	task := coro.StartFunc(h.sched, "sleep", func(co *coro.Co) error {
		return Sleep(co, h.f, 3*time.Millisecond)
	})
	h.f.Advance(2 * time.Millisecond)
	r.False(task.Done())
	h.f.Advance(time.Millisecond)
	r.True(task.Done())
	r.NoError(task.Outcome().Err())
	r.Equal(0, h.f.Live())
}

func TestSignalYieldsDeliveredSignals(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	a := NewSignal(h.f)
	b := NewSignal(h.f)
	r.NoError(a.Start(os.Interrupt))
	r.NoError(b.Start(syscall.SIGTERM))

	task := coro.Start(h.sched, "signals", func(co *coro.Co) ([]os.Signal, error) {
		return []os.Signal{coro.Await(co, b), coro.Await(co, a)}, nil
	})
	h.f.Raise(os.Interrupt)
	h.f.Raise(syscall.SIGTERM)
	r.True(task.Done())
	r.Equal([]os.Signal{syscall.SIGTERM, os.Interrupt}, task.Outcome().Value())

	a.Close()
	r.Equal(0, h.f.Raise(os.Interrupt))
}

func TestIdleWithoutAutostart(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	i, err := NewIdle(h.f, false)
	r.NoError(err)
	h.f.RunIdle()
	r.Equal(0, i.Pending())
	r.NoError(i.Start())
	h.f.RunIdle()
	r.Equal(1, i.Pending())
	r.NoError(i.Stop())
	h.f.RunIdle()
	r.Equal(1, i.Pending())
	i.Close()
}

func TestLookupSuspendsOnceThenYieldsAddresses(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	want := []netip.AddrPort{netip.MustParseAddrPort("10.0.0.1:80")}

	task := coro.Start(h.sched, "resolve", func(co *coro.Co) ([]netip.AddrPort, error) {
		l := Resolve(h.f, "example.com", "80")
		defer l.Close()
		return coro.Try(co, coro.Await(co, l)), nil
	})
	req := h.f.LastResolve()
	r.Equal("example.com", req.Host)
	r.Equal("80", req.Service)
	r.Equal(uint64(1), h.suspends())
	r.True(req.Complete(want, nil))
	r.True(task.Done())
	r.Equal(want, task.Outcome().Value())
	r.Equal(uint64(1), h.suspends())
}

func TestLookupFailurePropagates(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	task := coro.Start(h.sched, "resolve", func(co *coro.Co) ([]netip.AddrPort, error) {
		return coro.Try(co, coro.Await(co, Resolve(h.f, "nowhere.invalid", ""))), nil
	})
	h.f.LastResolve().Complete(nil, errors.New("no such host"))
	_, err := task.Outcome().Get()
	r.Error(err)
}

func TestLookupAbandonCancelsRequest(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	task := coro.Start(h.sched, "resolve", func(co *coro.Co) (Addrs, error) {
		return coro.Await(co, Resolve(h.f, "example.com", "")), nil
	})
	req := h.f.LastResolve()
	task.Destroy()

	r.True(req.Cancelled())
	r.Equal(uint64(1), h.f.Stats().OpsCancelled.Load())
	req.ForceComplete(nil, nil)
	r.Zero(h.f.Stats().OpsLate.Load(), "a cancelled cell ignores a stale completion")
	r.Equal(0, h.f.Live())
}

func TestLookupAbandonHandsCellToLateCompletion(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	h.f.Uncancellable = true
	task := coro.Start(h.sched, "resolve", func(co *coro.Co) (Addrs, error) {
		return coro.Await(co, Resolve(h.f, "example.com", "")), nil
	})
	task.Destroy()
	r.Equal(uint64(1), h.f.Stats().OpsAbandoned.Load())
	r.Zero(h.f.Stats().OpsLate.Load())

	r.True(h.f.LastResolve().Complete([]netip.AddrPort{netip.MustParseAddrPort("10.0.0.1:1")}, nil))
	r.Equal(uint64(1), h.f.Stats().OpsLate.Load())
	r.Equal(0, h.sched.Live())
}

func connectTask(h *harness, tcp *TCP, addr string) *coro.Task[int] {
	return coro.Start(h.sched, "connect", func(co *coro.Co) (int, error) {
		c := tcp.Connect(addr)
		defer c.Close()
		res := coro.Await(co, c)
		return c.Status(), res.Err()
	})
}

func TestConnectRefusedSynchronouslyNeverSuspends(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	h.f.DialErr = syscall.ECONNREFUSED
	tcp := NewTCP(h.f)

	task := connectTask(h, tcp, "127.0.0.1:1")
	r.True(task.Done())
	r.Zero(h.suspends())
	r.ErrorIs(task.Outcome().Err(), syscall.ECONNREFUSED)
	r.False(tcp.Connected())
}

func TestConnectRefusedAsynchronously(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp := NewTCP(h.f)
	var c *Connector
	task := coro.StartFunc(h.sched, "connect", func(co *coro.Co) error {
		c = tcp.Connect("127.0.0.1:1")
		return coro.Await(co, c).Err()
	})
	r.Equal(StatusPending, c.Status())
	r.Equal(uint64(1), h.suspends())
	h.f.LastDial().Complete(nil, syscall.ECONNREFUSED)
	r.True(task.Done())
	r.Equal(-int(syscall.ECONNREFUSED), c.Status())
	r.False(c.Ready())
	r.Equal(uint64(1), h.suspends())
	r.ErrorIs(task.Outcome().Err(), syscall.ECONNREFUSED)
}

func TestConnectAttachesStream(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp := NewTCP(h.f)
	task := connectTask(h, tcp, "127.0.0.1:80")
	r.Equal("127.0.0.1:80", h.f.LastDial().Address)
	s := reactortest.NewStream("127.0.0.1:5555", "127.0.0.1:80")
	h.f.LastDial().Complete(s, nil)

	r.True(task.Done())
	r.Equal(0, task.Outcome().Value())
	r.True(tcp.Connected())
	r.Equal("127.0.0.1:80", tcp.RemoteAddr().String())
	r.Equal("127.0.0.1:5555", tcp.LocalAddr().String())
	r.False(s.Closed())
	r.ErrorIs(tcp.Connect("127.0.0.1:80").Resume().Err(), ErrBusy)
}

func TestAbandonedConnectClosesLateStream(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp := NewTCP(h.f)
	task := connectTask(h, tcp, "127.0.0.1:80")
	dial := h.f.LastDial()
	task.Destroy()
	r.False(dial.Cancelled(), "connect cannot be cancelled")

	s := reactortest.NewStream("a", "b")
	r.True(dial.Complete(s, nil))
	r.True(s.Closed())
	r.False(tcp.Connected())
	r.Equal(uint64(1), h.f.Stats().OpsLate.Load())
}

func TestConnectLandingAfterCloseFails(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp := NewTCP(h.f)
	var c *Connector
	task := coro.StartFunc(h.sched, "connect", func(co *coro.Co) error {
		c = tcp.Connect("127.0.0.1:80")
		return coro.Await(co, c).Err()
	})
	dial := h.f.LastDial()
	r.NoError(tcp.Close())
	r.False(task.Done(), "connect cannot be cancelled")

	s := reactortest.NewStream("127.0.0.1:5555", "127.0.0.1:80")
	r.True(dial.Complete(s, nil))
	r.True(task.Done())
	r.ErrorIs(task.Outcome().Err(), ErrClosed)
	r.Equal(-1, c.Status())
	r.True(s.Closed())
	r.False(tcp.Connected())
	r.Nil(tcp.RemoteAddr())
}

func TestConnectToLookupResult(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp := NewTCP(h.f)

	failed := tcp.ConnectTo(outcome.Failed[[]netip.AddrPort](syscall.EHOSTUNREACH))
	r.True(failed.Ready())
	r.ErrorIs(failed.Resume().Err(), syscall.EHOSTUNREACH)
	r.Equal(-int(syscall.EHOSTUNREACH), failed.Status())

	empty := tcp.ConnectTo(outcome.Of[[]netip.AddrPort](nil))
	r.True(empty.Ready())
	r.ErrorIs(empty.Resume().Err(), reactor.ErrNoAddress)

	c := tcp.ConnectTo(outcome.Of([]netip.AddrPort{netip.MustParseAddrPort("10.1.2.3:443")}))
	r.False(c.Ready())
	r.Equal("10.1.2.3:443", h.f.LastDial().Address)
	c.Close()
}

func connected(h *harness) (*TCP, *reactortest.Stream) {
	srv := NewTCP(h.f)
	if err := srv.Bind("127.0.0.1:7000"); err != nil {
		panic(err)
	}
	if _, err := srv.Listen(0); err != nil {
		panic(err)
	}
	s := reactortest.NewStream("127.0.0.1:7000", "127.0.0.1:40000")
	h.f.LastListener().Incoming(s)
	client := NewTCP(h.f)
	if err := srv.Accept(client); err != nil {
		panic(err)
	}
	return client, s
}

func TestReaderPausesUntilNextAwait(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, s := connected(h)
	var chunks []string
	task := coro.StartFunc(h.sched, "read", func(co *coro.Co) error {
		rd := tcp.Read()
		for {
			chunk, err := coro.Await(co, rd).Get()
			if err != nil {
				return outcome.Cause(err)
			}
			chunks = append(chunks, string(chunk))
		}
	})
	r.True(s.Reading())
	r.True(s.Deliver([]byte("hello")))
	r.Equal([]string{"hello"}, chunks)
	r.True(s.Reading(), "the task awaited again")

	r.True(s.Fail(io.EOF))
	r.True(task.Done())
	r.ErrorIs(task.Outcome().Err(), io.EOF)
	r.ErrorIs(tcp.Read().Resume().Err(), io.EOF, "end of stream is sticky")
}

func TestReaderHoldsChunkWhileNobodyAwaits(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, s := connected(h)
	rd := tcp.Read()
	r.False(rd.Ready())
	r.True(s.Deliver([]byte("one")))
	r.False(s.Reading())
	r.False(s.Deliver([]byte("two")), "paused while a chunk is unconsumed")
	r.Equal(1, rd.Pending())

	task := coro.Start(h.sched, "read", func(co *coro.Co) (string, error) {
		b := coro.Try(co, coro.Await(co, rd))
		return string(b), nil
	})
	r.True(task.Done())
	r.Equal("one", task.Outcome().Value())
	r.Zero(h.suspends())
}

func TestReaderCloseDropsUnawaitedChunk(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, s := connected(h)
	rd := tcp.Read()
	r.False(rd.Ready())
	r.True(s.Deliver([]byte("stale")))
	rd.Close()
	r.Zero(rd.Pending())
	r.False(s.Reading())

	r.False(rd.Ready(), "await after Close reads again")
	r.True(s.Reading())
}

func TestReaderStopsForDestroyedTask(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, s := connected(h)
	task := coro.StartFunc(h.sched, "read", func(co *coro.Co) error {
		coro.Await(co, tcp.Read())
		return nil
	})
	r.True(s.Reading())
	task.Destroy()
	r.False(s.Reading())
	r.False(s.Deliver([]byte("late")))
}

func TestCloseResumesSuspendedReader(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, s := connected(h)
	task := coro.Start(h.sched, "read", func(co *coro.Co) ([]byte, error) {
		return coro.Await(co, tcp.Read()).Get()
	})
	r.True(s.Reading())
	r.False(task.Done())

	r.NoError(tcp.Close())
	r.True(task.Done())
	r.ErrorIs(task.Outcome().Err(), ErrClosed)
	r.False(s.Reading())
	r.True(s.Closed())
	r.ErrorIs(tcp.Read().Resume().Err(), ErrClosed, "closed reader stays failed")
}

func TestReaderOnUnconnectedHandle(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	rd := NewTCP(h.f).Read()
	r.True(rd.Ready())
	r.ErrorIs(rd.Resume().Err(), ErrNotConnected)
}

func TestWriterOwnsCopyAndCompletes(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, s := connected(h)
	payload := []byte("GET / HTTP/1.0\r\n\r\n")

	var busy error
	task := coro.StartFunc(h.sched, "write", func(co *coro.Co) error {
		w := tcp.Write(payload)
		copy(payload, "XXX")
		busy = w.Write([]byte("again"))
		coro.Check(co, coro.Await(co, w).Err())
		coro.Check(co, w.Write([]byte("again")))
		return coro.Await(co, w).Err()
	})
	r.ErrorIs(busy, ErrBusy)
	r.Equal("GET / HTTP/1.0\r\n\r\n", string(s.LastWrite().Data))
	s.LastWrite().Complete(nil)
	r.False(task.Done())
	r.Equal("again", string(s.LastWrite().Data))
	s.LastWrite().Complete(syscall.EPIPE)
	r.True(task.Done())
	r.ErrorIs(task.Outcome().Err(), syscall.EPIPE)
}

func TestAbandonedWriteCompletesLate(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, s := connected(h)
	task := coro.StartFunc(h.sched, "write", func(co *coro.Co) error {
		return coro.Await(co, tcp.Write([]byte("bye"))).Err()
	})
	task.Destroy()
	r.NoError(tcp.Close())
	r.True(s.Closed())
	r.True(s.LastWrite().Complete(syscall.ECANCELED))
	r.Equal("bye", string(s.LastWrite().Data))
	r.Equal(uint64(1), h.f.Stats().OpsLate.Load())
}

func TestWriteOnClosedHandleIsReadyWithError(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	tcp, _ := connected(h)
	r.NoError(tcp.Close())
	w := tcp.Write([]byte("x"))
	r.True(w.Ready())
	r.ErrorIs(w.Resume().Err(), ErrClosed)
	r.ErrorIs(NewTCP(h.f).Write(nil).Resume().Err(), ErrNotConnected)
}

func TestListenAndAccept(t *testing.T) {
	r := require.New(t)
	h := newHarness()
	srv := NewTCP(h.f)
	_, err := srv.Listen(1)
	r.ErrorIs(err, ErrNotBound)
	r.Error(srv.Bind("nonsense"))
	r.NoError(srv.Bind("127.0.0.1:7000"))
	l, err := srv.Listen(8)
	r.NoError(err)
	r.Equal(8, h.f.LastListener().Backlog)
	r.ErrorIs(srv.Accept(NewTCP(h.f)), reactor.ErrWouldBlock)

	var accepted []*TCP
	task := coro.StartFunc(h.sched, "accept", func(co *coro.Co) error {
		for range 2 {
			coro.Check(co, coro.Await(co, l))
			c := NewTCP(h.f)
			coro.Check(co, srv.Accept(c))
			accepted = append(accepted, c)
		}
		return nil
	})
	h.f.LastListener().Incoming(reactortest.NewStream("127.0.0.1:7000", "127.0.0.1:1"))
	h.f.LastListener().Fail(syscall.EMFILE)
	r.True(task.Done())
	r.ErrorIs(task.Outcome().Err(), syscall.EMFILE)
	r.Len(accepted, 1)
	r.Equal("127.0.0.1:1", accepted[0].RemoteAddr().String())

	r.ErrorIs(NewTCP(h.f).Accept(NewTCP(h.f)), ErrNotListening)
	r.NoError(l.Close())
	r.True(h.f.LastListener().Closed())
}
