package aio

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"awaitrt/internal/coro"
	"awaitrt/internal/observ"
	"awaitrt/internal/outcome"
	"awaitrt/internal/reactor"
)

func newLoop(t *testing.T) (*reactor.Loop, *coro.Scheduler) {
	t.Helper()
	st := &observ.Stats{}
	l := reactor.New(reactor.DefaultConfig(), reactor.WithStats(st))
	t.Cleanup(func() { _ = l.Close() })
	return l, coro.NewScheduler(coro.WithStats(st))
}

func runLoop(t *testing.T, l *reactor.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Run(ctx))
}

func TestTimerOnLoop(t *testing.T) {
	r := require.New(t)
	l, s := newLoop(t)
	tm := NewTimer(l)
	r.NoError(tm.Start(10*time.Millisecond, 0))
	start := time.Now()
	var elapsed time.Duration
	task := coro.StartFunc(s, "timer", func(co *coro.Co) error {
		coro.Await(co, tm)
		elapsed = time.Since(start)
		return nil
	})
	runLoop(t, l)
	r.True(task.Done())
	r.GreaterOrEqual(elapsed, 10*time.Millisecond)
	r.Equal(0, tm.Pending())
}

func TestEchoOnLoop(t *testing.T) {
	r := require.New(t)
	l, s := newLoop(t)
	srv := NewTCP(l)
	r.NoError(srv.Bind("127.0.0.1:0"))
	ln, err := srv.Listen(0)
	r.NoError(err)
	addr := ln.Addr().String()

	server := coro.StartFunc(s, "server", func(co *coro.Co) error {
		defer srv.Close()
		coro.Check(co, coro.Await(co, ln))
		conn := NewTCP(l)
		defer conn.Close()
		coro.Check(co, srv.Accept(conn))
		for {
			chunk, err := coro.Await(co, conn.Read()).Get()
			if err != nil {
				if cause := outcome.Cause(err); cause != io.EOF {
					return cause
				}
				return nil
			}
			coro.Check(co, coro.Await(co, conn.Write(chunk)).Err())
		}
	})

	client := coro.Start(s, "client", func(co *coro.Co) ([]byte, error) {
		c := NewTCP(l)
		defer c.Close()
		coro.Check(co, coro.Await(co, c.Connect(addr)).Err())
		msg := []byte("hello over the loop")
		coro.Check(co, coro.Await(co, c.Write(msg)).Err())
		var got []byte
		for len(got) < len(msg) {
			got = append(got, coro.Try(co, coro.Await(co, c.Read()))...)
		}
		return got, nil
	})

	runLoop(t, l)
	r.True(server.Done())
	r.NoError(server.Outcome().Err())
	r.Equal("hello over the loop", string(client.Outcome().Value()))
	r.Zero(s.Live())
}

func TestConnectRefusedOnLoop(t *testing.T) {
	r := require.New(t)
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	r.NoError(err)
	addr := probe.Addr().String()
	r.NoError(probe.Close())

	l, s := newLoop(t)
	task := connectTask(&harness{sched: s}, NewTCP(l), addr)
	r.False(task.Done())
	runLoop(t, l)
	r.True(task.Done())
	status, err := task.Outcome().Get()
	r.Error(err)
	r.Zero(status)
	r.Equal(uint64(1), s.Stats().Suspends.Load())
}

// A connect and a write abandoned in flight complete later on the loop and
// release their cells there.
func TestAbandonedOperationsOnLoop(t *testing.T) {
	r := require.New(t)
	peer, err := net.Listen("tcp", "127.0.0.1:0")
	r.NoError(err)
	defer peer.Close()
	go func() {
		for {
			c, err := peer.Accept()
			if err != nil {
				return
			}
			go func() {
				_, _ = io.Copy(io.Discard, c)
				_ = c.Close()
			}()
		}
	}()

	l, s := newLoop(t)
	dropped := NewTCP(l)
	connect := coro.StartFunc(s, "connect", func(co *coro.Co) error {
		return coro.Await(co, dropped.Connect(peer.Addr().String())).Err()
	})
	connect.Destroy()

	writer := NewTCP(l)
	write := coro.StartFunc(s, "write", func(co *coro.Co) error {
		coro.Check(co, coro.Await(co, writer.Connect(peer.Addr().String())).Err())
		big := bytes.Repeat([]byte("x"), 1<<20)
		return coro.Await(co, writer.Write(big)).Err()
	})

	done := coro.StartFunc(s, "watch", func(co *coro.Co) error {
		idle, err := NewIdle(l, true)
		coro.Check(co, err)
		defer idle.Close()
		for !writer.Connected() {
			coro.Await(co, idle)
		}
		write.Destroy()
		return writer.Close()
	})

	runLoop(t, l)
	r.True(done.Done())
	r.NoError(done.Outcome().Err())
	r.ErrorIs(write.Outcome().Err(), coro.ErrDestroyed)
	r.False(dropped.Connected())
	r.Equal(uint64(2), l.Stats().OpsLate.Load())
	r.Zero(s.Live())
}
