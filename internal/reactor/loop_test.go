package reactor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T, cfg Config) *Loop {
	t.Helper()
	l := New(cfg)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func run(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Run(ctx))
}

func TestRunReturnsWhenNothingIsActive(t *testing.T) {
	l := newTestLoop(t, DefaultConfig())
	run(t, l)
	require.False(t, l.Alive())
}

func TestRunRejectsReentry(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	var inner error
	r.NoError(l.Post(func() { inner = l.Run(context.Background()) }))
	run(t, l)
	r.ErrorIs(inner, ErrLoopRunning)
}

func TestPostedCallbacksRunInOrder(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, Config{IngressBatch: 2})
	var got []int
	for i := range 5 {
		r.NoError(l.Post(func() { got = append(got, i) }))
	}
	run(t, l)
	r.Equal([]int{0, 1, 2, 3, 4}, got)
	r.GreaterOrEqual(l.Stats().Iterations.Load(), uint64(3))
}

func TestPostAfterCloseFails(t *testing.T) {
	r := require.New(t)
	l := New(DefaultConfig())
	ran := false
	r.NoError(l.Post(func() { ran = true }))
	r.NoError(l.Close())
	r.ErrorIs(l.Post(func() {}), ErrClosed)
	r.ErrorIs(l.Run(context.Background()), ErrClosed)
	r.False(ran)
}

func TestRunStopsOnContext(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	w, err := l.NewWaker(func() {})
	r.NoError(err)
	defer w.Close(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r.ErrorIs(l.Run(ctx), context.DeadlineExceeded)
}

func TestIdleRunsEveryIteration(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	calls := 0
	var idle Idle
	idle = l.NewIdle(func() {
		calls++
		if calls == 3 {
			r.NoError(idle.Stop())
		}
	})
	r.NoError(idle.Start())
	r.NoError(idle.Start())
	run(t, l)
	r.Equal(3, calls)

	idle.Close()
	r.ErrorIs(idle.Start(), ErrClosed)
}

func TestWakerCoalescesAndClosesAfterQueuedWakes(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	fired := 0
	w, err := l.NewWaker(func() { fired++ })
	r.NoError(err)

	for range 3 {
		r.NoError(w.Wake())
	}
	var order []string
	r.NoError(l.Post(func() {
		order = append(order, "close")
		w.Close(func() { order = append(order, "done") })
	}))
	run(t, l)

	r.Equal(1, fired)
	r.Equal([]string{"close", "done"}, order)
	r.ErrorIs(w.Wake(), ErrClosed)
}

func TestWakeFromOtherGoroutines(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	var sent atomic.Int32
	var w Waker
	var err error
	w, err = l.NewWaker(func() {
		if sent.Load() == 4 {
			w.Close(nil)
		}
	})
	r.NoError(err)

	for range 4 {
		go func() {
			sent.Add(1)
			_ = w.Wake()
		}()
	}
	run(t, l)
	r.Equal(int32(4), sent.Load())
}

func TestCloseWakerOnClosedLoopRunsDone(t *testing.T) {
	l := New(DefaultConfig())
	w, err := l.NewWaker(func() {})
	require.NoError(t, err)
	require.NoError(t, l.Close())
	done := false
	w.Close(func() { done = true })
	require.True(t, done)
	_, err = l.NewWaker(func() {})
	require.True(t, errors.Is(err, ErrClosed))
}
