package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimersFireInDeadlineOrder(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	var order []string
	slow := l.NewTimer(func() { order = append(order, "slow") })
	fast := l.NewTimer(func() { order = append(order, "fast") })
	r.NoError(slow.Start(30*time.Millisecond, 0))
	r.NoError(fast.Start(5*time.Millisecond, 0))
	r.True(slow.Active())

	start := time.Now()
	run(t, l)
	r.Equal([]string{"fast", "slow"}, order)
	r.GreaterOrEqual(time.Since(start), 30*time.Millisecond)
	r.False(slow.Active())
}

func TestRepeatingTimerStopsFromCallback(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	ticks := 0
	var tm Timer
	tm = l.NewTimer(func() {
		ticks++
		if ticks == 3 {
			r.NoError(tm.Stop())
		}
	})
	r.NoError(tm.Start(time.Millisecond, 2*time.Millisecond))
	run(t, l)
	r.Equal(3, ticks)
	r.False(tm.Active())
}

func TestTimerRestartReplacesDeadline(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	fired := 0
	tm := l.NewTimer(func() { fired++ })
	r.NoError(tm.Start(time.Hour, 0))
	r.NoError(tm.Start(time.Millisecond, 0))
	run(t, l)
	r.Equal(1, fired)
}

func TestTimerAgain(t *testing.T) {
	r := require.New(t)
	l := newTestLoop(t, DefaultConfig())
	tm := l.NewTimer(func() {})
	r.ErrorIs(tm.Again(), ErrNotStarted)

	r.NoError(tm.Start(time.Hour, 0))
	r.NoError(tm.Again())
	r.True(tm.Active(), "again without repeat leaves the timer alone")

	fired := 0
	var again Timer
	again = l.NewTimer(func() {
		fired++
		r.NoError(again.Stop())
	})
	r.NoError(again.Start(time.Hour, time.Millisecond))
	r.Equal(time.Millisecond, again.Repeat())
	again.SetRepeat(2 * time.Millisecond)
	r.Equal(2*time.Millisecond, again.Repeat())
	r.NoError(again.Again())
	r.NoError(tm.Stop())
	run(t, l)
	r.Equal(1, fired)

	again.Close()
	r.ErrorIs(again.Start(time.Millisecond, 0), ErrClosed)
	r.ErrorIs(again.Again(), ErrClosed)
}
