package reactor

import (
	"container/heap"
	"time"
)

type timerHandle struct {
	loop    *Loop
	cb      func()
	when    time.Time
	seq     uint64
	index   int // position in loop.timers, -1 when not scheduled
	timeout time.Duration
	repeat  time.Duration
	started bool
	closed  bool
}

type timerHeap []*timerHandle

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t, ok := x.(*timerHandle)
	if !ok || t == nil {
		return
	}
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	if n == 0 {
		return (*timerHandle)(nil)
	}
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// NewTimer creates a stopped timer.
func (l *Loop) NewTimer(cb func()) Timer {
	return &timerHandle{loop: l, cb: cb, index: -1}
}

func (t *timerHandle) Start(timeout, repeat time.Duration) error {
	if t.closed || t.loop.isClosed() {
		return ErrClosed
	}
	t.unschedule()
	if timeout < 0 {
		timeout = 0
	}
	t.timeout, t.repeat, t.started = timeout, repeat, true
	t.schedule(timeout)
	return nil
}

func (t *timerHandle) Again() error {
	if t.closed {
		return ErrClosed
	}
	if !t.started {
		return ErrNotStarted
	}
	if t.repeat <= 0 {
		return nil
	}
	t.unschedule()
	t.schedule(t.repeat)
	return nil
}

func (t *timerHandle) SetRepeat(repeat time.Duration) { t.repeat = repeat }

func (t *timerHandle) Repeat() time.Duration { return t.repeat }

func (t *timerHandle) Active() bool { return t.index >= 0 }

func (t *timerHandle) Stop() error {
	t.unschedule()
	return nil
}

func (t *timerHandle) Close() {
	t.unschedule()
	t.closed = true
}

func (t *timerHandle) schedule(after time.Duration) {
	l := t.loop
	l.timerSeq++
	t.seq = l.timerSeq
	t.when = time.Now().Add(after)
	heap.Push(&l.timers, t)
	l.active++
}

func (t *timerHandle) unschedule() {
	if t.index < 0 {
		return
	}
	heap.Remove(&t.loop.timers, t.index)
	t.loop.active--
}

// runTimers fires every timer due now. A repeating timer is rescheduled before
// its callback runs, so the callback may stop or restart it.
func (l *Loop) runTimers() {
	now := time.Now()
	for len(l.timers) > 0 {
		t := l.timers[0]
		if t.when.After(now) {
			return
		}
		heap.Pop(&l.timers)
		l.active--
		if t.repeat > 0 {
			t.schedule(t.repeat)
		}
		l.stats.Callbacks.Add(1)
		t.cb()
	}
}
