// Package reactortest provides Fake, a reactor driven step by step from a test.
//
// Nothing happens on its own: timers fire on Advance, signals on Raise, idle
// callbacks on RunIdle, wakers on Flush, and every one-shot request waits for
// an explicit Complete. Completions can also be forced after a successful
// cancel to exercise callers that must tolerate stale callbacks.
package reactortest

import (
	"context"
	"net"
	"net/netip"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"awaitrt/internal/observ"
	"awaitrt/internal/reactor"
	"awaitrt/internal/trace"
)

// Fake implements reactor.Reactor. It is not safe for concurrent use except
// for Waker.Wake.
type Fake struct {
	now    time.Time
	tracer trace.Tracer
	stats  *observ.Stats
	seq    uint64

	timers  []*Timer
	signals []*Signal
	idles   []*Idle

	Resolves  []*Resolve
	Dials     []*Dial
	Works     []*Work
	Listeners []*Listener

	wmu    sync.Mutex
	wakers []*Waker

	// DialErr and ListenErr, when set, fail registration synchronously.
	DialErr   error
	ListenErr error
	// Uncancellable makes Cancel on resolve and work requests report false.
	Uncancellable bool
}

var _ reactor.Reactor = (*Fake)(nil)

// New returns a Fake whose clock starts at a fixed instant.
func New() *Fake {
	return &Fake{
		now:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		tracer: trace.Nop,
		stats:  &observ.Stats{},
	}
}

// WithTracer sets the tracer reported by Tracer.
func (f *Fake) WithTracer(t trace.Tracer) *Fake {
	f.tracer = trace.OrNop(t)
	return f
}

func (f *Fake) Now() time.Time       { return f.now }
func (f *Fake) Tracer() trace.Tracer { return f.tracer }
func (f *Fake) Stats() *observ.Stats { return f.stats }

// Request is a fake one-shot request.
type Request struct {
	cancellable bool
	cancelled   bool
	done        bool
	ctx         context.Context
	stop        context.CancelFunc
}

func newRequest(cancellable bool) Request {
	ctx, stop := context.WithCancel(context.Background())
	return Request{cancellable: cancellable, ctx: ctx, stop: stop}
}

func (r *Request) Cancel() bool {
	if r.done || r.cancelled {
		return false
	}
	r.stop()
	if !r.cancellable {
		return false
	}
	r.cancelled = true
	return true
}

// Cancelled reports whether Cancel succeeded.
func (r *Request) Cancelled() bool { return r.cancelled }

// Done reports whether the callback ran.
func (r *Request) Done() bool { return r.done }

// Live reports whether the request still owes a callback.
func (r *Request) Live() bool { return !r.done && !r.cancelled }

// deliverable claims the callback; force ignores a successful cancel.
func (r *Request) deliverable(force bool) bool {
	if r.done || (r.cancelled && !force) {
		return false
	}
	r.done = true
	r.stop()
	return true
}

// Resolve is a recorded lookup.
type Resolve struct {
	Request
	Host, Service string
	cb            func([]netip.AddrPort, error)
}

func (f *Fake) Resolve(host, service string, cb func([]netip.AddrPort, error)) reactor.Request {
	r := &Resolve{Request: newRequest(!f.Uncancellable), Host: host, Service: service, cb: cb}
	f.Resolves = append(f.Resolves, r)
	return r
}

// Complete runs the callback unless the request was cancelled. It reports
// whether the callback ran.
func (r *Resolve) Complete(addrs []netip.AddrPort, err error) bool {
	if !r.deliverable(false) {
		return false
	}
	r.cb(addrs, err)
	return true
}

// ForceComplete runs the callback even after a successful cancel.
func (r *Resolve) ForceComplete(addrs []netip.AddrPort, err error) {
	if r.deliverable(true) {
		r.cb(addrs, err)
	}
}

// Dial is a recorded connect.
type Dial struct {
	Request
	Network, Address string
	cb               func(reactor.Stream, error)
}

func (f *Fake) Dial(network, address string, cb func(reactor.Stream, error)) (reactor.Request, error) {
	if f.DialErr != nil {
		return nil, f.DialErr
	}
	d := &Dial{Request: newRequest(false), Network: network, Address: address, cb: cb}
	f.Dials = append(f.Dials, d)
	return d, nil
}

// Complete runs the callback once.
func (d *Dial) Complete(s reactor.Stream, err error) bool {
	if !d.deliverable(false) {
		return false
	}
	d.cb(s, err)
	return true
}

// Work is a recorded pool job.
type Work struct {
	Request
	work    func(ctx context.Context)
	after   func(error)
	started bool
}

func (f *Fake) QueueWork(work func(ctx context.Context), after func(error)) reactor.Request {
	w := &Work{Request: newRequest(!f.Uncancellable), work: work, after: after}
	f.Works = append(f.Works, w)
	f.stats.WorkQueued.Add(1)
	return w
}

// Start runs the work function on the calling goroutine. From then on Cancel
// only cancels the context.
func (w *Work) Start() {
	if w.started || w.cancelled {
		return
	}
	w.started = true
	w.cancellable = false
	w.work(w.ctx)
}

// Started reports whether the work function ran.
func (w *Work) Started() bool { return w.started }

// Complete runs the work if needed, then the after callback. It reports whether
// after ran.
func (w *Work) Complete() bool {
	w.Start()
	if !w.deliverable(false) {
		return false
	}
	w.after(nil)
	return true
}

// Timer is a fake timer on the virtual clock.
type Timer struct {
	f       *Fake
	cb      func()
	when    time.Time
	seq     uint64
	repeat  time.Duration
	active  bool
	started bool
	closed  bool
}

func (f *Fake) NewTimer(cb func()) reactor.Timer {
	t := &Timer{f: f, cb: cb}
	f.timers = append(f.timers, t)
	return t
}

func (t *Timer) Start(timeout, repeat time.Duration) error {
	if t.closed {
		return reactor.ErrClosed
	}
	t.repeat, t.started = repeat, true
	t.arm(timeout)
	return nil
}

func (t *Timer) arm(after time.Duration) {
	t.f.seq++
	t.seq = t.f.seq
	t.when = t.f.now.Add(after)
	t.active = true
}

func (t *Timer) Again() error {
	if t.closed {
		return reactor.ErrClosed
	}
	if !t.started {
		return reactor.ErrNotStarted
	}
	if t.repeat > 0 {
		t.arm(t.repeat)
	}
	return nil
}

func (t *Timer) SetRepeat(repeat time.Duration) { t.repeat = repeat }
func (t *Timer) Repeat() time.Duration          { return t.repeat }
func (t *Timer) Active() bool                   { return t.active }

func (t *Timer) Stop() error {
	t.active = false
	return nil
}

func (t *Timer) Close() {
	t.active = false
	t.closed = true
}

// Closed reports whether Close was called.
func (t *Timer) Closed() bool { return t.closed }

// Advance moves the clock forward by d and fires every timer that becomes due,
// in deadline order, re-arming repeating ones. It returns the number of callbacks run.
func (f *Fake) Advance(d time.Duration) int {
	target := f.now.Add(d)
	fired := 0
	for {
		t := f.nextDue(target)
		if t == nil {
			break
		}
		if t.when.After(f.now) {
			f.now = t.when
		}
		t.active = false
		if t.repeat > 0 {
			t.arm(t.repeat)
		}
		fired++
		t.cb()
	}
	f.now = target
	return fired
}

func (f *Fake) nextDue(limit time.Time) *Timer {
	var due []*Timer
	for _, t := range f.timers {
		if t.active && !t.when.After(limit) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].when.Equal(due[j].when) {
			return due[i].seq < due[j].seq
		}
		return due[i].when.Before(due[j].when)
	})
	return due[0]
}

// Signal is a fake signal watcher.
type Signal struct {
	cb     func(os.Signal)
	sig    os.Signal
	active bool
	closed bool
}

func (f *Fake) NewSignal(cb func(os.Signal)) reactor.Signal {
	s := &Signal{cb: cb}
	f.signals = append(f.signals, s)
	return s
}

func (s *Signal) Start(sig os.Signal) error {
	if s.closed {
		return reactor.ErrClosed
	}
	s.sig, s.active = sig, true
	return nil
}

func (s *Signal) Stop() error {
	s.active = false
	return nil
}

func (s *Signal) Close() {
	s.active = false
	s.closed = true
}

// Closed reports whether Close was called.
func (s *Signal) Closed() bool { return s.closed }

// Raise delivers sig to every started watcher of it.
func (f *Fake) Raise(sig os.Signal) int {
	n := 0
	for _, s := range slices.Clone(f.signals) {
		if s.active && s.sig == sig {
			n++
			s.cb(sig)
		}
	}
	return n
}

// Idle is a fake idle handle.
type Idle struct {
	cb     func()
	active bool
	closed bool
}

func (f *Fake) NewIdle(cb func()) reactor.Idle {
	h := &Idle{cb: cb}
	f.idles = append(f.idles, h)
	return h
}

func (h *Idle) Start() error {
	if h.closed {
		return reactor.ErrClosed
	}
	h.active = true
	return nil
}

func (h *Idle) Stop() error {
	h.active = false
	return nil
}

func (h *Idle) Close() {
	h.active = false
	h.closed = true
}

// Active reports whether the handle is started.
func (h *Idle) Active() bool { return h.active }

// Closed reports whether Close was called.
func (h *Idle) Closed() bool { return h.closed }

// RunIdle runs one loop iteration's worth of idle callbacks.
func (f *Fake) RunIdle() int {
	n := 0
	for _, h := range slices.Clone(f.idles) {
		if h.active {
			n++
			h.cb()
		}
	}
	return n
}

// Live counts requests still owing a callback and handles keeping a loop alive.
func (f *Fake) Live() int {
	n := 0
	for _, r := range f.Resolves {
		if r.Live() {
			n++
		}
	}
	for _, d := range f.Dials {
		if d.Live() {
			n++
		}
	}
	for _, w := range f.Works {
		if w.Live() {
			n++
		}
	}
	for _, t := range f.timers {
		if t.active {
			n++
		}
	}
	for _, s := range f.signals {
		if s.active {
			n++
		}
	}
	for _, h := range f.idles {
		if h.active {
			n++
		}
	}
	for _, l := range f.Listeners {
		if !l.closed {
			n++
		}
	}
	f.wmu.Lock()
	for _, w := range f.wakers {
		if !w.released {
			n++
		}
	}
	f.wmu.Unlock()
	return n
}

// LastResolve returns the most recent resolve request.
func (f *Fake) LastResolve() *Resolve { return last(f.Resolves) }

// LastDial returns the most recent dial request.
func (f *Fake) LastDial() *Dial { return last(f.Dials) }

// LastWork returns the most recent pool job.
func (f *Fake) LastWork() *Work { return last(f.Works) }

func last[T any](s []*T) *T {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// Addr is a fake network address.
type Addr string

func (a Addr) Network() string { return "tcp" }
func (a Addr) String() string  { return string(a) }

var _ net.Addr = Addr("")
