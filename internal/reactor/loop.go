package reactor

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"awaitrt/internal/observ"
	"awaitrt/internal/trace"
)

// Loop is a single-goroutine reactor. Helper goroutines (readers, dialers, the
// resolver, pool jobs, signal forwarders) never run callbacks themselves; they post
// closures to the ingress queue and the goroutine in Run executes them in order.
type Loop struct {
	cfg    Config
	tracer trace.Tracer
	stats  *observ.Stats

	mu      sync.Mutex
	ingress *queue.Queue
	closed  bool
	notify  chan struct{}

	ctx       context.Context
	cancelAll context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	timers   timerHeap
	timerSeq uint64
	idles    []*idleHandle
	active   int
	closers  map[interface{ Close() error }]struct{}
	signals  map[*signalHandle]struct{}

	resolver *net.Resolver
	dialer   net.Dialer
	poolSem  *semaphore.Weighted
	poolJobs errgroup.Group
}

// Option configures a Loop.
type Option func(*Loop)

// WithTracer routes loop events to t.
func WithTracer(t trace.Tracer) Option {
	return func(l *Loop) { l.tracer = trace.OrNop(t) }
}

// WithStats counts loop activity into st.
func WithStats(st *observ.Stats) Option {
	return func(l *Loop) {
		if st != nil {
			l.stats = st
		}
	}
}

// WithResolver replaces net.DefaultResolver.
func WithResolver(r *net.Resolver) Option {
	return func(l *Loop) {
		if r != nil {
			l.resolver = r
		}
	}
}

// New creates a Loop. It does nothing until Run.
func New(cfg Config, opts ...Option) *Loop {
	cfg = cfg.normalized()
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		cfg:       cfg,
		tracer:    trace.Nop,
		stats:     &observ.Stats{},
		ingress:   queue.New(),
		notify:    make(chan struct{}, 1),
		ctx:       ctx,
		cancelAll: cancel,
		done:      make(chan struct{}),
		closers:   make(map[interface{ Close() error }]struct{}),
		signals:   make(map[*signalHandle]struct{}),
		resolver:  net.DefaultResolver,
		poolSem:   semaphore.NewWeighted(int64(cfg.PoolSize)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the wall clock.
func (l *Loop) Now() time.Time { return time.Now() }

// Tracer returns the loop's tracer.
func (l *Loop) Tracer() trace.Tracer { return l.tracer }

// Stats returns the loop's counters.
func (l *Loop) Stats() *observ.Stats { return l.stats }

// Config returns the effective configuration.
func (l *Loop) Config() Config { return l.cfg }

// Alive reports whether handles or requests still keep Run going.
func (l *Loop) Alive() bool {
	if l.active > 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ingress.Length() > 0
}

// Run processes timers, posted completions and idle callbacks until nothing keeps
// the loop alive, ctx is done, or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	span := trace.Begin(l.tracer, trace.ScopeRuntime, "loop", 0)
	defer span.End("")

	wait := time.NewTimer(time.Hour)
	defer wait.Stop()

	for {
		l.stats.Iterations.Add(1)
		l.runTimers()
		l.runIngress()
		l.runIdle()

		if l.isClosed() {
			return ErrClosed
		}
		if !l.Alive() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		d, block := l.nextWait()
		if !block {
			continue
		}
		if d < 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.notify:
			case <-l.done:
			}
			continue
		}
		wait.Reset(d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
		case <-l.done:
		case <-wait.C:
		}
		if !wait.Stop() {
			select {
			case <-wait.C:
			default:
			}
		}
	}
}

// nextWait returns how long to block: block=false to poll again at once,
// d<0 to block until something is posted.
func (l *Loop) nextWait() (d time.Duration, block bool) {
	if l.activeIdles() > 0 {
		return 0, false
	}
	l.mu.Lock()
	pending := l.ingress.Length()
	l.mu.Unlock()
	if pending > 0 {
		return 0, false
	}
	if len(l.timers) == 0 {
		return -1, true
	}
	d = time.Until(l.timers[0].when)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// Post schedules fn on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(fn func()) error {
	if !l.post(fn) {
		return ErrClosed
	}
	return nil
}

func (l *Loop) post(fn func()) bool { return l.enqueue(fn) }

// enqueue adds a func() or a *completion to the ingress queue.
func (l *Loop) enqueue(item any) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.ingress.Add(item)
	l.mu.Unlock()

	l.stats.Posts.Add(1)
	select {
	case l.notify <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) runIngress() {
	for i := 0; i < l.cfg.IngressBatch; i++ {
		l.mu.Lock()
		if l.ingress.Length() == 0 {
			l.mu.Unlock()
			return
		}
		item := l.ingress.Remove()
		l.mu.Unlock()

		l.stats.Callbacks.Add(1)
		switch it := item.(type) {
		case func():
			it()
		case *completion:
			it.run(l)
		}
	}
}

func (l *Loop) isClosed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Close stops the loop: posted callbacks are dropped, streams, listeners and
// signals are closed, pool jobs are cancelled and waited for. Call it on the loop
// goroutine, after Run returned or from a callback.
func (l *Loop) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		dropped := l.ingress
		l.ingress = queue.New()
		l.mu.Unlock()
		for dropped.Length() > 0 {
			if c, ok := dropped.Remove().(*completion); ok {
				c.drop()
			}
		}

		close(l.done)
		l.cancelAll()

		for c := range l.closers {
			_ = c.Close() //nolint:errcheck
		}
		for s := range l.signals {
			s.Close()
		}
		l.timers = nil
		l.idles = nil
		l.active = 0
		_ = l.poolJobs.Wait() //nolint:errcheck
		trace.Point(l.tracer, trace.ScopeRuntime, "loop:closed", 0, "")
	})
	return nil
}

func (l *Loop) track(c interface{ Close() error }) { l.closers[c] = struct{}{} }

func (l *Loop) untrack(c interface{ Close() error }) { delete(l.closers, c) }
