package coro

import (
	"github.com/eapache/queue"

	"awaitrt/internal/observ"
	"awaitrt/internal/trace"
)

// Scheduler owns the trampoline that resumes frames and their continuations.
//
// Resume only enqueues while a trampoline pass is already running; the outermost
// call drains the queue. A finishing frame returns its continuation to the loop in
// drain instead of resuming it from inside its own stack.
type Scheduler struct {
	tracer trace.Tracer
	stats  *observ.Stats
	ready  *queue.Queue
	active bool
	live   int
	roots  []rootTask
}

type rootTask struct {
	f       *Frame
	destroy func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTracer routes task spans to t.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = trace.OrNop(t) }
}

// WithStats counts task activity into st.
func WithStats(st *observ.Stats) Option {
	return func(s *Scheduler) {
		if st != nil {
			s.stats = st
		}
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		tracer: trace.Nop,
		stats:  &observ.Stats{},
		ready:  queue.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resume schedules h and, unless a trampoline pass is already running, runs it
// and everything it hands back before returning.
func (s *Scheduler) Resume(h Handle) {
	if h == nil {
		return
	}
	s.ready.Add(h)
	if s.active {
		return
	}
	s.drain()
}

func (s *Scheduler) drain() {
	s.active = true
	defer func() { s.active = false }()
	for s.ready.Length() > 0 {
		h, _ := s.ready.Remove().(Handle)
		s.run(h)
	}
}

// run is the trampoline: each step returns the next handle to run, or nil.
func (s *Scheduler) run(h Handle) {
	for h != nil {
		h = s.step(h)
	}
}

func (s *Scheduler) step(h Handle) Handle {
	if f, ok := h.(*Frame); ok {
		return f.step()
	}
	h.Resume()
	return nil
}

// start runs a new frame's body up to its first suspension. Inside a trampoline
// pass this happens in place; otherwise it opens a pass of its own.
func (s *Scheduler) start(f *Frame) {
	s.live++
	s.stats.TasksStarted.Add(1)
	if s.active {
		s.run(f)
		return
	}
	s.Resume(f)
}

// Live reports frames that have started and neither finished nor been destroyed.
func (s *Scheduler) Live() int { return s.live }

// Tracer returns the scheduler's tracer.
func (s *Scheduler) Tracer() trace.Tracer { return s.tracer }

// Stats returns the counters the scheduler updates.
func (s *Scheduler) Stats() *observ.Stats { return s.stats }

// Shutdown destroys every root task that is still suspended, newest first.
func (s *Scheduler) Shutdown() {
	for i := len(s.roots) - 1; i >= 0; i-- {
		if !s.roots[i].f.dead() {
			s.roots[i].destroy()
		}
	}
	s.roots = nil
}

func (s *Scheduler) addRoot(f *Frame, destroy func()) {
	kept := s.roots[:0]
	for _, r := range s.roots {
		if !r.f.dead() {
			kept = append(kept, r)
		}
	}
	s.roots = append(kept, rootTask{f: f, destroy: destroy})
}
