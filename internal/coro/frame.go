package coro

import (
	"errors"
	"fmt"
	"iter"

	"awaitrt/internal/outcome"
	"awaitrt/internal/trace"
)

var (
	// ErrNotInTask is raised when a coroutine operation is used outside its running body.
	ErrNotInTask = errors.New("coro: not called from the running task")
	// ErrResumeRunning is raised when a running frame is resumed.
	ErrResumeRunning = errors.New("coro: resume of a running task")
	// ErrDestroyRunning is raised when a running frame is destroyed.
	ErrDestroyRunning = errors.New("coro: destroy of a running task")
	// ErrAwaitInExit is raised when a Defer hook tries to suspend.
	ErrAwaitInExit = errors.New("coro: await during task exit")
	// ErrDestroyed is the outcome of a task destroyed before it finished.
	ErrDestroyed = errors.New("coro: task destroyed")
	// ErrAlreadyAwaited is raised when a second waiter awaits the same task.
	ErrAlreadyAwaited = errors.New("coro: task already has a waiter")
)

type frameState uint8

const (
	frameCreated frameState = iota
	frameRunning
	frameSuspended
	frameDone
	frameDestroyed
)

// unwindSignal is the panic value that carries a destroyed frame out of its body.
type unwindSignal struct{}

// exitHook is a Defer hook or the teardown of a spawned child. A child's slot
// is cleared when the child finishes on its own.
type exitHook struct {
	fn    func()
	child *Frame
}

// Frame is one coroutine: the body, its suspension point and its continuation.
type Frame struct {
	sched *Scheduler
	name  string
	span  *trace.Span
	co    Co

	state     frameState
	unwinding bool
	exiting   bool
	err       error

	next  func() (struct{}, bool)
	stop  func()
	yield func(struct{}) bool

	cont    Handle
	waiting Detacher
	exits   []exitHook
	spent   int

	owner *Frame
	slot  int

	body    func(co *Co) error
	onError func(err error)
}

func newFrame(s *Scheduler, name string, parent uint64, body func(*Co) error, onError func(error)) *Frame {
	f := &Frame{
		sched:   s,
		name:    name,
		span:    trace.Begin(s.tracer, trace.ScopeTask, "task:"+name, parent),
		body:    body,
		onError: onError,
	}
	f.co.f = f
	f.next, f.stop = iter.Pull(f.run)
	return f
}

// Resume schedules the frame on its scheduler. Resuming a finished frame is a no-op.
func (f *Frame) Resume() { f.sched.Resume(f) }

func (f *Frame) run(yield func(struct{}) bool) {
	f.yield = yield
	defer f.exit()
	defer f.capture()
	f.err = f.body(&f.co)
}

func (f *Frame) capture() {
	switch r := recover().(type) {
	case nil:
	case unwindSignal:
	case *outcome.PropagatedError:
		f.err = r.Err
		if f.err == nil {
			f.err = outcome.ErrPropagated
		}
	default:
		f.err = NewPanicError(r)
	}
}

func (f *Frame) exit() {
	f.exiting = true
	for i := len(f.exits) - 1; i >= 0; i-- {
		if fn := f.exits[i].fn; fn != nil {
			f.runExit(fn)
		}
	}
	f.exits = nil
	f.spent = 0
	f.leaveOwner()

	f.sched.live--
	if f.unwinding {
		f.state = frameDestroyed
		f.sched.stats.TasksDestroyed.Add(1)
		f.span.End("destroyed")
		return
	}
	f.state = frameDone
	f.sched.stats.TasksFinished.Add(1)
	if f.err != nil {
		f.onError(f.err)
		f.span.WithExtra("error", f.err.Error()).End("failed")
		return
	}
	f.span.End("ok")
}

// adopt registers child as owned by f, to be destroyed when f exits.
func (f *Frame) adopt(child *Frame, destroy func()) {
	child.owner = f
	child.slot = len(f.exits)
	f.exits = append(f.exits, exitHook{fn: destroy, child: child})
}

// leaveOwner clears f's slot in its owner so a finished child is not retained
// for the owner's lifetime.
func (f *Frame) leaveOwner() {
	o := f.owner
	if o == nil {
		return
	}
	f.owner = nil
	if o.exiting || f.slot >= len(o.exits) || o.exits[f.slot].child != f {
		return
	}
	o.exits[f.slot] = exitHook{}
	o.spent++
	if o.spent*2 > len(o.exits) {
		o.compactExits()
	}
}

func (f *Frame) compactExits() {
	n := 0
	for _, h := range f.exits {
		if h.fn == nil {
			continue
		}
		if h.child != nil {
			h.child.slot = n
		}
		f.exits[n] = h
		n++
	}
	clear(f.exits[n:])
	f.exits = f.exits[:n]
	f.spent = 0
}

func (f *Frame) runExit(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			trace.Point(f.sched.tracer, trace.ScopeRuntime, "exit-panic:"+f.name, f.span.ID(), fmt.Sprint(r))
		}
	}()
	fn()
}

// step runs the frame until it suspends or finishes. A finished frame hands back
// its continuation for the trampoline to run next.
func (f *Frame) step() Handle {
	switch f.state {
	case frameCreated:
	case frameSuspended:
		f.sched.stats.Resumes.Add(1)
	case frameRunning:
		panic(fmt.Errorf("%w: %s", ErrResumeRunning, f.name))
	default:
		return nil
	}
	f.state = frameRunning
	f.waiting = nil
	f.next()
	if f.state == frameSuspended {
		return nil
	}
	cont := f.cont
	f.cont = nil
	return cont
}

// suspend parks the body until the next step. If the frame is destroyed instead,
// it detaches from a and unwinds the body.
func (f *Frame) suspend(a any) {
	if f.exiting {
		panic(ErrAwaitInExit)
	}
	if d, ok := a.(Detacher); ok {
		f.waiting = d
	}
	f.state = frameSuspended
	f.sched.stats.Suspends.Add(1)
	if f.yield(struct{}{}) {
		return
	}
	f.state = frameRunning
	if w := f.waiting; w != nil {
		f.waiting = nil
		w.Detach(f)
	}
	panic(unwindSignal{})
}

func (f *Frame) destroy() {
	switch f.state {
	case frameRunning:
		panic(fmt.Errorf("%w: %s", ErrDestroyRunning, f.name))
	case frameDone, frameDestroyed:
		return
	case frameCreated:
		f.state = frameDestroyed
		f.sched.live--
		f.stop()
		f.leaveOwner()
		f.span.End("destroyed")
		return
	}
	f.unwinding = true
	f.stop()
}

func (f *Frame) dead() bool {
	return f.state == frameDone || f.state == frameDestroyed
}

// Co is the handle a task body receives. It is only valid inside that body.
type Co struct {
	f *Frame
}

func (co *Co) frame() *Frame {
	if co == nil || co.f == nil || co.f.state != frameRunning {
		panic(ErrNotInTask)
	}
	return co.f
}

// Name returns the task name.
func (co *Co) Name() string { return co.f.name }

// Scheduler returns the scheduler running the task.
func (co *Co) Scheduler() *Scheduler { return co.f.sched }

// Span returns the task's trace span ID, for parenting operation events.
func (co *Co) Span() uint64 { return co.f.span.ID() }

// Defer registers fn to run when the task finishes or is destroyed. Hooks and
// spawned children are released together in reverse registration order.
func (co *Co) Defer(fn func()) {
	f := co.frame()
	f.exits = append(f.exits, exitHook{fn: fn})
}
