package coro

import (
	"awaitrt/internal/outcome"
	"awaitrt/internal/trace"
)

// Task is a started coroutine together with the Outcome its body produces.
//
// A Task is awaitable: awaiting an unfinished Task records the caller as its single
// continuation; awaiting a finished one returns at once.
type Task[T any] struct {
	f      *Frame
	result outcome.Outcome[T]
	read   bool
}

// Start creates a root task and runs body until its first suspension.
func Start[T any](s *Scheduler, name string, body func(co *Co) (T, error)) *Task[T] {
	t := newTask(s, name, 0, body)
	s.addRoot(t.f, t.Destroy)
	s.start(t.f)
	return t
}

// Spawn creates a task owned by the calling task and runs body until its first
// suspension. The child is destroyed when the caller exits, unless finished.
func Spawn[T any](co *Co, name string, body func(co *Co) (T, error)) *Task[T] {
	parent := co.frame()
	t := newTask(parent.sched, name, parent.span.ID(), body)
	parent.adopt(t.f, t.Destroy)
	parent.sched.start(t.f)
	return t
}

// StartFunc is Start for bodies without a result value.
func StartFunc(s *Scheduler, name string, body func(co *Co) error) *Task[outcome.Void] {
	return Start(s, name, voidBody(body))
}

// SpawnFunc is Spawn for bodies without a result value.
func SpawnFunc(co *Co, name string, body func(co *Co) error) *Task[outcome.Void] {
	return Spawn(co, name, voidBody(body))
}

func voidBody(body func(co *Co) error) func(co *Co) (outcome.Void, error) {
	return func(co *Co) (outcome.Void, error) {
		return outcome.Void{}, body(co)
	}
}

func newTask[T any](s *Scheduler, name string, parent uint64, body func(co *Co) (T, error)) *Task[T] {
	t := &Task[T]{}
	run := func(co *Co) error {
		v, err := body(co)
		if err != nil {
			return err
		}
		t.result.Set(v)
		return nil
	}
	t.f = newFrame(s, name, parent, run, t.result.SetError)
	return t
}

// Name returns the task name.
func (t *Task[T]) Name() string { return t.f.name }

// Done reports whether the task finished or was destroyed.
func (t *Task[T]) Done() bool { return t.f.dead() }

// Outcome returns the task's result. It is empty until the task is Done.
func (t *Task[T]) Outcome() outcome.Outcome[T] {
	t.read = true
	return t.result
}

// Destroy tears the task down. A suspended body unwinds through its defers, its
// children and Defer hooks are released, and whatever it awaited forgets it.
// A task still being awaited resumes its waiter with ErrDestroyed.
func (t *Task[T]) Destroy() {
	if t == nil || t.f == nil {
		return
	}
	f := t.f
	if f.dead() {
		if f.state == frameDone && !t.read && !t.result.Ok() {
			trace.Point(f.sched.tracer, trace.ScopeRuntime, "dropped-error:"+f.name, f.span.ID(), t.result.Err().Error())
		}
		return
	}
	cont := f.cont
	f.cont = nil
	f.destroy()
	if !t.result.IsSet() {
		t.result.SetError(ErrDestroyed)
	}
	if cont != nil {
		f.sched.Resume(cont)
	}
}

// Ready reports whether awaiting t would return without suspending.
func (t *Task[T]) Ready() bool { return t.f.dead() }

// Suspend records h as the continuation to run when t finishes.
func (t *Task[T]) Suspend(h Handle) {
	if t.f.cont != nil && t.f.cont != h {
		panic(ErrAlreadyAwaited)
	}
	t.f.cont = h
}

// Resume returns the task's Outcome.
func (t *Task[T]) Resume() outcome.Outcome[T] { return t.Outcome() }

// Detach forgets h as the continuation.
func (t *Task[T]) Detach(h Handle) {
	if t.f.cont == h {
		t.f.cont = nil
	}
}
