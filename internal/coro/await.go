package coro

import (
	"errors"

	"awaitrt/internal/outcome"
)

// ErrNoValue fails a task whose optional result turned out absent.
var ErrNoValue = errors.New("coro: no value")

// Handle is something that can be resumed: a suspended frame, or a test double.
// It is an alias so that packages below coro can accept one without importing it.
type Handle = interface {
	Resume()
}

// Awaitable is the contract every suspendable object implements.
//
// Ready is consulted before suspending; when it reports true Await never suspends.
// Suspend records the handle to resume once the result is in; Resume hands it over.
type Awaitable[R any] interface {
	Ready() bool
	Suspend(h Handle)
	Resume() R
}

// Detacher is implemented by awaitables that must forget a waiter whose frame is
// destroyed while suspended on them.
type Detacher interface {
	Detach(h Handle)
}

// Await suspends the calling task until a is ready and returns its result.
func Await[R any](co *Co, a Awaitable[R]) R {
	f := co.frame()
	if f.exiting {
		panic(ErrAwaitInExit)
	}
	for !a.Ready() {
		a.Suspend(f)
		f.suspend(a)
	}
	return a.Resume()
}

// Try returns o's value or ends the calling task with o's error.
func Try[T any](co *Co, o outcome.Outcome[T]) T {
	co.frame()
	return o.Value()
}

// Check ends the calling task with err when it is non-nil.
func Check(co *Co, err error) {
	co.frame()
	if err != nil {
		panic(&outcome.PropagatedError{Err: err})
	}
}

// TryOK returns v, or ends the calling task with ErrNoValue when ok is false.
func TryOK[T any](co *Co, v T, ok bool) T {
	co.frame()
	if !ok {
		panic(&outcome.PropagatedError{Err: ErrNoValue})
	}
	return v
}
