// Package reactor defines the event-loop collaborator the runtime registers
// operations with, and Loop, an implementation over Go's runtime: the netpoller
// behind package net, runtime timers, os/signal and a bounded worker pool.
//
// Unless noted otherwise, methods of Reactor and of every handle it returns must be
// called on the reactor goroutine (the one running Loop.Run, or the one that will),
// and every callback is invoked there, never from inside the call that registered it.
package reactor

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"time"

	"awaitrt/internal/observ"
	"awaitrt/internal/trace"
)

var (
	// ErrClosed is returned by operations on a closed handle or loop.
	ErrClosed = errors.New("reactor: closed")
	// ErrLoopRunning is returned by Run when the loop is already running.
	ErrLoopRunning = errors.New("reactor: loop already running")
	// ErrWouldBlock is returned by Accept when no connection is waiting.
	ErrWouldBlock = errors.New("reactor: no pending connection")
	// ErrAlreadyReading is returned by ReadStart on a stream that is reading.
	ErrAlreadyReading = errors.New("reactor: stream already reading")
	// ErrNotStarted is returned by Timer.Again on a timer that never ran.
	ErrNotStarted = errors.New("reactor: timer never started")
)

// Reactor is the set of capabilities the runtime needs from an event loop.
type Reactor interface {
	// Now returns the loop's notion of the current time.
	Now() time.Time

	NewTimer(cb func()) Timer
	NewSignal(cb func(os.Signal)) Signal
	NewIdle(cb func()) Idle

	// Resolve looks up host and service. The request can be cancelled until its
	// callback has run.
	Resolve(host, service string, cb func([]netip.AddrPort, error)) Request

	// Dial connects a stream. An error return means the request was never
	// registered and cb will not run. The request cannot be cancelled.
	Dial(network, address string, cb func(Stream, error)) (Request, error)

	// Listen binds and listens. cb runs once per connection ready to Accept,
	// or with the accept error.
	Listen(network, address string, backlog int, cb func(error)) (Listener, error)

	// NewWaker returns a handle other goroutines use to run cb on the loop.
	NewWaker(cb func()) (Waker, error)

	// QueueWork runs work on a pool goroutine, then after on the loop. ctx is
	// cancelled when the request is cancelled, including after work started.
	QueueWork(work func(ctx context.Context), after func(error)) Request

	Tracer() trace.Tracer
	Stats() *observ.Stats
}

// Request is an in-flight one-shot operation.
type Request interface {
	// Cancel reports true when the request was stopped before its callback ran;
	// the callback is then never invoked. It never invokes the callback itself.
	Cancel() bool
}

// Timer is a one-shot or repeating timer.
type Timer interface {
	// Start arms the timer to fire after timeout and then every repeat (0 = once).
	Start(timeout, repeat time.Duration) error
	// Again restarts a repeating timer with its repeat interval as timeout.
	Again() error
	SetRepeat(repeat time.Duration)
	Repeat() time.Duration
	Active() bool
	Stop() error
	Close()
}

// Signal delivers one signal number.
type Signal interface {
	Start(sig os.Signal) error
	Stop() error
	Close()
}

// Idle runs its callback once per loop iteration while started.
type Idle interface {
	Start() error
	Stop() error
	Close()
}

// Stream is a connected duplex byte stream.
type Stream interface {
	// ReadStart delivers inbound chunks to cb until ReadStop. The slice is only
	// valid until the loop resumes reading, which happens after cb returns unless
	// cb stopped reading; then it stays valid until the next ReadStart.
	ReadStart(cb func(data []byte, err error)) error
	ReadStop() error
	// Write sends b in submission order. b must not change until cb runs.
	// cb always runs, with an error when the stream closed first.
	Write(b []byte, cb func(error)) error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
}

// Listener hands out accepted connections.
type Listener interface {
	// Accept returns a connection announced by the listen callback, or ErrWouldBlock.
	Accept() (Stream, error)
	Addr() net.Addr
	Close() error
}

// Waker wakes the loop from any goroutine.
type Waker interface {
	// Wake may be called from any goroutine. Wakes coalesce until the callback runs.
	Wake() error
	// Close stops the waker. done runs on the loop once no wake can reach the
	// callback any more.
	Close(done func())
}
