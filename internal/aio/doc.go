// Package aio provides awaitable wrappers over reactor handles.
//
// Repeating sources (Timer, Signal, Idle, Listener) count events with a
// pending.Counter, so ticks that arrive while nobody awaits are not lost. One-shot
// operations (Lookup, Connector, Writer) park their result in a pending.Cell and
// follow its abandonment protocol when the awaiting task is destroyed first.
//
// Every type here is bound to the reactor goroutine.
package aio

import (
	"errors"

	"awaitrt/internal/pending"
	"awaitrt/internal/reactor"
)

var (
	// ErrNotConnected is reported by reads and writes on a TCP handle without a stream.
	ErrNotConnected = errors.New("aio: not connected")
	// ErrNotListening is returned by Accept on a handle that is not listening.
	ErrNotListening = errors.New("aio: not listening")
	// ErrNotBound is returned by Listen before Bind.
	ErrNotBound = errors.New("aio: not bound")
	// ErrBusy is returned when an operation of the same kind is still in flight.
	ErrBusy = errors.New("aio: operation in flight")
	// ErrClosed is reported by operations on a closed handle.
	ErrClosed = errors.New("aio: closed")
	// ErrUnknownSignal is returned by ParseSignal.
	ErrUnknownSignal = errors.New("aio: unknown signal")
)

// StatusPending is what Connector.Status reports before the connect completed.
const StatusPending = 1

func envOf(r reactor.Reactor) pending.Env {
	return pending.Env{Tracer: r.Tracer(), Stats: r.Stats()}
}
