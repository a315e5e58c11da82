// Package bridge connects the reactor goroutine with the rest of the program.
//
// Channel carries values from any goroutine into a task on the loop. Work runs a
// function on the reactor's pool and hands its result back to the loop before the
// awaiting task can see it.
package bridge

import "errors"

// ErrClosed is returned by Send once the receiving Channel was closed.
var ErrClosed = errors.New("bridge: channel closed")
