// Package coro runs linear task bodies as coroutines driven by reactor callbacks.
//
// A task body runs on its own coroutine (iter.Pull) and suspends at Await. The
// awaited object records the frame as its waiter and resumes it later, normally from
// a reactor callback on the loop goroutine. Completion hands the frame's continuation
// back to the Scheduler's trampoline instead of resuming it in place, so chains of any
// depth run in bounded stack.
//
// Everything in this package is single-threaded: create, await, resume and destroy
// only from the goroutine that runs the reactor (or, before the loop starts, the
// goroutine that will).
package coro
