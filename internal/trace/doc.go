// Package trace records what the runtime does: loop iterations, task lifetimes,
// operation registrations and the callbacks that complete them.
//
// # Usage
//
//	awaitrt serve --trace=- --trace-level=op :8080
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event as it happens (text, NDJSON or msgpack)
//   - RingTracer: keeps the last N events for a post-mortem dump
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Levels gate scopes from coarse to fine:
//
//   - LevelError: runtime scope only (loop start/stop, dropped task errors)
//   - LevelTask: plus task begin/end and destruction
//   - LevelOp: plus operation arm/complete/abandon
//   - LevelDebug: plus every reactor callback
//
// Spans pair a begin event with an end event:
//
//	span := trace.Begin(t, trace.ScopeTask, "task:accept", parent)
//	defer span.End("")
package trace
