package bridge

import (
	"context"
	"sync/atomic"

	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/pending"
	"awaitrt/internal/reactor"
)

// Work is a function offloaded to the reactor's pool.
type Work[T any] struct {
	cell    *pending.Cell[outcome.Outcome[T]]
	started atomic.Bool
	result  outcome.Outcome[T] // written by the pool goroutine, read after the handoff
}

// Offload queues fn on r's pool. Awaiting the Work yields fn's result once the
// loop has received it. A panic in fn becomes a *coro.PanicError.
func Offload[T any](r reactor.Reactor, fn func(ctx context.Context) (T, error)) *Work[T] {
	w := &Work[T]{}
	w.cell = pending.New[outcome.Outcome[T]](pending.Env{Tracer: r.Tracer(), Stats: r.Stats()}, "work")
	cell := w.cell
	req := r.QueueWork(func(ctx context.Context) {
		w.started.Store(true)
		w.result = call(ctx, fn)
	}, func(err error) {
		res := w.result
		if !res.IsSet() {
			res = outcome.Failed[T](err)
		}
		cell.Complete(res)
	})
	cell.Arm(req.Cancel)
	return w
}

func call[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (res outcome.Outcome[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = outcome.Failed[T](coro.NewPanicError(p))
		}
	}()
	v, err := fn(ctx)
	return outcome.From(v, err)
}

// Started reports whether a pool goroutine picked the function up.
func (w *Work[T]) Started() bool { return w.started.Load() }

// Close gives the work up. Queued work is cancelled; running work sees its
// context cancelled and its result is discarded.
func (w *Work[T]) Close() { w.cell.Abandon() }

func (w *Work[T]) Ready() bool                { return w.cell.Ready() }
func (w *Work[T]) Suspend(h coro.Handle)      { w.cell.Suspend(h) }
func (w *Work[T]) Resume() outcome.Outcome[T] { return w.cell.Resume() }
func (w *Work[T]) Detach(h coro.Handle)       { w.cell.Detach(h) }
