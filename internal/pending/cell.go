// Package pending implements the ownership protocol shared by every operation that
// is registered with the reactor and awaited by a task.
//
// A Cell is owned by the awaiting side until that side goes away while the request is
// still in flight. Abandon then tries to cancel the request; when it cannot, ownership
// moves to the reactor and the late completion releases the Cell. Whichever of the two
// runs last frees; the other is a no-op.
package pending

import (
	"fmt"

	"awaitrt/internal/coro"
	"awaitrt/internal/observ"
	"awaitrt/internal/trace"
)

// Env carries the tracer and counters a Cell reports into.
type Env struct {
	Tracer trace.Tracer
	Stats  *observ.Stats
}

// Cell is the shared state between one in-flight request and the task awaiting it.
// All methods run on the reactor goroutine.
type Cell[T any] struct {
	name    string
	env     Env
	state   State
	owner   Owner
	result  T
	waiter  coro.Handle
	cancel  func() bool
	release func(T)
}

// New creates an Idle cell.
func New[T any](env Env, name string) *Cell[T] {
	if env.Tracer == nil {
		env.Tracer = trace.Nop
	}
	if env.Stats == nil {
		env.Stats = &observ.Stats{}
	}
	return &Cell[T]{name: name, env: env}
}

// transition is the only place that changes state and owner.
func (c *Cell[T]) transition(ev event) effect {
	from := c.state
	eff := effNone

	switch {
	case ev == evArm && (from == Idle || from == Consumed):
		c.state = Armed
	case ev == evSettle && (from == Idle || from == Consumed):
		c.state = Ready
	case ev == evComplete && from == Armed:
		c.state = Ready
		eff = effResume
	case ev == evComplete && from == AbandonedPending:
		c.state, c.owner = Freed, OwnerFreed
		eff = effFree | effLate
	case ev == evComplete && (from == AbandonedCancelled || from == Freed):
		// the other path already released the cell
	case ev == evTake && from == Ready:
		c.state = Consumed
	case ev == evAbandon && from == Armed:
		if c.cancel != nil && c.cancel() {
			c.state, c.owner = AbandonedCancelled, OwnerFreed
			eff = effFree | effCancel
		} else {
			c.state, c.owner = AbandonedPending, OwnedByReactor
		}
	case ev == evAbandon && (from == Idle || from == Ready || from == Consumed):
		c.state, c.owner = Freed, OwnerFreed
		eff = effFree
	case ev == evAbandon:
		// already abandoned or freed
	default:
		panic(fmt.Sprintf("pending: %s: %s in state %s", c.name, ev, from))
	}

	if c.state != from {
		trace.Point(c.env.Tracer, trace.ScopeOp, "op:"+c.name, 0, fmt.Sprintf("%s -> %s", from, c.state))
	}
	return eff
}

// Arm records that the request was accepted and will complete through Complete.
// cancel, when non-nil, is tried on abandonment and reports whether the request
// was stopped before its completion could run.
func (c *Cell[T]) Arm(cancel func() bool) {
	c.cancel = cancel
	c.transition(evArm)
	c.env.Stats.OpsArmed.Add(1)
}

// Settle stores a result reported synchronously by the registration itself, so
// awaiting the cell never suspends.
func (c *Cell[T]) Settle(v T) {
	c.transition(evSettle)
	c.result = v
}

// Complete is the reactor-side completion. On a cell whose awaiting side is gone
// it releases the cell; on a released one it does nothing.
func (c *Cell[T]) Complete(v T) {
	eff := c.transition(evComplete)
	switch {
	case eff&effLate != 0:
		c.env.Stats.OpsLate.Add(1)
		c.result = v
		c.free()
	case eff&effResume != 0:
		c.result = v
		c.cancel = nil
		if w := c.waiter; w != nil {
			c.waiter = nil
			w.Resume()
		}
	}
}

// Abandon is the awaiting side letting go. It is safe to call in any state.
func (c *Cell[T]) Abandon() {
	c.waiter = nil
	inFlight := c.state == Armed
	eff := c.transition(evAbandon)
	if inFlight {
		c.env.Stats.OpsAbandoned.Add(1)
	}
	if eff&effCancel != 0 {
		c.env.Stats.OpsCancelled.Add(1)
	}
	if eff&effFree != 0 {
		c.free()
	}
}

// OnRelease sets fn to run exactly once when the cell is freed. fn receives the
// result slot, which holds a late completion's value when one arrived.
func (c *Cell[T]) OnRelease(fn func(T)) { c.release = fn }

func (c *Cell[T]) free() {
	c.cancel = nil
	fn := c.release
	c.release = nil
	v := c.result
	var zero T
	c.result = zero
	if fn != nil {
		fn(v)
	}
}

// State returns the lifecycle state.
func (c *Cell[T]) State() State { return c.state }

// Owner returns the side responsible for releasing the cell.
func (c *Cell[T]) Owner() Owner { return c.owner }

// Released reports whether the cell was freed by either path.
func (c *Cell[T]) Released() bool { return c.owner == OwnerFreed }

// Peek returns the result without consuming it.
func (c *Cell[T]) Peek() (T, bool) {
	return c.result, c.state == Ready
}

// Ready reports whether a result is waiting to be taken.
func (c *Cell[T]) Ready() bool { return c.state == Ready }

// Suspend records h as the task to resume on completion.
func (c *Cell[T]) Suspend(h coro.Handle) { c.waiter = h }

// Resume takes the result.
func (c *Cell[T]) Resume() T {
	c.transition(evTake)
	return c.result
}

// Detach is called when the awaiting task is destroyed: that task owned the cell,
// so it is abandoned.
func (c *Cell[T]) Detach(h coro.Handle) {
	if c.waiter == h {
		c.Abandon()
	}
}
