// Package outcome provides the value-or-error container used as the result slot of
// every suspendable operation and every task.
package outcome

type side uint8

const (
	sideEmpty side = iota
	sideValue
	sideError
)

// Void is the value type of outcomes that only carry success or failure.
type Void = struct{}

// Outcome holds either a value or an error. The zero Outcome is empty.
//
// Exactly one side is live once written; writing replaces whatever was there.
type Outcome[T any] struct {
	val  T
	err  error
	side side
}

// Of returns an Outcome holding v.
func Of[T any](v T) Outcome[T] {
	return Outcome[T]{val: v, side: sideValue}
}

// Failed returns an Outcome holding err.
func Failed[T any](err error) Outcome[T] {
	var o Outcome[T]
	o.SetError(err)
	return o
}

// From builds an Outcome from a conventional (value, error) pair.
func From[T any](v T, err error) Outcome[T] {
	if err != nil {
		return Failed[T](err)
	}
	return Of(v)
}

// Set makes the value side live.
func (o *Outcome[T]) Set(v T) {
	var zero error
	o.val, o.err, o.side = v, zero, sideValue
}

// SetError makes the error side live.
func (o *Outcome[T]) SetError(err error) {
	if err == nil {
		err = ErrNilError
	}
	var zero T
	o.val, o.err, o.side = zero, err, sideError
}

// Get returns the value, or a *PropagatedError when the error side is live.
func (o Outcome[T]) Get() (T, error) {
	switch o.side {
	case sideValue:
		return o.val, nil
	case sideError:
		var zero T
		return zero, &PropagatedError{Err: o.err}
	default:
		var zero T
		return zero, ErrEmpty
	}
}

// Value returns the value side and panics with a *PropagatedError otherwise.
// Inside a task body the panic is caught and becomes the task's own error.
func (o Outcome[T]) Value() T {
	v, err := o.Get()
	if err != nil {
		if pe, ok := err.(*PropagatedError); ok {
			panic(pe)
		}
		panic(&PropagatedError{Err: err})
	}
	return v
}

// Err returns the live error, nil when the value side is live, ErrEmpty when unset.
func (o Outcome[T]) Err() error {
	switch o.side {
	case sideError:
		return o.err
	case sideValue:
		return nil
	default:
		return ErrEmpty
	}
}

// Ok reports whether the value side is live.
func (o Outcome[T]) Ok() bool { return o.side == sideValue }

// IsSet reports whether either side was written.
func (o Outcome[T]) IsSet() bool { return o.side != sideEmpty }

// Ready reports true: an Outcome is complete by the time anyone holds it.
// Awaiting one therefore never suspends; an error side ends the awaiting task.
func (o Outcome[T]) Ready() bool { return true }

func (o Outcome[T]) Suspend(interface{ Resume() }) {}

func (o Outcome[T]) Resume() T { return o.Value() }
