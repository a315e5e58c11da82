package outcome

import (
	"errors"
	"fmt"
)

var (
	// ErrPropagated marks an error read through the value side of an Outcome.
	ErrPropagated = errors.New("outcome: error propagated")
	// ErrEmpty is returned when reading an Outcome that was never written.
	ErrEmpty = errors.New("outcome: empty")
	// ErrNilError replaces a nil error passed to SetError.
	ErrNilError = errors.New("outcome: nil error stored")
	// ErrCanceled reports a request that was cancelled before its completion ran.
	ErrCanceled = errors.New("operation canceled")
)

// PropagatedError wraps the error side of an Outcome when the value side was requested.
// It matches both ErrPropagated and the original error with errors.Is.
type PropagatedError struct {
	Err error
}

func (e *PropagatedError) Error() string {
	if e == nil || e.Err == nil {
		return ErrPropagated.Error()
	}
	return fmt.Sprintf("%s: %v", ErrPropagated.Error(), e.Err)
}

// Unwrap exposes the sentinel and the cause.
func (e *PropagatedError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrPropagated}
	}
	return []error{ErrPropagated, e.Err}
}

// Cause returns the original error, stripping any propagation wrappers.
func Cause(err error) error {
	for {
		var pe *PropagatedError
		if !errors.As(err, &pe) || pe.Err == nil {
			return err
		}
		err = pe.Err
	}
}
