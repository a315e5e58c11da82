package outcome

import (
	"errors"
	"syscall"
)

// Status maps an operation error to a native-style status code: 0 for success,
// the negated errno when the chain carries one, -ECANCELED for cancellation and -1 otherwise.
func Status(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrCanceled) {
		return -int(syscall.ECANCELED)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return -int(errno)
	}
	return -1
}

// StatusOf reports the status of an outcome's error side, 0 for a value.
func StatusOf[T any](o Outcome[T]) int {
	if o.side != sideError {
		return 0
	}
	return Status(o.err)
}
