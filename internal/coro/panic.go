package coro

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicError carries a panic recovered from a task body, with the stack at the
// point of the panic.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError captures v with the current stack.
func NewPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// ErrorWithStack renders the panic value followed by its stack.
func (p *PanicError) ErrorWithStack() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value when it is an error.
func (p *PanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}

// DebugString walks the error chain, expanding every PanicError with its stack.
func DebugString(err error) string {
	var sb strings.Builder
	seen := make(map[error]bool)

	var walk func(error)
	walk = func(e error) {
		if e == nil || seen[e] {
			return
		}
		seen[e] = true
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		if p, ok := e.(*PanicError); ok {
			sb.WriteString(p.ErrorWithStack())
		} else {
			sb.WriteString(e.Error())
		}
		if multi, ok := e.(interface{ Unwrap() []error }); ok {
			for _, ue := range multi.Unwrap() {
				walk(ue)
			}
		} else if ue := errors.Unwrap(e); ue != nil {
			walk(ue)
		}
	}

	walk(err)
	return sb.String()
}
