package outcome

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestOutcomeRoundTrip(t *testing.T) {
	var o Outcome[int]
	if o.IsSet() {
		t.Fatalf("zero outcome should be empty")
	}
	if _, err := o.Get(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	o.Set(42)
	v, err := o.Get()
	if err != nil || v != 42 {
		t.Fatalf("Get() = %d, %v; want 42, nil", v, err)
	}
	if !o.Ok() || o.Err() != nil {
		t.Fatalf("value side should be live")
	}
}

func TestOutcomeErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	var o Outcome[string]
	o.Set("stale")
	o.SetError(boom)

	v, err := o.Get()
	if v != "" {
		t.Fatalf("value side leaked: %q", v)
	}
	if !errors.Is(err, ErrPropagated) {
		t.Fatalf("expected ErrPropagated in chain, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error in chain, got %v", err)
	}
	if o.Err() != boom {
		t.Fatalf("Err() = %v, want boom", o.Err())
	}
	if Cause(err) != boom {
		t.Fatalf("Cause() = %v, want boom", Cause(err))
	}
}

func TestOutcomeReplaceSide(t *testing.T) {
	o := Failed[int](errors.New("first"))
	o.Set(7)
	if v, err := o.Get(); err != nil || v != 7 {
		t.Fatalf("Set after SetError: %d, %v", v, err)
	}
	o.SetError(nil)
	if !errors.Is(o.Err(), ErrNilError) {
		t.Fatalf("nil error should be replaced, got %v", o.Err())
	}
}

func TestOutcomeValuePanics(t *testing.T) {
	boom := errors.New("boom")
	defer func() {
		r := recover()
		pe, ok := r.(*PropagatedError)
		if !ok {
			t.Fatalf("expected *PropagatedError panic, got %#v", r)
		}
		if !errors.Is(pe, boom) {
			t.Fatalf("panic lost cause: %v", pe)
		}
	}()
	Failed[int](boom).Value()
}

func TestFrom(t *testing.T) {
	if o := From(3, nil); !o.Ok() {
		t.Fatalf("From(v, nil) should hold value")
	}
	if o := From(3, os.ErrClosed); o.Ok() || o.Err() != os.ErrClosed {
		t.Fatalf("From(v, err) should hold err")
	}
}

func TestStatus(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"refused", refused, -int(syscall.ECONNREFUSED)},
		{"canceled", fmt.Errorf("lookup: %w", ErrCanceled), -int(syscall.ECANCELED)},
		{"plain", errors.New("x"), -1},
		{"propagated", &PropagatedError{Err: refused}, -int(syscall.ECONNREFUSED)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.err); got != tc.want {
				t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
	if got := StatusOf(Of(1)); got != 0 {
		t.Fatalf("StatusOf(value) = %d", got)
	}
}
