//go:build !unix

package aio

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

// ParseSignal accepts INT and TERM, with or without the SIG prefix.
func ParseSignal(name string) (os.Signal, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "SIG") {
	case "INT", "2":
		return os.Interrupt, nil
	case "TERM", "15":
		return syscall.SIGTERM, nil
	}
	return nil, fmt.Errorf("signal %q: %w", name, ErrUnknownSignal)
}

// SignalName returns sig's String form.
func SignalName(sig os.Signal) string { return sig.String() }
