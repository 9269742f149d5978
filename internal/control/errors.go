package control

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means a bounded wait elapsed with no reply or
	// notification. Recovered locally; never raised.
	ErrTimeout = errors.New("control operation timed out")

	// ErrClosed means the control channel is no longer connected.
	ErrClosed = errors.New("control channel closed")
)

// NoResultsError is returned by a result fetch when no capture has occurred.
// It carries whatever diagnostic the remote side supplied.
type NoResultsError struct {
	Diagnostic string
}

func (e *NoResultsError) Error() string {
	if e.Diagnostic == "" {
		return "no profiling results captured"
	}
	return fmt.Sprintf("no profiling results captured: %s", e.Diagnostic)
}
