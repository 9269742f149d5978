package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning means a session is already registered. Duplicate
	// launches are rejected rather than silently replacing the first.
	ErrAlreadyRunning = errors.New("a profiling session is already registered")

	// ErrNotRunning means a control or stop operation was attempted with
	// no registered session. Fails fast; no retry needed.
	ErrNotRunning = errors.New("no profiling session is registered")

	// ErrNotStarted means the readiness probe exhausted its retry budget.
	// The child process may have been running but was not usable.
	ErrNotStarted = errors.New("profiler process did not become ready")

	// ErrStartTimeout means no readiness report arrived within the startup
	// timeout. Distinct from ErrNotStarted: the probe never reported back.
	ErrStartTimeout = errors.New("timed out waiting for profiler startup")

	// ErrNotStopped means the stop message was sent but teardown was not
	// observed within the retry budget. The caller may retry Stop.
	ErrNotStopped = errors.New("profiler teardown not observed within retry budget")
)

// LaunchError reports a spawn-time fault. The underlying system fault is
// carried as the cause; it is caught inside the launch worker and never
// propagates as a panic.
type LaunchError struct {
	Cause error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching profiler: %v", e.Cause)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}
