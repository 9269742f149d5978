// Package session owns the lifecycle of one launched profiler process: the
// launcher spawns and supervises it, the registry tracks the single active
// session, and the coordinator performs the retry-bounded shutdown handshake.
//
// All profiling state (labels, capture buffers) stays in the external tool;
// this package only relays control messages and holds the process handle.
package session

import (
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/nhpip/ezprofiler-deps/internal/control"
)

// Session is the runtime record for one launched profiler process, from
// confirmed launch to confirmed or attempted shutdown.
type Session struct {
	// ID uniquely identifies this session for logging.
	ID string

	// Node is the resolved remote endpoint identity.
	Node string

	// ExecutablePath is the resolved profiler binary.
	ExecutablePath string

	// MarkerPath is the readiness marker artifact. Generated by the
	// manager, created by the tool once initialized, and removed by the
	// tool during its own shutdown.
	MarkerPath string

	// StartedAt is when readiness was confirmed.
	StartedAt time.Time

	pid    int
	ctl    *control.Client
	waitCh chan struct{}
}

// PID returns the child process ID.
func (s *Session) PID() int {
	return s.pid
}

// Control returns the session's control channel.
func (s *Session) Control() *control.Client {
	return s.ctl
}

// Exited is closed once the child process has been reaped.
func (s *Session) Exited() <-chan struct{} {
	return s.waitCh
}

// tornDown reports whether the remote side has observably shut down.
// Teardown is asynchronous relative to the stop message, so three proxies
// are checked: the child has been reaped, the control peer disconnected, or
// the PID is gone.
func (s *Session) tornDown() bool {
	select {
	case <-s.waitCh:
		return true
	default:
	}

	if s.ctl != nil {
		select {
		case <-s.ctl.Done():
			return true
		default:
		}
	}

	if s.pid > 0 {
		exists, err := process.PidExists(int32(s.pid)) //nolint:gosec // G115: PIDs fit in int32.
		if err == nil && !exists {
			return true
		}
	}
	return false
}
