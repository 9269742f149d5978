package session

import "sync"

// State is the registry's lifecycle position. Transitions are
// Idle -> Starting -> Ready -> Stopping -> Idle, with failed launches
// falling back from Starting to Idle and failed stops from Stopping
// back to Ready.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateReady
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Registry holds at most one active session behind an explicit state
// machine. It is the only process-wide mutable resource: a launch registers
// the session here so that a later, independently-invoked stop can find and
// terminate it from a different call context.
type Registry struct {
	mu      sync.Mutex
	state   State
	session *Session
}

// NewRegistry creates an empty registry in the Idle state.
func NewRegistry() *Registry {
	return &Registry{}
}

// defaultRegistry backs the process-wide single-session convenience API.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// State returns the current lifecycle state.
func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns the registered session, or ErrNotRunning when no session
// is in the Ready state.
func (r *Registry) Current() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady || r.session == nil {
		return nil, ErrNotRunning
	}
	return r.session, nil
}

// reserve claims the registry for a launch in progress.
func (r *Registry) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return ErrAlreadyRunning
	}
	r.state = StateStarting
	return nil
}

// activate publishes a successfully launched session.
func (r *Registry) activate(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateReady
	r.session = s
}

// release returns the registry to Idle, dropping any session.
func (r *Registry) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateIdle
	r.session = nil
}

// beginStop claims the registered session for shutdown.
func (r *Registry) beginStop() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady || r.session == nil {
		return nil, ErrNotRunning
	}
	r.state = StateStopping
	return r.session, nil
}

// abortStop reverts a failed shutdown so the caller can retry.
func (r *Registry) abortStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateStopping {
		r.state = StateReady
	}
}
