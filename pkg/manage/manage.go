// Package manage is the public API for driving an external ezprofiler
// process: launch it with a derived configuration, confirm readiness, toggle
// profiling on and off, retrieve results by blocking or by notification, and
// shut the tool down cleanly. Callers never touch process handles, liveness
// checks, or protocol retries directly.
//
// A Manager is the single-session convenience surface. It wraps the
// process-wide session registry, so two Managers sharing the default
// registry see the same session; use WithRegistry to isolate. For callers
// that prefer an explicit session handle, Manager.Session exposes the
// registered one.
package manage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhpip/ezprofiler-deps/internal/config"
	"github.com/nhpip/ezprofiler-deps/internal/control"
	"github.com/nhpip/ezprofiler-deps/internal/locate"
	"github.com/nhpip/ezprofiler-deps/internal/logging"
	"github.com/nhpip/ezprofiler-deps/internal/session"
)

// Re-exported configuration types. All fields default; see SessionConfig.
type (
	SessionConfig = config.SessionConfig
	Backend       = config.Backend
	ToolLocation  = config.ToolLocation
)

const (
	BackendSampling = config.BackendSampling
	BackendTracing  = config.BackendTracing
	BackendCounting = config.BackendCounting
)

// Tool location constructors.
var (
	SystemTool   = config.SystemTool
	BundledTool  = config.BundledTool
	ExplicitTool = config.ExplicitTool
)

// Re-exported control-channel types.
type (
	LabelSpec      = control.LabelSpec
	TransitionMode = control.TransitionMode
	ResultEntry    = control.ResultEntry
	ResultKind     = control.ResultKind
	Recipient      = control.Recipient
	NoResultsError = control.NoResultsError
)

const (
	ModeOneOf      = control.ModeOneOf
	ModeSequential = control.ModeSequential

	KindNormal      = control.KindNormal
	KindApproximate = control.KindApproximate

	// DefaultWaitTimeout bounds WaitForResults when no timeout is given.
	DefaultWaitTimeout = control.DefaultWaitTimeout
)

// Label spec constructors.
var (
	Label    = control.Label
	AnyLabel = control.AnyLabel
	LabelSet = control.LabelSet
)

// Error taxonomy. Every public operation returns one of these (or a wrapped
// cause) as a value; nothing panics across this API.
var (
	ErrToolNotFound          = locate.ErrToolNotFound
	ErrDependencyNotDeclared = locate.ErrDependencyNotDeclared
	ErrAlreadyRunning        = session.ErrAlreadyRunning
	ErrNotRunning            = session.ErrNotRunning
	ErrNotStarted            = session.ErrNotStarted
	ErrStartTimeout          = session.ErrStartTimeout
	ErrNotStopped            = session.ErrNotStopped
	ErrTimeout               = control.ErrTimeout
)

// LaunchError reports a spawn-time fault with its cause.
type LaunchError = session.LaunchError

// Manager drives one profiling session at a time.
type Manager struct {
	cfg      SessionConfig
	logger   zerolog.Logger
	registry *session.Registry
	launcher *session.Launcher
	stopper  *session.Coordinator
	out      io.Writer
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger replaces the default logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithOutput redirects the display stream used by GetProfilingResults.
// Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) { m.out = w }
}

// WithRegistry attaches the manager to a private registry instead of the
// process-wide one.
func WithRegistry(r *session.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// New creates a Manager for the given session configuration.
func New(cfg SessionConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   logging.NewWithComponent(logging.DefaultConfig(), "manage"),
		registry: session.Default(),
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.launcher = session.NewLauncher(m.registry, m.logger)
	m.stopper = session.NewCoordinator(m.registry, m.logger)
	return m
}

// Start launches the external profiler and blocks until it is confirmed
// ready or the 5-second startup timeout elapses. Exactly one session may be
// active; a second Start fails with ErrAlreadyRunning.
func (m *Manager) Start(ctx context.Context) error {
	_, err := m.launcher.Launch(ctx, m.cfg)
	return err
}

// Stop performs the shutdown handshake against the registered session.
// Fails fast with ErrNotRunning when there is none, and reports
// ErrNotStopped when teardown was not observed within the retry budget.
func (m *Manager) Stop(ctx context.Context) error {
	return m.stopper.Stop(ctx)
}

// Session returns the registered session handle, or ErrNotRunning.
func (m *Manager) Session() (*session.Session, error) {
	return m.registry.Current()
}

// EnableProfiling arms the profiler for the given labels. Fire-and-forget:
// success means the request was sent, not that a match will ever occur.
// Re-enabling discards any pending request and re-arms.
func (m *Manager) EnableProfiling(spec LabelSpec) error {
	sess, err := m.registry.Current()
	if err != nil {
		return err
	}
	return sess.Control().EnableProfiling(spec)
}

// DisableProfiling disarms profiling and clears any pending result buffer.
func (m *Manager) DisableProfiling(ctx context.Context) error {
	sess, err := m.registry.Current()
	if err != nil {
		return err
	}
	return sess.Control().DisableProfiling(ctx)
}

// AllowLabelTransition toggles sequential-transition mode remotely.
func (m *Manager) AllowLabelTransition(ctx context.Context, allow bool) error {
	sess, err := m.registry.Current()
	if err != nil {
		return err
	}
	return sess.Control().AllowLabelTransition(ctx, allow)
}

// WaitForResults blocks until a results notification arrives and returns
// the delivered set. A non-positive timeout means DefaultWaitTimeout;
// ErrTimeout is returned when the bound elapses first. There is no
// cancellation primitive beyond the timeout and ctx.
func (m *Manager) WaitForResults(ctx context.Context, timeout time.Duration) ([]ResultEntry, error) {
	sess, err := m.registry.Current()
	if err != nil {
		return nil, err
	}
	return sess.Control().WaitForResults(ctx, timeout)
}

// WaitForResultsNonBlocking registers recipient for asynchronous delivery
// of the results-ready, results-available and timeout notifications, then
// returns immediately.
func (m *Manager) WaitForResultsNonBlocking(recipient Recipient) error {
	sess, err := m.registry.Current()
	if err != nil {
		return err
	}
	return sess.Control().RedirectResults(recipient)
}

// GetProfilingResults actively fetches the latest result set. With display
// set, each entry's formatted text is additionally written to the manager's
// output stream; the returned set is identical either way.
func (m *Manager) GetProfilingResults(ctx context.Context, display bool) ([]ResultEntry, error) {
	sess, err := m.registry.Current()
	if err != nil {
		return nil, err
	}

	entries, err := sess.Control().GetResults(ctx)
	if err != nil {
		return nil, err
	}

	if display {
		for _, e := range entries {
			fmt.Fprint(m.out, e.Data)
			if len(e.Data) > 0 && e.Data[len(e.Data)-1] != '\n' {
				fmt.Fprintln(m.out)
			}
		}
	}
	return entries, nil
}
