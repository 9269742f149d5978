package session

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhpip/ezprofiler-deps/internal/config"
	"github.com/nhpip/ezprofiler-deps/internal/control"
	"github.com/nhpip/ezprofiler-deps/internal/locate"
	"github.com/nhpip/ezprofiler-deps/internal/retry"
)

const (
	// DefaultStartTimeout bounds the rendezvous wait for a readiness
	// report during launch.
	DefaultStartTimeout = 5 * time.Second

	readinessAttempts = 10
	readinessInterval = 500 * time.Millisecond

	controlDialTimeout = 5 * time.Second
)

// Launcher spawns the external profiler and supervises its readiness probe.
type Launcher struct {
	registry *Registry
	logger   zerolog.Logger

	// resolve is the tool locator, replaceable in tests.
	resolve func(config.ToolLocation) (string, error)

	startTimeout  time.Duration
	probeAttempts int
	probeInterval time.Duration
}

// NewLauncher creates a launcher that registers sessions in registry.
func NewLauncher(registry *Registry, logger zerolog.Logger) *Launcher {
	return &Launcher{
		registry:      registry,
		logger:        logger.With().Str("component", "launcher").Logger(),
		resolve:       locate.Resolve,
		startTimeout:  DefaultStartTimeout,
		probeAttempts: readinessAttempts,
		probeInterval: readinessInterval,
	}
}

// Launch resolves the tool, spawns it with an argument vector derived from
// the configuration, and blocks until the readiness probe reports or the
// startup timeout elapses.
//
// A launch failure of any kind leaves nothing registered: the registry
// returns to Idle and the child, if spawned, is killed. On success the
// session is registered so an independently-invoked Stop can find it.
func (l *Launcher) Launch(ctx context.Context, cfg config.SessionConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := l.registry.reserve(); err != nil {
		return nil, err
	}

	sess, err := l.launch(ctx, cfg)
	if err != nil {
		l.registry.release()
		return nil, err
	}

	l.registry.activate(sess)
	return sess, nil
}

func (l *Launcher) launch(ctx context.Context, cfg config.SessionConfig) (*Session, error) {
	path, err := l.resolve(cfg.Tool)
	if err != nil {
		return nil, err
	}

	marker := newMarkerPath()
	args := config.BuildArgs(cfg, marker)

	sess := &Session{
		ID:             uuid.NewString(),
		Node:           cfg.EffectiveNode(),
		ExecutablePath: path,
		MarkerPath:     marker,
		waitCh:         make(chan struct{}),
	}

	l.logger.Debug().
		Str("session_id", sess.ID).
		Str("path", path).
		Strs("args", args).
		Msg("spawning profiler")

	cmd := exec.Command(path, args...) //nolint:gosec // G204: path comes from the tool locator.
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Cause: err}
	}
	sess.pid = cmd.Process.Pid

	// Reap the child whenever it exits; Exited() doubles as the teardown
	// signal for the shutdown coordinator.
	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Debug().Err(err).Int("pid", sess.pid).Msg("profiler exited")
		}
		close(sess.waitCh)
	}()

	// The probe races the child's own startup; the rendezvous below blocks
	// on whichever reports first.
	probeCtx, cancelProbe := context.WithCancel(context.Background())
	defer cancelProbe()

	ready := make(chan bool, 1)
	go func() {
		ready <- awaitReady(probeCtx, marker, l.probeAttempts, l.probeInterval)
	}()

	startTimer := time.NewTimer(l.startTimeout)
	defer startTimer.Stop()

	select {
	case ok := <-ready:
		if !ok {
			l.reap(cmd, sess)
			return nil, ErrNotStarted
		}
	case <-startTimer.C:
		l.reap(cmd, sess)
		return nil, ErrStartTimeout
	case <-ctx.Done():
		l.reap(cmd, sess)
		return nil, ctx.Err()
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, controlDialTimeout)
	defer cancelDial()

	// The marker can appear a beat before the control endpoint is bound,
	// so the dial gets a short retry budget of its own.
	var ctl *control.Client
	err = retry.Do(dialCtx, retry.Config{MaxRetries: 3, InitialBackoff: 200 * time.Millisecond}, func() error {
		var dialErr error
		ctl, dialErr = control.Dial(dialCtx, cfg.ControlURL(), cfg.Token,
			l.logger.With().Str("session_id", sess.ID).Logger())
		return dialErr
	}, nil)
	if err != nil {
		l.reap(cmd, sess)
		return nil, &LaunchError{Cause: err}
	}

	sess.ctl = ctl
	sess.StartedAt = time.Now()

	l.logger.Info().
		Str("session_id", sess.ID).
		Str("node", sess.Node).
		Int("pid", sess.pid).
		Msg("profiling session ready")
	return sess, nil
}

// reap kills an unusable child so a failed launch never leaks a process.
func (l *Launcher) reap(cmd *exec.Cmd, sess *Session) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		l.logger.Warn().Err(err).Int("pid", sess.pid).Msg("failed to kill unready profiler")
	}
}
