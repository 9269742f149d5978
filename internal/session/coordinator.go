package session

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	ezerrors "github.com/nhpip/ezprofiler-deps/internal/errors"
	"github.com/nhpip/ezprofiler-deps/internal/retry"
)

const (
	stopAttempts = 3
	stopInterval = 1 * time.Second
)

// Coordinator performs the idempotent, retry-bounded shutdown handshake.
type Coordinator struct {
	registry *Registry
	logger   zerolog.Logger

	attempts int
	interval time.Duration
}

// NewCoordinator creates a shutdown coordinator for registry.
func NewCoordinator(registry *Registry, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		logger:   logger.With().Str("component", "shutdown").Logger(),
		attempts: stopAttempts,
		interval: stopInterval,
	}
}

// Stop sends the stop control message to the registered session and polls
// for observable teardown. There is no synchronous acknowledgement of full
// shutdown, so teardown is observed rather than confirmed.
//
// Returns ErrNotRunning immediately when no session is registered, and
// ErrNotStopped when the retry budget elapses first; the session stays
// registered in that case so the caller may retry.
func (c *Coordinator) Stop(ctx context.Context) error {
	sess, err := c.registry.beginStop()
	if err != nil {
		return err
	}

	if err := sess.Control().SendStop(); err != nil {
		// The peer may already be gone; teardown is still polled below.
		c.logger.Debug().Err(err).Str("session_id", sess.ID).Msg("stop message not delivered")
	}

	if !retry.Poll(ctx, c.attempts, c.interval, sess.tornDown) {
		c.registry.abortStop()
		return ErrNotStopped
	}

	ezerrors.DeferClose(c.logger, sess.Control(), "closing control channel")

	// The tool removes its own marker on the way down; sweep it in case
	// teardown skipped that step.
	ezerrors.DeferRemove(c.logger, func() error {
		return os.Remove(sess.MarkerPath)
	}, "removing readiness marker")

	c.registry.release()

	c.logger.Info().
		Str("session_id", sess.ID).
		Int("pid", sess.PID()).
		Msg("profiling session stopped")
	return nil
}
