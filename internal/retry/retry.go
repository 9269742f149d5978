// Package retry provides bounded-retry primitives for coordinating with the
// external profiler process.
//
// Two shapes are offered. Do runs a fallible function with exponential
// backoff and is meant for transient control-channel faults. Poll repeatedly
// evaluates a boolean predicate at a fixed interval and is the building block
// for readiness and teardown detection, where the observed condition is a
// side effect of another process and there is no error to inspect.
//
// All waiting respects context cancellation: if the context is canceled
// during a sleep, the loop exits immediately.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config defines the behavior of Do.
//
// The zero value is not usable; MaxRetries and InitialBackoff must be set.
type Config struct {
	// MaxRetries is the maximum number of attempts. Must be greater than 0.
	MaxRetries int

	// InitialBackoff is the base backoff duration. Attempt n waits
	// InitialBackoff * 2^(n-1) before running. Must be greater than 0.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Zero means no cap.
	MaxBackoff time.Duration
}

// ShouldRetryFunc reports whether an error should trigger another attempt.
// A nil ShouldRetryFunc retries every error.
type ShouldRetryFunc func(error) bool

// Do executes fn up to cfg.MaxRetries times with exponential backoff.
//
// If fn returns nil, Do returns immediately. If shouldRetry returns false
// for an error, Do returns that error without further attempts. If all
// attempts fail, the last error is returned wrapped with the attempt count.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffFor(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// Poll evaluates predicate up to maxAttempts times, sleeping interval after
// each failed check. It returns true as soon as the predicate holds, even on
// the first check, and false once the attempt budget is exhausted or the
// context is canceled. The worst-case duration is maxAttempts * interval.
func Poll(ctx context.Context, maxAttempts int, interval time.Duration, predicate func() bool) bool {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if predicate() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return false
}

func backoffFor(cfg Config, attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	backoff := time.Duration(multiplier * float64(cfg.InitialBackoff))
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	return backoff
}
