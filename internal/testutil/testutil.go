// Package testutil provides shared helpers for ezprofiler-deps tests.
package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a test logger that discards output.
// Use NewTestLoggerWithOutput to log to t.Log().
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(io.Discard).With().Timestamp().Logger()
}

// NewTestLoggerWithOutput creates a test logger that logs to t.Log().
func NewTestLoggerWithOutput(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(&testLogWriter{t: t}).With().Timestamp().Logger()
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(p))
	return len(p), nil
}

// NewTestContext creates a test context with a 30-second timeout.
func NewTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteFakeTool writes a stand-in profiler executable that signals
// readiness through the injected marker path and then idles. The launcher
// always passes "--inline <marker>" first, so the marker is $2.
func WriteFakeTool(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ezprofiler")
	script := "#!/bin/sh\n" +
		"touch \"$2\"\n" +
		"sleep 60\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil { //nolint:gosec // G306: test helper must be executable.
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}
