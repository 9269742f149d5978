package session

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/nhpip/ezprofiler-deps/internal/retry"
)

// markerNameLen is the length of the random marker file name. Random names
// avoid collisions between concurrent or sequential sessions sharing a temp
// directory.
const markerNameLen = 10

// newMarkerPath generates a fresh marker path under the shared temp
// directory: ten lowercase alphabetic characters.
func newMarkerPath() string {
	name := make([]byte, markerNameLen)
	for i := range name {
		name[i] = byte('a' + rand.Intn(26))
	}
	return filepath.Join(os.TempDir(), string(name))
}

// awaitReady polls for existence of the marker artifact at fixed intervals.
// The tool creates the file once it has fully initialized; only existence is
// observed, never content, which decouples readiness detection from the
// tool's startup banner format.
func awaitReady(ctx context.Context, markerPath string, maxAttempts int, interval time.Duration) bool {
	return retry.Poll(ctx, maxAttempts, interval, func() bool {
		_, err := os.Stat(markerPath)
		return err == nil
	})
}
