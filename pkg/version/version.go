// Package version exposes the build identity stamped in by the linker.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at release time; the zero values identify a local build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GoVersion is the toolchain that produced the binary.
var GoVersion = runtime.Version()

// String renders the full build identity on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s)", Version, GitCommit, BuildDate, GoVersion)
}
