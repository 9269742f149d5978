// Package locate resolves a tool-location strategy to a concrete executable
// path for the external profiler. Resolution is pure: no processes are
// spawned and nothing is written.
package locate

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nhpip/ezprofiler-deps/internal/config"
)

var (
	// ErrToolNotFound means no executable could be resolved for the
	// configured strategy. Non-retryable; fix the configuration.
	ErrToolNotFound = errors.New("profiler tool not found")

	// ErrDependencyNotDeclared means the dependency cache manifest has no
	// entry for the profiler. Non-retryable.
	ErrDependencyNotDeclared = errors.New("profiler not declared in dependency cache")
)

// DepsDirEnv overrides the dependency cache location when set.
const DepsDirEnv = "EZPROFILER_DEPS_DIR"

const manifestName = "manifest.yaml"

// manifest is the dependency cache index: one entry per installed dependency.
type manifest struct {
	Deps []manifestEntry `yaml:"deps"`
}

type manifestEntry struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

// Resolve produces the absolute executable path for the given tool location.
func Resolve(loc config.ToolLocation) (string, error) {
	switch loc.Source {
	case "", config.ToolSystem:
		return fromSystemPath()
	case config.ToolBundled:
		return fromDependencyCache(depsDir())
	case config.ToolExplicit:
		// Caller's responsibility that the path is valid.
		return loc.Path, nil
	default:
		return "", fmt.Errorf("unknown tool source %q: %w", loc.Source, ErrToolNotFound)
	}
}

func fromSystemPath() (string, error) {
	path, err := exec.LookPath(config.ToolName)
	if err != nil {
		return "", fmt.Errorf("%s not on executable search path: %w", config.ToolName, ErrToolNotFound)
	}
	return path, nil
}

// fromDependencyCache reads the cache manifest and appends the canonical
// binary name to the declared installation directory.
func fromDependencyCache(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName)) //nolint:gosec // G304: manifest lives under the configured cache dir.
	if err != nil {
		return "", fmt.Errorf("read dependency manifest: %w: %w", err, ErrDependencyNotDeclared)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parse dependency manifest: %w", err)
	}

	for _, e := range m.Deps {
		if e.Name == config.ToolName {
			return filepath.Join(e.Dir, config.ToolName), nil
		}
	}
	return "", ErrDependencyNotDeclared
}

func depsDir() string {
	if dir := os.Getenv(DepsDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ezprofiler/deps"
	}
	return filepath.Join(home, ".ezprofiler", "deps")
}
