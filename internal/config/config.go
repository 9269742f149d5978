// Package config defines the session configuration record and its mapping to
// the external profiler's command line.
//
// Every field has a usable zero value. Only fields the caller explicitly set
// are forwarded as process arguments, so an omitted field never overrides the
// external tool's own default.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// ToolName is the canonical executable name of the external profiler.
	ToolName = "ezprofiler"

	// ControlPath is the well-known control endpoint path served by the
	// external profiler on its target node.
	ControlPath = "/ezprofiler"

	// DefaultNode is the endpoint used when Node is unset. The profiler
	// applies the same default on its side, so the field is not forwarded.
	DefaultNode = "localhost:9801"
)

// Backend selects which profiler engine the external tool uses.
type Backend string

const (
	BackendSampling Backend = "sampling"
	BackendTracing  Backend = "tracing"
	BackendCounting Backend = "counting"
)

// Valid reports whether the backend is one of the known engines.
func (b Backend) Valid() bool {
	switch b {
	case BackendSampling, BackendTracing, BackendCounting:
		return true
	}
	return false
}

// ToolSource selects the strategy for locating the profiler executable.
type ToolSource string

const (
	// ToolSystem searches the executable search path for ToolName.
	ToolSystem ToolSource = "system"
	// ToolBundled consults the local dependency cache manifest.
	ToolBundled ToolSource = "deps"
	// ToolExplicit uses the configured path unchanged.
	ToolExplicit ToolSource = "path"
)

// ToolLocation describes where to find the profiler executable.
// The zero value means ToolSystem.
type ToolLocation struct {
	Source ToolSource `yaml:"source"`
	Path   string     `yaml:"path,omitempty"`
}

// SystemTool locates the profiler on the executable search path.
func SystemTool() ToolLocation { return ToolLocation{Source: ToolSystem} }

// BundledTool locates the profiler through the dependency cache manifest.
func BundledTool() ToolLocation { return ToolLocation{Source: ToolBundled} }

// ExplicitTool uses the given executable path as-is.
func ExplicitTool(path string) ToolLocation {
	return ToolLocation{Source: ToolExplicit, Path: path}
}

// SessionConfig describes how to start one profiling session.
//
// The zero value is valid and forwards nothing to the external tool beyond
// the injected readiness marker flag.
type SessionConfig struct {
	// Node is the endpoint the external profiler attaches to and serves
	// its control channel on. Empty means DefaultNode (self).
	Node string `yaml:"node,omitempty"`

	// Token is the opaque shared secret for the control link.
	Token string `yaml:"token,omitempty"`

	// Match restricts which call sites are eligible for profiling.
	// Empty means the tool's own match-all default.
	Match string `yaml:"match,omitempty"`

	// Directory is where the tool writes result artifacts.
	// Empty means the tool's own temp-directory default.
	Directory string `yaml:"directory,omitempty"`

	// Profiler selects the backend engine. Empty means the tool default.
	Profiler Backend `yaml:"profiler,omitempty"`

	// Sort orders result entries by the given key.
	Sort string `yaml:"sort,omitempty"`

	// StopOnFirst stops profiling after the first match.
	StopOnFirst bool `yaml:"stop_on_first,omitempty"`

	// LabelTransition enables sequential label-transition mode at startup.
	LabelTransition bool `yaml:"label_transition,omitempty"`

	// Tool selects the executable location strategy.
	Tool ToolLocation `yaml:"tool,omitempty"`
}

// EffectiveNode returns Node, or DefaultNode when unset.
func (c SessionConfig) EffectiveNode() string {
	if c.Node == "" {
		return DefaultNode
	}
	return c.Node
}

// ControlURL returns the websocket URL of the session's control endpoint.
func (c SessionConfig) ControlURL() string {
	return "ws://" + c.EffectiveNode() + ControlPath
}

// Validate checks enum fields and the tool location for consistency.
func (c SessionConfig) Validate() error {
	if c.Profiler != "" && !c.Profiler.Valid() {
		return fmt.Errorf("unknown profiler backend %q", c.Profiler)
	}
	switch c.Tool.Source {
	case "", ToolSystem, ToolBundled:
		if c.Tool.Path != "" {
			return fmt.Errorf("tool path is only valid with source %q", ToolExplicit)
		}
	case ToolExplicit:
		if c.Tool.Path == "" {
			return fmt.Errorf("tool source %q requires a path", ToolExplicit)
		}
	default:
		return fmt.Errorf("unknown tool source %q", c.Tool.Source)
	}
	return nil
}

// BuildArgs maps the configuration to the external tool's argument vector.
//
// Each explicitly-set non-boolean field becomes a "--name value" pair and
// each true boolean becomes a bare "--name" switch; false or unset fields are
// omitted entirely. The readiness marker flag is always injected. The
// executable path itself is not part of the returned slice.
func BuildArgs(c SessionConfig, markerPath string) []string {
	args := []string{"--inline", markerPath}
	if c.Node != "" {
		args = append(args, "--node", c.Node)
	}
	if c.Token != "" {
		args = append(args, "--token", c.Token)
	}
	if c.Match != "" {
		args = append(args, "--match", c.Match)
	}
	if c.Directory != "" {
		args = append(args, "--directory", c.Directory)
	}
	if c.Profiler != "" {
		args = append(args, "--profiler", string(c.Profiler))
	}
	if c.Sort != "" {
		args = append(args, "--sort", c.Sort)
	}
	if c.StopOnFirst {
		args = append(args, "--stop-on-first")
	}
	if c.LabelTransition {
		args = append(args, "--enable-label-transition")
	}
	return args
}

// LoadFile reads a YAML session profile and applies environment overrides.
func LoadFile(path string) (SessionConfig, error) {
	var cfg SessionConfig

	data, err := os.ReadFile(path) //nolint:gosec // G304: caller-supplied profile path.
	if err != nil {
		return cfg, fmt.Errorf("read session profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse session profile %s: %w", path, err)
	}

	ApplyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid session profile %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays EZPROFILER_* environment variables onto the config.
func ApplyEnv(cfg *SessionConfig) {
	if v := os.Getenv("EZPROFILER_NODE"); v != "" {
		cfg.Node = v
	}
	if v := os.Getenv("EZPROFILER_TOKEN"); v != "" {
		cfg.Token = v
	}
}
