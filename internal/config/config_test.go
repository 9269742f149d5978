package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs_DefaultsProduceOnlyMarkerFlag(t *testing.T) {
	args := BuildArgs(SessionConfig{}, "/tmp/abcdefghij")

	assert.Equal(t, []string{"--inline", "/tmp/abcdefghij"}, args,
		"default config must forward nothing beyond the marker flag")
}

func TestBuildArgs_AllFieldsSet(t *testing.T) {
	cfg := SessionConfig{
		Node:            "app1:9801",
		Token:           "s3cret",
		Match:           "payments/*",
		Directory:       "/var/tmp/profiles",
		Profiler:        BackendTracing,
		Sort:            "time",
		StopOnFirst:     true,
		LabelTransition: true,
	}

	args := BuildArgs(cfg, "/tmp/marker")

	assert.Equal(t, []string{
		"--inline", "/tmp/marker",
		"--node", "app1:9801",
		"--token", "s3cret",
		"--match", "payments/*",
		"--directory", "/var/tmp/profiles",
		"--profiler", "tracing",
		"--sort", "time",
		"--stop-on-first",
		"--enable-label-transition",
	}, args)
}

func TestBuildArgs_FalseBooleansEmitNoFlag(t *testing.T) {
	cfg := SessionConfig{StopOnFirst: false, LabelTransition: false}

	args := BuildArgs(cfg, "/tmp/m")

	assert.NotContains(t, args, "--stop-on-first")
	assert.NotContains(t, args, "--enable-label-transition")
	assert.NotContains(t, args, "false", "booleans never map to --name false")
}

func TestEffectiveNode(t *testing.T) {
	assert.Equal(t, DefaultNode, SessionConfig{}.EffectiveNode())
	assert.Equal(t, "db:9801", SessionConfig{Node: "db:9801"}.EffectiveNode())
}

func TestControlURL(t *testing.T) {
	cfg := SessionConfig{Node: "app1:9801"}
	assert.Equal(t, "ws://app1:9801/ezprofiler", cfg.ControlURL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SessionConfig
		wantErr string
	}{
		{
			name: "zero value is valid",
			cfg:  SessionConfig{},
		},
		{
			name: "known backend",
			cfg:  SessionConfig{Profiler: BackendSampling},
		},
		{
			name:    "unknown backend",
			cfg:     SessionConfig{Profiler: "flamegraph"},
			wantErr: "unknown profiler backend",
		},
		{
			name: "explicit tool with path",
			cfg:  SessionConfig{Tool: ExplicitTool("/opt/ezprofiler")},
		},
		{
			name:    "explicit tool without path",
			cfg:     SessionConfig{Tool: ToolLocation{Source: ToolExplicit}},
			wantErr: "requires a path",
		},
		{
			name:    "path on system source",
			cfg:     SessionConfig{Tool: ToolLocation{Source: ToolSystem, Path: "/x"}},
			wantErr: "only valid with source",
		},
		{
			name:    "unknown source",
			cfg:     SessionConfig{Tool: ToolLocation{Source: "registry"}},
			wantErr: "unknown tool source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node: app1:9801
match: payments/*
profiler: sampling
stop_on_first: true
tool:
  source: path
  path: /opt/ezprofiler/bin/ezprofiler
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "app1:9801", cfg.Node)
	assert.Equal(t, "payments/*", cfg.Match)
	assert.Equal(t, BackendSampling, cfg.Profiler)
	assert.True(t, cfg.StopOnFirst)
	assert.False(t, cfg.LabelTransition)
	assert.Equal(t, ToolExplicit, cfg.Tool.Source)
	assert.Equal(t, "/opt/ezprofiler/bin/ezprofiler", cfg.Tool.Path)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node: from-file:9801\n"), 0o600))

	t.Setenv("EZPROFILER_NODE", "from-env:9801")
	t.Setenv("EZPROFILER_TOKEN", "env-token")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env:9801", cfg.Node)
	assert.Equal(t, "env-token", cfg.Token)
}

func TestLoadFile_InvalidProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiler: warp-drive\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profiler backend")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("/nonexistent/profile.yaml")
	require.Error(t, err)
}
