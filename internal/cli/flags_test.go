package cli

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhpip/ezprofiler-deps/internal/config"
)

func TestSessionFlagsApply_OnlyChangedFlagsOverlay(t *testing.T) {
	var f sessionFlags
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.AddFlags(flags)

	require.NoError(t, flags.Parse([]string{"--node", "app2:9801", "--stop-on-first"}))

	cfg := config.SessionConfig{
		Node:     "app1:9801",
		Token:    "secret",
		Profiler: config.BackendTracing,
	}
	f.Apply(&cfg, flags)

	assert.Equal(t, "app2:9801", cfg.Node, "changed flag overrides the profile value")
	assert.True(t, cfg.StopOnFirst)
	assert.Equal(t, "secret", cfg.Token, "unset flag leaves the profile value alone")
	assert.Equal(t, config.BackendTracing, cfg.Profiler)
}

func TestSessionFlagsApply_ToolLocation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want config.ToolLocation
	}{
		{
			name: "explicit path shorthand",
			args: []string{"--tool-path", "/opt/ez/ezprofiler"},
			want: config.ExplicitTool("/opt/ez/ezprofiler"),
		},
		{
			name: "deps source",
			args: []string{"--source", "deps"},
			want: config.BundledTool(),
		},
		{
			name: "source wins over tool-path ordering",
			args: []string{"--source", "path", "--tool-path", "/opt/ez/ezprofiler"},
			want: config.ExplicitTool("/opt/ez/ezprofiler"),
		},
		{
			name: "nothing set keeps zero value",
			args: nil,
			want: config.ToolLocation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f sessionFlags
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f.AddFlags(flags)
			require.NoError(t, flags.Parse(tt.args))

			var cfg config.SessionConfig
			f.Apply(&cfg, flags)
			assert.Equal(t, tt.want, cfg.Tool)
		})
	}
}
