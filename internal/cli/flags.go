package cli

import (
	"github.com/spf13/pflag"

	"github.com/nhpip/ezprofiler-deps/internal/config"
)

// sessionFlags groups the flags that map onto a session configuration.
type sessionFlags struct {
	Node        string
	Token       string
	Match       string
	Directory   string
	Profiler    string
	Sort        string
	StopOnFirst bool
	Source      string
	ToolPath    string
}

// AddFlags registers the session flags on a FlagSet.
func (f *sessionFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Node, "node", "", "target endpoint (host:port)")
	flags.StringVar(&f.Token, "token", "", "shared secret for the control link")
	flags.StringVar(&f.Match, "match", "", "call-site filter pattern")
	flags.StringVar(&f.Directory, "directory", "", "result artifact directory")
	flags.StringVar(&f.Profiler, "profiler", "", "backend engine (sampling, tracing, counting)")
	flags.StringVar(&f.Sort, "sort", "", "result sort key")
	flags.BoolVar(&f.StopOnFirst, "stop-on-first", false, "stop profiling after the first match")
	flags.StringVar(&f.Source, "source", "", "tool location strategy (system, deps, path)")
	flags.StringVar(&f.ToolPath, "tool-path", "", "explicit profiler executable path")
}

// Apply overlays the explicitly-set flags onto cfg. Unset flags leave the
// profile file (or tool default) in effect.
func (f *sessionFlags) Apply(cfg *config.SessionConfig, flags *pflag.FlagSet) {
	if flags.Changed("node") {
		cfg.Node = f.Node
	}
	if flags.Changed("token") {
		cfg.Token = f.Token
	}
	if flags.Changed("match") {
		cfg.Match = f.Match
	}
	if flags.Changed("directory") {
		cfg.Directory = f.Directory
	}
	if flags.Changed("profiler") {
		cfg.Profiler = config.Backend(f.Profiler)
	}
	if flags.Changed("sort") {
		cfg.Sort = f.Sort
	}
	if flags.Changed("stop-on-first") {
		cfg.StopOnFirst = f.StopOnFirst
	}
	switch {
	case flags.Changed("source"):
		cfg.Tool = config.ToolLocation{Source: config.ToolSource(f.Source), Path: f.ToolPath}
	case flags.Changed("tool-path"):
		cfg.Tool = config.ExplicitTool(f.ToolPath)
	}
}
