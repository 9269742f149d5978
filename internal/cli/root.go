// Package cli implements the ezctl command tree.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhpip/ezprofiler-deps/internal/logging"
	"github.com/nhpip/ezprofiler-deps/pkg/version"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "ezctl",
	Short: "ezctl - drive an external ezprofiler process",
	Long: `Drive an external ezprofiler process from the command line.

ezctl launches the profiler against a target node, arms it for one or more
labels, waits for captures, and shuts the tool down cleanly. The profiling
itself happens inside the external tool; ezctl only conducts the control
protocol.

Examples:
  ezctl profile --node app1:9801 --label checkout
  ezctl profile --config profile.yaml --label L1 --label L2 --sequential
  ezctl locate --source deps`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")

	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newLocateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("ezctl %s\n", version.String())
		},
	}
}

func newLogger(component string) zerolog.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logLevel
	return logging.NewWithComponent(cfg, component)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
