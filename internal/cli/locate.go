package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhpip/ezprofiler-deps/internal/config"
	"github.com/nhpip/ezprofiler-deps/internal/locate"
)

func newLocateCmd() *cobra.Command {
	var (
		source   string
		toolPath string
	)

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Resolve the profiler executable path",
		Long: `Resolve where the external profiler binary would be launched from,
without launching it. Useful for checking a dependency cache or PATH setup
before running a session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := config.ToolLocation{Source: config.ToolSource(source), Path: toolPath}
			path, err := locate.Resolve(loc)
			if err != nil {
				return fmt.Errorf("resolve profiler: %w", err)
			}
			cmd.Println(path)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "system", "tool location strategy (system, deps, path)")
	cmd.Flags().StringVar(&toolPath, "tool-path", "", "explicit profiler executable path")

	return cmd
}
