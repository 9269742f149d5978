package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhpip/ezprofiler-deps/internal/config"
	"github.com/nhpip/ezprofiler-deps/internal/output"
	"github.com/nhpip/ezprofiler-deps/pkg/manage"
)

func newProfileCmd() *cobra.Command {
	var (
		session    sessionFlags
		configFile string
		labels     []string
		anyLabel   bool
		sequential bool
		wait       time.Duration
		format     string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Run one profiling session end to end",
		Long: `Launch the external profiler, arm it for the given labels, wait for
captures, print the results, and stop the tool.

The session profile file (--config) and the flags map one to one onto the
tool's own options; only explicitly-set values are forwarded, so the tool's
defaults stay in effect for everything else.

Examples:
  # Profile the first call site labeled "checkout" on app1
  ezctl profile --node app1:9801 --label checkout

  # Walk three labels one at a time
  ezctl profile --label L1 --label L2 --label L3 --sequential --wait 60s

  # Whatever matches first, JSON output
  ezctl profile --any --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.SessionConfig
			if configFile != "" {
				loaded, err := config.LoadFile(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				config.ApplyEnv(&cfg)
			}

			session.Apply(&cfg, cmd.Flags())
			cfg.LabelTransition = sequential

			if !anyLabel && len(labels) == 0 {
				return fmt.Errorf("at least one --label is required (or --any)")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var spec manage.LabelSpec
			switch {
			case anyLabel:
				spec = manage.AnyLabel()
			case sequential:
				spec = manage.LabelSet(manage.ModeSequential, labels...)
			default:
				spec = manage.LabelSet(manage.ModeOneOf, labels...)
			}

			return runProfile(cmd.Context(), cfg, spec, sequential, wait, output.Format(format))
		},
	}

	session.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "session profile file (YAML)")
	cmd.Flags().StringArrayVarP(&labels, "label", "l", nil, "label to profile (repeatable)")
	cmd.Flags().BoolVar(&anyLabel, "any", false, "profile whichever label matches first")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "walk the label set one match at a time")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for results")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json, raw)")

	return cmd
}

func runProfile(ctx context.Context, cfg config.SessionConfig, spec manage.LabelSpec,
	sequential bool, wait time.Duration, format output.Format) error {

	logger := newLogger("profile")
	m := manage.New(cfg, manage.WithLogger(logger))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("start profiler: %w", err)
	}
	defer func() {
		if err := m.Stop(context.Background()); err != nil &&
			!errors.Is(err, manage.ErrNotRunning) {
			logger.Warn().Err(err).Msg("profiler did not stop cleanly")
		}
	}()

	if sequential {
		if err := m.AllowLabelTransition(ctx, true); err != nil {
			return err
		}
	}
	if err := m.EnableProfiling(spec); err != nil {
		return err
	}

	logger.Info().Dur("wait", wait).Msg("profiling armed, waiting for results")

	entries, err := m.WaitForResults(ctx, wait)
	if errors.Is(err, manage.ErrTimeout) {
		// Background activity may still have produced partial captures.
		entries, err = m.GetProfilingResults(ctx, false)
		var noResults *manage.NoResultsError
		if errors.As(err, &noResults) {
			return fmt.Errorf("no results within %s: %s", wait, noResults.Diagnostic)
		}
	}
	if err != nil {
		return err
	}

	return output.NewFormatter(format, os.Stdout).Render(entries)
}
