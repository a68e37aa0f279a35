package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fanmetrics/fanmetrics/cmd/fanmetrics/cli"
	"github.com/fanmetrics/fanmetrics/internal/app"
	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/jobs"
)

// exitCode carries a command's non-zero exit status through cobra.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func codeErr(code int) error {
	if code == 0 {
		return nil
	}
	return exitCode(code)
}

// run executes the command line in args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			return int(code)
		}
		fmt.Fprintf(stderr, "fanmetrics: %v\n", err)
		return 2
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "fanmetrics",
		Short:         "Simulated creator platform market dashboard",
		Long:          "fanmetrics serves a dashboard of synthetic subscription platform market data. Without a subcommand it starts the HTTP server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg, app.NewLogger(cfg))
		},
	}
	root.AddCommand(newSnapshotCommand(stdout, stderr), newJobsCommand(stdout, stderr))
	return root
}

func newSnapshotCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		platforms  []string
		top        int
		seed       uint64
		at         string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the market overview, platform table and top earners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			var when time.Time
			if at != "" {
				when, err = time.Parse("2006-01-02", at)
				if err != nil {
					return fmt.Errorf("--at must be YYYY-MM-DD: %w", err)
				}
			}
			if cmd.Flags().Changed("seed") {
				cfg.SessionSeed = seed
			}
			service, err := newMarketService(cfg, nil)
			if err != nil {
				return err
			}
			marketCLI, err := cli.NewMarketCLI(service)
			if err != nil {
				return err
			}
			return codeErr(marketCLI.SnapshotCommand(cmd.Context(), cli.SnapshotOptions{
				Platforms:  platforms,
				Top:        top,
				At:         when,
				JSONOutput: jsonOutput,
				Stdout:     stdout,
				Stderr:     stderr,
			}))
		},
	}
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "restrict charts and top earners to these platforms")
	cmd.Flags().IntVarP(&top, "top", "n", market.TopEarnerCount, "number of top earners to print")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "panel seed; defaults to MARKET_SEED")
	cmd.Flags().StringVar(&at, "at", "", "snapshot date (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of tables")
	return cmd
}

func newJobsCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	trigger := &cobra.Command{
		Use:       "trigger <job> [month|reason]",
		Short:     "Enqueue a history warmup or cache bump",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{jobs.TaskMarketHistoryWarmup, jobs.TaskMarketCacheBump},
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := newJobsCLI()
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			arg := ""
			if len(args) > 1 {
				arg = args[1]
			}
			return codeErr(jobsCLI.TriggerCommand(cmd.Context(), args[0], arg, stdout, stderr))
		},
	}
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := newJobsCLI()
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			return codeErr(jobsCLI.StatsCommand(cmd.Context(), stdout, stderr))
		},
	}
	cmd.AddCommand(trigger, stats)
	return cmd
}

func newJobsCLI() (*cli.JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cli.NewJobsCLI(cfg.RedisAddr), nil
}
