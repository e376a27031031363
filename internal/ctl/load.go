package ctl

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/battle64/internal/loadtest"
	"github.com/okian/battle64/pkg/logger"
)

func newLoadCommand() *cobra.Command {
	cfg := loadtest.DefaultConfig()
	var logLevel string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load-test a running battle64 service",
		Long: `Load posts generated submissions (valid, bare-second, garbage and
duplicate times) to an event, waits for them to be ranked and verifies the
leaderboard: every accepted submission is present, ranks are dense, times
are ordered and fallback times come last.`,
		Example: `  b64ctl load
  b64ctl load --url http://localhost:9080 --submissions 50000 --workers 32`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runLoad(ctx, cmd, &cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.StringVar(&cfg.EventID, "event", cfg.EventID, "event id to submit to")
	f.IntVar(&cfg.NumSubmissions, "submissions", cfg.NumSubmissions, "distinct submissions to generate")
	f.IntVar(&cfg.DuplicateEvery, "duplicate-every", cfg.DuplicateEvery, "resend every Nth submission (0 disables)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent HTTP workers")
	f.IntVar(&cfg.Limit, "limit", cfg.Limit, "leaderboard page size to verify")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", cfg.Settle, "how long to wait for submissions to be ranked")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "generator seed")
	f.StringVar(&cfg.OutputFile, "output", "", "write generated submissions to this JSON file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log progress")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func runLoad(ctx context.Context, cmd *cobra.Command, cfg *loadtest.Config) error {
	stats, err := loadtest.Run(ctx, cfg)
	if stats != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render("Load run"))
		fmt.Fprintf(out, "  submitted  %d\n  accepted   %d\n  duplicate  %d\n  rejected   %d\n  failed     %d\n  repaired   %d\n  ranked     %d\n",
			stats.Submitted, stats.Accepted, stats.Duplicate, stats.Rejected, stats.Failed, stats.Repaired, stats.LeaderboardEntries)
		if stats.Duration > 0 {
			fmt.Fprintf(out, "  duration   %s\n", stats.Duration)
		}
	}
	return err
}
