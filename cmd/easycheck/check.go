package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/easycheck/internal/checker"
	"github.com/hazz-dev/easycheck/internal/config"
	"github.com/hazz-dev/easycheck/internal/override"
	"github.com/hazz-dev/easycheck/internal/scheduler"
	"github.com/hazz-dev/easycheck/internal/state"
)

func checkCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run every configured check once and print the verdict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, flags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runChecks(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

// runChecks runs one cycle, applies the marker files and prints a table.
// It returns an error when the verdict is unavailable.
func runChecks(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	checkers, err := checker.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("building checks: %w", err)
	}

	holder := state.New()
	sched, err := scheduler.New(scheduler.NewExecutor(checkers, log), holder, cfg.RevalidationInterval.Duration, log)
	if err != nil {
		return err
	}

	var results []checker.Result
	sched.SetOnCycle(func(c scheduler.Cycle) { results = c.Results })
	sched.RunOnce(ctx)

	verdict := override.New(cfg.MaintenanceFile, cfg.ForceSuccessFile, holder, override.WithLogger(log)).Resolve(ctx)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tREASON\tRESPONSE\tERROR")
	for _, r := range results {
		resp := "-"
		if r.ResponseTime > 0 {
			resp = r.ResponseTime.Round(time.Millisecond).String()
		}
		reason := string(r.Reason)
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Check, r.Status, reason, resp, r.Error)
	}
	w.Flush()

	fmt.Fprintf(out, "\nverdict: %s (source: %s)\n", verdict.Status, verdict.Source)

	if !verdict.Available() {
		return fmt.Errorf("host is %s", verdict.Status)
	}
	return nil
}
