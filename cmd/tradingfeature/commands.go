package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/httpapi"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/scheduler"
)

func newDecideCmd() *cobra.Command {
	var symbols []string

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Run one decision cycle over the given symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			predictions, summary, err := a.decision.Run(ctx, symbols)
			if err != nil {
				return err
			}
			for _, p := range predictions {
				fmt.Printf("%-8s %-11s conf=%.2f entry=%.2f id=%s\n",
					p.Symbol, p.Action, p.Confidence, p.EntryPrice, p.ID)
			}
			fmt.Printf("decided=%d skipped=%d blocked=%d duplicates=%d regime=%s\n",
				summary.Decided, summary.SkippedData, summary.Blocked, summary.Duplicates, summary.Regime)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to decide on (comma separated)")
	cmd.MarkFlagRequired("symbols")
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	var maturation time.Duration

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one outcome evaluation cycle over matured predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			maturationOverride = maturation
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			evaluated, err := a.outcomes.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("evaluated=%d\n", evaluated)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maturation, "maturation", 0, "override maturation delay (e.g. 24h)")
	return cmd
}

func newGuardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guard",
		Short: "Run the temporal integrity check without deciding anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.guard.Check(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("ok=%t scanned=%d violations=%d\n", report.OK, report.Scanned, len(report.Violations))
			for _, v := range report.Violations {
				fmt.Printf("  %s %s %s: %s\n", v.Kind, v.Symbol, v.PredictionID, v.Detail)
			}
			return report.Err()
		},
	}
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only reporting API and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.ServeAddr
			}
			server := httpapi.NewServer(a.reporter, a.guard, a.metrics)
			return server.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run both cycles on their cron schedules until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if len(a.cfg.Scheduler.Symbols) == 0 {
				log.Warn().Msg("scheduler has no symbols configured, decision job will be a no-op")
			}
			return scheduler.New(a.cfg.Scheduler, a.decision, a.outcomes).Run(ctx)
		},
	}
}
