// Package scheduler runs the two independently-cadenced batch jobs: the
// decision cycle and the outcome evaluation cycle. No ordering is assumed
// between them beyond the maturation delay.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/pipeline"
)

// Config holds the cron schedules for both jobs.
type Config struct {
	// DecisionSchedule defaults to every 30 minutes during US market hours.
	DecisionSchedule string `yaml:"decision_schedule"` // Default: "*/30 13-21 * * 1-5"

	// OutcomeSchedule defaults to hourly; the evaluator is idempotent so the
	// cadence is loose by design.
	OutcomeSchedule string `yaml:"outcome_schedule"` // Default: "0 * * * *"

	Symbols []string `yaml:"symbols"`
}

// DefaultConfig returns production schedules with no symbols.
func DefaultConfig() Config {
	return Config{
		DecisionSchedule: "*/30 13-21 * * 1-5",
		OutcomeSchedule:  "0 * * * *",
	}
}

// Scheduler owns the cron runner and the job wiring.
type Scheduler struct {
	config   Config
	decision *pipeline.DecisionCycle
	outcomes *pipeline.OutcomeCycle
	cron     *cron.Cron
}

// New creates a scheduler over the two cycles.
func New(config Config, decision *pipeline.DecisionCycle, outcomes *pipeline.OutcomeCycle) *Scheduler {
	return &Scheduler{
		config:   config,
		decision: decision,
		outcomes: outcomes,
		cron:     cron.New(),
	}
}

// Run registers both jobs and blocks until the context is cancelled. Each job
// run is logged; a failing run never stops the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.config.DecisionSchedule, func() {
		s.runDecision(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid decision schedule %q: %w", s.config.DecisionSchedule, err)
	}

	_, err = s.cron.AddFunc(s.config.OutcomeSchedule, func() {
		s.runOutcomes(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid outcome schedule %q: %w", s.config.OutcomeSchedule, err)
	}

	log.Info().Str("decision_schedule", s.config.DecisionSchedule).
		Str("outcome_schedule", s.config.OutcomeSchedule).
		Int("symbols", len(s.config.Symbols)).Msg("scheduler starting")

	s.cron.Start()
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("scheduler stop timed out with jobs still running")
	}
	return nil
}

func (s *Scheduler) runDecision(ctx context.Context) {
	start := time.Now()
	_, summary, err := s.decision.Run(ctx, s.config.Symbols)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).
			Bool("guard_ok", summary.GuardOK).Msg("scheduled decision cycle failed")
		return
	}
	log.Info().Dur("duration", time.Since(start)).Int("decided", summary.Decided).
		Int("skipped_data", summary.SkippedData).Int("blocked", summary.Blocked).
		Msg("scheduled decision cycle finished")
}

func (s *Scheduler) runOutcomes(ctx context.Context) {
	start := time.Now()
	evaluated, err := s.outcomes.Run(ctx)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("scheduled outcome cycle failed")
		return
	}
	log.Info().Dur("duration", time.Since(start)).Int("evaluated", evaluated).
		Msg("scheduled outcome cycle finished")
}
