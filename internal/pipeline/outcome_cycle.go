package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/metrics"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/outcome"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
)

// OutcomeCycle runs the delayed evaluation job and keeps the pending gauge
// and outcome counters current.
type OutcomeCycle struct {
	evaluator   *outcome.Evaluator
	predictions persistence.PredictionStore
	outcomes    persistence.OutcomeStore
	metrics     *metrics.Collectors
	maturation  time.Duration
	now         func() time.Time
}

// NewOutcomeCycle wires an outcome cycle.
func NewOutcomeCycle(
	evaluator *outcome.Evaluator,
	predictions persistence.PredictionStore,
	outcomes persistence.OutcomeStore,
	collectors *metrics.Collectors,
	maturation time.Duration,
) *OutcomeCycle {
	return &OutcomeCycle{
		evaluator:   evaluator,
		predictions: predictions,
		outcomes:    outcomes,
		metrics:     collectors,
		maturation:  maturation,
		now:         time.Now,
	}
}

// Run evaluates pending predictions and returns the count newly evaluated.
// Safe to re-run at any cadence: already-evaluated predictions are skipped by
// the store's uniqueness constraint.
func (c *OutcomeCycle) Run(ctx context.Context) (int, error) {
	start := c.now()

	evaluated, err := c.evaluator.EvaluatePending(ctx)
	if err != nil {
		return evaluated, fmt.Errorf("outcome evaluation failed: %w", err)
	}

	// Refresh the bias/feedback metrics from what this run produced.
	if recorded, listErr := c.outcomes.ListSince(ctx, start); listErr == nil {
		for _, o := range recorded {
			c.metrics.OutcomesTotal.WithLabelValues(fmt.Sprintf("%t", o.Success)).Inc()
		}
	} else {
		log.Warn().Err(listErr).Msg("failed to refresh outcome metrics")
	}

	if pending, listErr := c.predictions.ListPending(ctx, c.now().Add(-c.maturation), 1000); listErr == nil {
		c.metrics.PendingPredictions.Set(float64(len(pending)))
	}

	return evaluated, nil
}
