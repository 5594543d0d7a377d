// Package report provides read-only views over the decision trail: recent
// predictions, the action distribution used for bias monitoring, and the
// realized hit rate.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
)

// HitRate summarizes realized accuracy over a window of evaluated outcomes.
type HitRate struct {
	Window    time.Duration `json:"window"`
	Evaluated int           `json:"evaluated"`
	Successes int           `json:"successes"`
	Rate      float64       `json:"rate"`
	AvgReturn float64       `json:"avg_return_pct"`
}

// Reporter serves read-only queries. It never writes.
type Reporter struct {
	predictions persistence.PredictionStore
	outcomes    persistence.OutcomeStore
	now         func() time.Time
}

// NewReporter creates a reporter over both stores.
func NewReporter(predictions persistence.PredictionStore, outcomes persistence.OutcomeStore) *Reporter {
	return &Reporter{predictions: predictions, outcomes: outcomes, now: time.Now}
}

// RecentPredictions returns the newest predictions for a symbol.
func (r *Reporter) RecentPredictions(ctx context.Context, symbol string, limit int) ([]domain.Prediction, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.predictions.ListRecent(ctx, symbol, limit)
}

// SignalDistribution counts decisions by action over the trailing window. A
// healthy system shows a mix; a 95% BUY share is the bias failure this system
// exists to prevent.
func (r *Reporter) SignalDistribution(ctx context.Context, window time.Duration) (map[domain.Action]int, error) {
	predictions, err := r.predictions.ListSince(ctx, r.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions for distribution: %w", err)
	}

	distribution := map[domain.Action]int{
		domain.ActionStrongBuy:  0,
		domain.ActionBuy:        0,
		domain.ActionHold:       0,
		domain.ActionSell:       0,
		domain.ActionStrongSell: 0,
	}
	for _, p := range predictions {
		distribution[p.Action]++
	}
	return distribution, nil
}

// HitRate computes the realized success rate over outcomes evaluated within
// the trailing window.
func (r *Reporter) HitRate(ctx context.Context, window time.Duration) (HitRate, error) {
	result := HitRate{Window: window}

	outcomes, err := r.outcomes.ListSince(ctx, r.now().Add(-window))
	if err != nil {
		return result, fmt.Errorf("failed to load outcomes for hit rate: %w", err)
	}

	totalReturn := 0.0
	for _, o := range outcomes {
		result.Evaluated++
		if o.Success {
			result.Successes++
		}
		totalReturn += o.ActualReturnPct
	}
	if result.Evaluated > 0 {
		result.Rate = float64(result.Successes) / float64(result.Evaluated)
		result.AvgReturn = totalReturn / float64(result.Evaluated)
	}
	return result, nil
}
