// Package outcome evaluates matured predictions against realized prices and
// writes exactly one outcome per prediction. The whole loop is idempotent:
// re-running over the same pending set produces the same outcome set.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/providers"
)

// Config holds evaluator settings.
type Config struct {
	// MaturationDelay is the minimum wall-clock time after a decision before
	// its outcome may be evaluated.
	MaturationDelay time.Duration `yaml:"maturation_delay"` // Default: 24h

	// FlatBandPct is the absolute return below which a move counts as FLAT,
	// the band inside which a HOLD is judged successful.
	FlatBandPct float64 `yaml:"flat_band_pct"` // Default: 1.0

	// BatchLimit caps how many pending predictions one run processes.
	BatchLimit int `yaml:"batch_limit"` // Default: 200
}

// DefaultConfig returns production evaluator settings.
func DefaultConfig() Config {
	return Config{
		MaturationDelay: 24 * time.Hour,
		FlatBandPct:     1.0,
		BatchLimit:      200,
	}
}

// Evaluator scores matured predictions against realized prices.
type Evaluator struct {
	predictions persistence.PredictionStore
	outcomes    persistence.OutcomeStore
	prices      providers.MarketDataProvider
	config      Config
	now         func() time.Time
}

// NewEvaluator creates an outcome evaluator.
func NewEvaluator(predictions persistence.PredictionStore, outcomes persistence.OutcomeStore, prices providers.MarketDataProvider, config Config) *Evaluator {
	if config.MaturationDelay <= 0 {
		config = DefaultConfig()
	}
	return &Evaluator{
		predictions: predictions,
		outcomes:    outcomes,
		prices:      prices,
		config:      config,
		now:         time.Now,
	}
}

// EvaluatePending scores every matured prediction without a linked outcome and
// returns the count newly evaluated. Predictions whose realized price is not
// yet available stay pending for the next run; a prediction that already has
// an outcome is skipped. Neither case is an error.
func (e *Evaluator) EvaluatePending(ctx context.Context) (int, error) {
	cutoff := e.now().Add(-e.config.MaturationDelay)

	pending, err := e.predictions.ListPending(ctx, cutoff, e.config.BatchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending predictions: %w", err)
	}

	evaluated := 0
	for i := range pending {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-flight: remaining predictions re-run next cycle.
			return evaluated, err
		}

		err := e.evaluateOne(ctx, &pending[i])
		switch {
		case err == nil:
			evaluated++
		case errors.Is(err, domain.ErrEvaluationSkipped):
			log.Debug().Str("prediction_id", pending[i].ID).Str("symbol", pending[i].Symbol).
				Msg("evaluation skipped")
		default:
			log.Warn().Err(err).Str("prediction_id", pending[i].ID).Str("symbol", pending[i].Symbol).
				Msg("outcome evaluation failed, will retry next cycle")
		}
	}

	log.Info().Int("evaluated", evaluated).Int("pending", len(pending)).
		Msg("outcome cycle complete")
	return evaluated, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, p *domain.Prediction) error {
	maturity := p.DecisionTimestamp.Add(e.config.MaturationDelay)

	exitPrice, err := e.prices.GetPriceAt(ctx, p.Symbol, maturity)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			// Never fabricate a price: leave the prediction pending.
			return fmt.Errorf("%w: realized price unavailable: %v", domain.ErrEvaluationSkipped, err)
		}
		return fmt.Errorf("failed to fetch realized price: %w", err)
	}
	if p.EntryPrice <= 0 {
		return fmt.Errorf("prediction %s has invalid entry price %.4f", p.ID, p.EntryPrice)
	}

	returnPct := (exitPrice - p.EntryPrice) / p.EntryPrice * 100.0

	o := domain.Outcome{
		PredictionID:        p.ID,
		EvaluationTimestamp: e.now(),
		ExitPrice:           exitPrice,
		ActualReturnPct:     returnPct,
		ActualDirection:     e.direction(returnPct),
		Success:             e.success(p.Action, returnPct),
	}

	if _, err := e.outcomes.Record(ctx, o); err != nil {
		if errors.Is(err, persistence.ErrOutcomeExists) {
			// A concurrent or earlier run already scored this prediction.
			return fmt.Errorf("%w: outcome already exists", domain.ErrEvaluationSkipped)
		}
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	log.Info().Str("prediction_id", p.ID).Str("symbol", p.Symbol).
		Str("action", string(p.Action)).Float64("return_pct", returnPct).
		Bool("success", o.Success).Msg("prediction evaluated")
	return nil
}

// direction maps a realized return onto UP/DOWN/FLAT using the flat band.
func (e *Evaluator) direction(returnPct float64) domain.Direction {
	switch {
	case math.Abs(returnPct) < e.config.FlatBandPct:
		return domain.DirectionFlat
	case returnPct > 0:
		return domain.DirectionUp
	default:
		return domain.DirectionDown
	}
}

// success applies the fixed scoring rule: BUYs need an UP move, SELLs a DOWN
// move, and a HOLD is right when nothing significant happened.
func (e *Evaluator) success(action domain.Action, returnPct float64) bool {
	dir := e.direction(returnPct)
	switch {
	case action.IsBuy():
		return dir == domain.DirectionUp
	case action.IsSell():
		return dir == domain.DirectionDown
	default:
		return math.Abs(returnPct) < e.config.FlatBandPct
	}
}
