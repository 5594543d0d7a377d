// Package guard implements the temporal integrity pre-flight check. The
// system once shipped predictions computed from features timestamped 19-54
// hours after the decision itself; this guard turns that class of silent
// corruption into a hard cycle abort.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
)

// Violation kinds.
const (
	KindFeatureAfterDecision = "feature_after_decision"
	KindDecisionInFuture     = "decision_in_future"
	KindIndicatorOutOfBounds = "indicator_out_of_bounds"
	KindInvalidEntryPrice    = "invalid_entry_price"
)

// Config holds guard settings.
type Config struct {
	// Lookback bounds the scan window over persisted predictions.
	Lookback time.Duration `yaml:"lookback"` // Default: 72h

	// ClockSkewTolerance allows sub-second scheduler jitter before a
	// decision timestamp counts as future-dated.
	ClockSkewTolerance time.Duration `yaml:"clock_skew_tolerance"` // Default: 2s
}

// DefaultConfig returns production guard settings.
func DefaultConfig() Config {
	return Config{
		Lookback:           72 * time.Hour,
		ClockSkewTolerance: 2 * time.Second,
	}
}

// Violation describes one integrity failure on one persisted prediction.
type Violation struct {
	PredictionID string `json:"prediction_id"`
	Symbol       string `json:"symbol"`
	Kind         string `json:"kind"`
	Detail       string `json:"detail"`
}

// Report is the result of one guard run.
type Report struct {
	OK         bool        `json:"ok"`
	Scanned    int         `json:"scanned"`
	Violations []Violation `json:"violations,omitempty"`
	CheckedAt  time.Time   `json:"checked_at"`
}

// Guard validates the persisted decision trail before each decision cycle.
type Guard struct {
	predictions persistence.PredictionStore
	config      Config
	now         func() time.Time
}

// NewGuard creates a guard over the prediction store.
func NewGuard(predictions persistence.PredictionStore, config Config) *Guard {
	if config.Lookback <= 0 {
		config = DefaultConfig()
	}
	return &Guard{predictions: predictions, config: config, now: time.Now}
}

// Check scans recent predictions for temporal integrity violations. A store
// read failure is an error; violations themselves come back in the report
// with OK=false so the caller can abort loudly.
func (g *Guard) Check(ctx context.Context) (Report, error) {
	now := g.now()
	report := Report{CheckedAt: now}

	predictions, err := g.predictions.ListSince(ctx, now.Add(-g.config.Lookback))
	if err != nil {
		return report, fmt.Errorf("failed to scan predictions for integrity check: %w", err)
	}
	report.Scanned = len(predictions)

	for i := range predictions {
		report.Violations = append(report.Violations, g.inspect(&predictions[i], now)...)
	}
	report.OK = len(report.Violations) == 0

	if !report.OK {
		log.Error().Int("violations", len(report.Violations)).Int("scanned", report.Scanned).
			Msg("TEMPORAL INTEGRITY FAILURE: decision trail contains future-dated or invalid records")
	}

	return report, nil
}

// Err converts a failed report into a TemporalIntegrityError, nil when OK.
func (r Report) Err() error {
	if r.OK {
		return nil
	}
	details := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		details = append(details, fmt.Sprintf("%s %s: %s", v.Kind, v.PredictionID, v.Detail))
	}
	return &domain.TemporalIntegrityError{Violations: details}
}

func (g *Guard) inspect(p *domain.Prediction, now time.Time) []Violation {
	var violations []Violation

	add := func(kind, detail string) {
		violations = append(violations, Violation{
			PredictionID: p.ID,
			Symbol:       p.Symbol,
			Kind:         kind,
			Detail:       detail,
		})
	}

	// Data leakage: features observed after the decision they fed.
	if p.TechnicalTimestamp.After(p.DecisionTimestamp) {
		add(KindFeatureAfterDecision, fmt.Sprintf("technical features at %s postdate decision at %s",
			p.TechnicalTimestamp.Format(time.RFC3339), p.DecisionTimestamp.Format(time.RFC3339)))
	}
	if p.SentimentTimestamp.After(p.DecisionTimestamp) {
		add(KindFeatureAfterDecision, fmt.Sprintf("sentiment features at %s postdate decision at %s",
			p.SentimentTimestamp.Format(time.RFC3339), p.DecisionTimestamp.Format(time.RFC3339)))
	}

	// Clock skew or scheduling bug: decision stamped in the future.
	if p.DecisionTimestamp.After(now.Add(g.config.ClockSkewTolerance)) {
		add(KindDecisionInFuture, fmt.Sprintf("decision at %s is ahead of wall clock %s",
			p.DecisionTimestamp.Format(time.RFC3339), now.Format(time.RFC3339)))
	}

	// Sanity bounds on stored features.
	if rsi := p.Breakdown.Inputs.RSI; rsi < 0 || rsi > 100 {
		add(KindIndicatorOutOfBounds, fmt.Sprintf("RSI %.2f outside [0, 100]", rsi))
	}
	if p.EntryPrice <= 0 {
		add(KindInvalidEntryPrice, fmt.Sprintf("entry price %.4f is not positive", p.EntryPrice))
	}

	return violations
}
