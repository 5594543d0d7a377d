package regime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

type stubIndexProvider struct {
	trendPct float64
	err      error
}

func (s *stubIndexProvider) GetIndexTrend(ctx context.Context, lookbackSessions int) (float64, error) {
	return s.trendPct, s.err
}

func TestClassify_BandTable(t *testing.T) {
	c := NewClassifier(nil, DefaultConfig())

	tests := []struct {
		name         string
		trendPct     float64
		regime       domain.Regime
		buyThreshold float64
		multiplier   float64
	}{
		{"deep selloff", -2.0, domain.RegimeBearish, 0.80, 0.7},
		{"bearish edge resolves less bearish", -1.5, domain.RegimeWeakBearish, 0.75, 0.9},
		{"weak bearish", -1.0, domain.RegimeWeakBearish, 0.75, 0.9},
		{"weak bearish edge resolves to neutral", -0.5, domain.RegimeNeutral, 0.70, 1.0},
		{"flat", 0.0, domain.RegimeNeutral, 0.70, 1.0},
		{"neutral upper boundary inclusive", 0.5, domain.RegimeNeutral, 0.70, 1.0},
		{"weak bullish", 1.0, domain.RegimeWeakBullish, 0.68, 1.05},
		{"weak bullish upper boundary", 1.5, domain.RegimeWeakBullish, 0.68, 1.05},
		{"strong rally", 2.0, domain.RegimeBullish, 0.65, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mctx := c.Classify(tt.trendPct)
			assert.Equal(t, tt.regime, mctx.Regime)
			assert.Equal(t, tt.buyThreshold, mctx.BuyThreshold)
			assert.Equal(t, tt.multiplier, mctx.ConfidenceMultiplier)
			assert.Equal(t, tt.trendPct, mctx.TrendPct)
		})
	}
}

func TestClassifyCurrent_FailsOpenToNeutral(t *testing.T) {
	c := NewClassifier(&stubIndexProvider{err: errors.New("index feed down")}, DefaultConfig())

	mctx := c.ClassifyCurrent(context.Background())

	assert.Equal(t, domain.RegimeNeutral, mctx.Regime)
	assert.Equal(t, 0.70, mctx.BuyThreshold)
	assert.Equal(t, 1.0, mctx.ConfidenceMultiplier)
}

func TestClassifyCurrent_UsesProviderTrend(t *testing.T) {
	c := NewClassifier(&stubIndexProvider{trendPct: 2.0}, DefaultConfig())

	mctx := c.ClassifyCurrent(context.Background())

	assert.Equal(t, domain.RegimeBullish, mctx.Regime)
	assert.Equal(t, 0.65, mctx.BuyThreshold)
}
