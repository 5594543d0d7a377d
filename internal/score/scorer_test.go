package score

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

func neutralContext() domain.MarketContext {
	return domain.MarketContext{Regime: domain.RegimeNeutral, BuyThreshold: 0.70, ConfidenceMultiplier: 1.0}
}

func bearishContext() domain.MarketContext {
	return domain.MarketContext{Regime: domain.RegimeBearish, BuyThreshold: 0.80, ConfidenceMultiplier: 0.7}
}

func techSnapshot(rsi float64) *domain.TechnicalSnapshot {
	return &domain.TechnicalSnapshot{RSI: rsi, SMA20: 100, SMA50: 100, Timestamp: time.Now()}
}

func TestTechnicalScore_RSIBoundaries(t *testing.T) {
	s := NewScorer(DefaultConfig())

	for _, rsi := range []float64{0, 100} {
		scores := s.Score(Inputs{Symbol: "TEST", Technical: techSnapshot(rsi)}, neutralContext())
		assert.False(t, math.IsNaN(scores.Technical), "RSI=%v must not produce NaN", rsi)
		assert.GreaterOrEqual(t, scores.Technical, -1.0)
		assert.LessOrEqual(t, scores.Technical, 1.0)
		assert.GreaterOrEqual(t, scores.TechnicalScale, 0.0)
		assert.LessOrEqual(t, scores.TechnicalScale, 100.0)
	}
}

func TestTechnicalScore_OutOfBoundsRSIDegradesToNeutral(t *testing.T) {
	s := NewScorer(DefaultConfig())

	scores := s.Score(Inputs{Symbol: "TEST", Technical: techSnapshot(140)}, neutralContext())
	assert.Equal(t, 0.0, scores.Technical)

	scores = s.Score(Inputs{Symbol: "TEST", Technical: techSnapshot(math.NaN())}, neutralContext())
	assert.Equal(t, 0.0, scores.Technical)
}

func TestTechnicalScore_MissingSnapshotIsNeutral(t *testing.T) {
	s := NewScorer(DefaultConfig())
	scores := s.Score(Inputs{Symbol: "TEST"}, neutralContext())
	assert.Equal(t, 0.0, scores.Technical)
	assert.Equal(t, 50.0, scores.TechnicalScale)
}

func TestVolumePenalty_TierBoundaries(t *testing.T) {
	s := NewScorer(DefaultConfig())

	tests := []struct {
		name        string
		volumeTrend float64
		penalty     float64
	}{
		{"severe decline", -0.50, -0.20},
		{"boundary -0.40 takes lower tier", -0.40, -0.15},
		{"moderate decline", -0.30, -0.15},
		{"boundary -0.20 takes lower tier", -0.20, -0.08},
		{"mild decline", -0.15, -0.08},
		{"boundary -0.10 takes no penalty", -0.10, 0},
		{"flat volume", 0, 0},
		{"rising volume", 0.25, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.penalty, s.volumePenalty(tt.volumeTrend))
		})
	}
}

func TestVolumeScore_ExtremeDeclineBounded(t *testing.T) {
	s := NewScorer(DefaultConfig())
	scores := s.Score(Inputs{Symbol: "TEST", VolumeTrend: -1.0}, neutralContext())
	assert.GreaterOrEqual(t, scores.Volume, -1.0)
	assert.Less(t, scores.Volume, 0.0)
	assert.False(t, math.IsNaN(scores.Volume))
}

func TestSentimentScore_RegimeAwareThreshold(t *testing.T) {
	s := NewScorer(DefaultConfig())
	snap := &domain.SentimentSnapshot{Score: 0.10, Confidence: 0.9, ArticleCount: 10, Timestamp: time.Now()}

	// 0.10 clears the neutral threshold (0.05) but not the bearish one (0.15).
	neutral := s.Score(Inputs{Symbol: "TEST", Sentiment: snap}, neutralContext())
	assert.Greater(t, neutral.Sentiment, 0.0)

	bearish := s.Score(Inputs{Symbol: "TEST", Sentiment: snap}, bearishContext())
	assert.Equal(t, 0.0, bearish.Sentiment)
}

func TestSentimentScore_NegativePenalizedHarderInBearish(t *testing.T) {
	s := NewScorer(DefaultConfig())
	snap := &domain.SentimentSnapshot{Score: -0.40, Confidence: 0.8, ArticleCount: 10, Timestamp: time.Now()}

	neutral := s.Score(Inputs{Symbol: "TEST", Sentiment: snap}, neutralContext())
	bearish := s.Score(Inputs{Symbol: "TEST", Sentiment: snap}, bearishContext())

	assert.Less(t, neutral.Sentiment, 0.0)
	assert.Less(t, bearish.Sentiment, neutral.Sentiment, "bearish regime must penalize negative sentiment harder")
}

func TestSentimentScore_ThinCoverageDiscounted(t *testing.T) {
	s := NewScorer(DefaultConfig())
	thin := &domain.SentimentSnapshot{Score: 0.5, Confidence: 0.9, ArticleCount: 1, Timestamp: time.Now()}
	deep := &domain.SentimentSnapshot{Score: 0.5, Confidence: 0.9, ArticleCount: 10, Timestamp: time.Now()}

	thinScores := s.Score(Inputs{Symbol: "TEST", Sentiment: thin}, neutralContext())
	deepScores := s.Score(Inputs{Symbol: "TEST", Sentiment: deep}, neutralContext())

	assert.Less(t, thinScores.Sentiment, deepScores.Sentiment)
}

func TestRiskScore_VolatilityMapping(t *testing.T) {
	s := NewScorer(DefaultConfig())

	calm := s.Score(Inputs{Symbol: "TEST", Volatility: 0.0}, neutralContext())
	assert.Equal(t, 1.0, calm.Risk)

	wild := s.Score(Inputs{Symbol: "TEST", Volatility: 0.20}, neutralContext())
	assert.Equal(t, -1.0, wild.Risk)

	invalid := s.Score(Inputs{Symbol: "TEST", Volatility: math.NaN()}, neutralContext())
	assert.Equal(t, 0.0, invalid.Risk)
}

func TestScore_AllComponentsBounded(t *testing.T) {
	s := NewScorer(DefaultConfig())
	scores := s.Score(Inputs{
		Symbol:      "TEST",
		Technical:   &domain.TechnicalSnapshot{RSI: 90, MACDHistogram: 5, SMA20: 120, SMA50: 100, Momentum: 3, Timestamp: time.Now()},
		Sentiment:   &domain.SentimentSnapshot{Score: 1.0, Confidence: 1.0, ArticleCount: 50, Timestamp: time.Now()},
		VolumeTrend: 2.0,
		Volatility:  0.0,
	}, neutralContext())

	for name, v := range map[string]float64{
		"technical": scores.Technical,
		"sentiment": scores.Sentiment,
		"volume":    scores.Volume,
		"risk":      scores.Risk,
	} {
		assert.GreaterOrEqualf(t, v, -1.0, "%s below bound", name)
		assert.LessOrEqualf(t, v, 1.0, "%s above bound", name)
	}
}
