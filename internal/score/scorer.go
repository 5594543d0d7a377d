// Package score turns raw technical, sentiment, volume and risk inputs into
// four bounded sub-scores in [-1, 1]. Missing or invalid inputs degrade that
// component to a neutral 0 contribution and log a data-quality warning; they
// never abort scoring.
package score

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

// PenaltyTier applies a fixed penalty to the volume sub-score when the volume
// trend falls below the tier floor. Tiers are evaluated most-severe first.
type PenaltyTier struct {
	Below   float64 `yaml:"below"`   // volume_trend strictly below this value
	Penalty float64 `yaml:"penalty"` // negative contribution applied
}

// Config holds all scorer tunables. Defaults mirror the historically tuned
// values; they are configuration, not contract.
type Config struct {
	// Volume penalty tiers, most severe first. The boundary value itself
	// takes the next (lower-severity) tier.
	VolumePenaltyTiers []PenaltyTier `yaml:"volume_penalty_tiers"`

	// Sentiment thresholds. In bearish regimes positive sentiment must clear
	// a higher bar before it contributes, and negative sentiment is penalized
	// more aggressively.
	SentimentPosThreshold        float64 `yaml:"sentiment_pos_threshold"`         // Default: 0.05
	SentimentPosThresholdBearish float64 `yaml:"sentiment_pos_threshold_bearish"` // Default: 0.15
	SentimentNegThreshold        float64 `yaml:"sentiment_neg_threshold"`         // Default: -0.05
	BearishNegativeMultiplier    float64 `yaml:"bearish_negative_multiplier"`     // Default: 1.5
	FullCredibilityArticles      int     `yaml:"full_credibility_articles"`       // Default: 5

	// Volatility at or above this level scores maximum risk (-1).
	VolatilityCeiling float64 `yaml:"volatility_ceiling"` // Default: 0.08
}

// DefaultConfig returns the production scoring configuration.
func DefaultConfig() Config {
	return Config{
		VolumePenaltyTiers: []PenaltyTier{
			{Below: -0.40, Penalty: -0.20},
			{Below: -0.20, Penalty: -0.15},
			{Below: -0.10, Penalty: -0.08},
		},
		SentimentPosThreshold:        0.05,
		SentimentPosThresholdBearish: 0.15,
		SentimentNegThreshold:        -0.05,
		BearishNegativeMultiplier:    1.5,
		FullCredibilityArticles:      5,
		VolatilityCeiling:            0.08,
	}
}

// Inputs aggregates everything the scorer consumes for one symbol.
type Inputs struct {
	Symbol      string
	Technical   *domain.TechnicalSnapshot // nil when the feed was unavailable
	Sentiment   *domain.SentimentSnapshot // nil when the feed was unavailable
	VolumeTrend float64                   // trailing volume change, -1.0 = halved and worse
	Volatility  float64                   // realized volatility risk proxy
}

// Scores is the bounded sub-score vector consumed by the decision engine.
type Scores struct {
	Technical float64 `json:"technical"` // [-1, 1]
	Sentiment float64 `json:"sentiment"` // [-1, 1]
	Volume    float64 `json:"volume"`    // [-1, 1]
	Risk      float64 `json:"risk"`      // [-1, 1]

	// TechnicalScale is the technical sub-score projected onto 0-100, used by
	// the volume blocking rules.
	TechnicalScale float64 `json:"technical_scale"`
}

// Scorer computes component sub-scores from raw inputs.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer. A nil-equivalent zero config is replaced by defaults.
func NewScorer(config Config) *Scorer {
	if len(config.VolumePenaltyTiers) == 0 {
		config = DefaultConfig()
	}
	return &Scorer{config: config}
}

// Score computes the four sub-scores for one symbol and regime.
func (s *Scorer) Score(in Inputs, mctx domain.MarketContext) Scores {
	out := Scores{
		Technical: s.technicalScore(in.Symbol, in.Technical),
		Sentiment: s.sentimentScore(in.Symbol, in.Sentiment, mctx.Regime),
		Volume:    s.volumeScore(in.Symbol, in.VolumeTrend),
		Risk:      s.riskScore(in.Symbol, in.Volatility),
	}
	out.TechnicalScale = (out.Technical + 1.0) * 50.0
	return out
}

// technicalScore blends RSI deviation, MACD histogram sign, the moving-average
// relationship and momentum into one bounded score.
func (s *Scorer) technicalScore(symbol string, snap *domain.TechnicalSnapshot) float64 {
	if snap == nil {
		log.Warn().Str("symbol", symbol).Str("component", "technical").
			Msg("technical snapshot missing, degrading to neutral")
		return 0
	}
	if !validFloat(snap.RSI) || snap.RSI < 0 || snap.RSI > 100 {
		log.Warn().Str("symbol", symbol).Float64("rsi", snap.RSI).
			Msg("RSI out of bounds, degrading technical score to neutral")
		return 0
	}

	// RSI 50 is neutral; 0 and 100 clamp to the extremes.
	rsiComponent := clamp((snap.RSI-50.0)/50.0, -1, 1)

	macdComponent := clamp(snap.MACDHistogram, -1, 1)
	if !validFloat(snap.MACDHistogram) {
		macdComponent = 0
	}

	maComponent := 0.0
	if validFloat(snap.SMA20) && validFloat(snap.SMA50) && snap.SMA50 > 0 {
		// Golden/death cross proximity, capped at a 5% spread.
		maComponent = clamp((snap.SMA20-snap.SMA50)/snap.SMA50/0.05, -1, 1)
	}

	momentumComponent := clamp(snap.Momentum, -1, 1)
	if !validFloat(snap.Momentum) {
		momentumComponent = 0
	}

	return clamp(0.35*rsiComponent+0.25*macdComponent+0.2*maComponent+0.2*momentumComponent, -1, 1)
}

// sentimentScore applies the regime-aware asymmetry: in adverse regimes,
// positive sentiment must be stronger before it contributes, and negative
// sentiment is penalized harder.
func (s *Scorer) sentimentScore(symbol string, snap *domain.SentimentSnapshot, regime domain.Regime) float64 {
	if snap == nil {
		log.Warn().Str("symbol", symbol).Str("component", "sentiment").
			Msg("sentiment snapshot missing, degrading to neutral")
		return 0
	}
	if !validFloat(snap.Score) || snap.Score < -1 || snap.Score > 1 ||
		!validFloat(snap.Confidence) || snap.Confidence < 0 || snap.Confidence > 1 {
		log.Warn().Str("symbol", symbol).Float64("score", snap.Score).
			Float64("confidence", snap.Confidence).
			Msg("sentiment out of bounds, degrading to neutral")
		return 0
	}

	posThreshold := s.config.SentimentPosThreshold
	if regime.IsBearish() {
		posThreshold = s.config.SentimentPosThresholdBearish
	}

	// Thin coverage discounts the contribution linearly.
	credibility := 1.0
	if s.config.FullCredibilityArticles > 0 && snap.ArticleCount < s.config.FullCredibilityArticles {
		credibility = float64(snap.ArticleCount) / float64(s.config.FullCredibilityArticles)
	}

	switch {
	case snap.Score >= posThreshold:
		return clamp(snap.Score*snap.Confidence*credibility, -1, 1)
	case snap.Score <= s.config.SentimentNegThreshold:
		contribution := snap.Score * snap.Confidence * credibility
		if regime.IsBearish() {
			contribution *= s.config.BearishNegativeMultiplier
		}
		return clamp(contribution, -1, 1)
	default:
		// Inside the dead band: sentiment too weak to corroborate anything.
		return 0
	}
}

// volumeScore converts the volume trend into a bounded score and applies the
// tiered decline penalty that exists to kill the historical BUY bias.
func (s *Scorer) volumeScore(symbol string, volumeTrend float64) float64 {
	if !validFloat(volumeTrend) {
		log.Warn().Str("symbol", symbol).Str("component", "volume").
			Msg("volume trend invalid, degrading to neutral")
		return 0
	}

	base := clamp(volumeTrend, -1, 1) * 0.5
	return clamp(base+s.volumePenalty(volumeTrend), -1, 1)
}

// volumePenalty returns the tier penalty for a declining volume trend. A trend
// exactly on a tier boundary takes the lower-severity tier.
func (s *Scorer) volumePenalty(volumeTrend float64) float64 {
	for _, tier := range s.config.VolumePenaltyTiers {
		if volumeTrend < tier.Below {
			return tier.Penalty
		}
	}
	return 0
}

// riskScore maps realized volatility onto [-1, 1]: calm markets score positive,
// volatility at the ceiling or beyond scores -1.
func (s *Scorer) riskScore(symbol string, volatility float64) float64 {
	if !validFloat(volatility) || volatility < 0 {
		log.Warn().Str("symbol", symbol).Str("component", "risk").
			Float64("volatility", volatility).
			Msg("volatility invalid, degrading to neutral")
		return 0
	}
	if s.config.VolatilityCeiling <= 0 {
		return 0
	}
	return clamp(1.0-2.0*volatility/s.config.VolatilityCeiling, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func validFloat(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
