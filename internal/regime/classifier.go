package regime

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

// IndexProvider supplies the trailing broad-index trend used for classification.
type IndexProvider interface {
	GetIndexTrend(ctx context.Context, lookbackSessions int) (float64, error)
}

// Band maps a trend range to a regime and its decision parameters. Bands are
// matched bottom-up; a trend exactly on a band edge resolves toward neutral,
// so sub-neutral bands exclude their upper bound and the rest include it.
type Band struct {
	Max                  float64       `yaml:"max"` // upper bound of trend_pct for this band
	Regime               domain.Regime `yaml:"regime"`
	BuyThreshold         float64       `yaml:"buy_threshold"`
	ConfidenceMultiplier float64       `yaml:"confidence_multiplier"`
}

// Config holds the regime classification bands. Thresholds are configuration,
// not constants baked into the classifier.
type Config struct {
	LookbackSessions int    `yaml:"lookback_sessions"` // Default: 5
	Bands            []Band `yaml:"bands"`
	// Top-of-range parameters used when trend_pct exceeds every band's Max.
	TopRegime               domain.Regime `yaml:"top_regime"`
	TopBuyThreshold         float64       `yaml:"top_buy_threshold"`
	TopConfidenceMultiplier float64       `yaml:"top_confidence_multiplier"`
}

// DefaultConfig returns the production band table.
func DefaultConfig() Config {
	return Config{
		LookbackSessions: 5,
		Bands: []Band{
			{Max: -1.5, Regime: domain.RegimeBearish, BuyThreshold: 0.80, ConfidenceMultiplier: 0.7},
			{Max: -0.5, Regime: domain.RegimeWeakBearish, BuyThreshold: 0.75, ConfidenceMultiplier: 0.9},
			{Max: 0.5, Regime: domain.RegimeNeutral, BuyThreshold: 0.70, ConfidenceMultiplier: 1.0},
			{Max: 1.5, Regime: domain.RegimeWeakBullish, BuyThreshold: 0.68, ConfidenceMultiplier: 1.05},
		},
		TopRegime:               domain.RegimeBullish,
		TopBuyThreshold:         0.65,
		TopConfidenceMultiplier: 1.1,
	}
}

// Classifier turns a broad-index trend percentage into a market context.
type Classifier struct {
	config Config
	inputs IndexProvider
}

// NewClassifier creates a classifier over the given index provider.
func NewClassifier(inputs IndexProvider, config Config) *Classifier {
	sort.Slice(config.Bands, func(i, j int) bool { return config.Bands[i].Max < config.Bands[j].Max })
	return &Classifier{config: config, inputs: inputs}
}

// Classify maps a trend percentage onto the configured band table. An exact
// band edge takes the less-bearish side: -1.5 is WEAK_BEARISH and -0.5 is
// NEUTRAL, while 0.5 stays NEUTRAL and 1.5 stays WEAK_BULLISH.
func (c *Classifier) Classify(trendPct float64) domain.MarketContext {
	for _, band := range c.config.Bands {
		if trendPct < band.Max || (trendPct == band.Max && band.Max > 0) {
			return domain.MarketContext{
				Regime:               band.Regime,
				TrendPct:             trendPct,
				BuyThreshold:         band.BuyThreshold,
				ConfidenceMultiplier: band.ConfidenceMultiplier,
			}
		}
	}
	return domain.MarketContext{
		Regime:               c.config.TopRegime,
		TrendPct:             trendPct,
		BuyThreshold:         c.config.TopBuyThreshold,
		ConfidenceMultiplier: c.config.TopConfidenceMultiplier,
	}
}

// ClassifyCurrent fetches the index trend and classifies it. On missing or
// insufficient index data it fails open to NEUTRAL with default parameters;
// it never returns an error because the decision cycle must always produce
// a context.
func (c *Classifier) ClassifyCurrent(ctx context.Context) domain.MarketContext {
	trendPct, err := c.inputs.GetIndexTrend(ctx, c.config.LookbackSessions)
	if err != nil {
		log.Warn().Err(err).Int("lookback_sessions", c.config.LookbackSessions).
			Msg("index trend unavailable, failing open to NEUTRAL")
		return NeutralContext()
	}
	return c.Classify(trendPct)
}

// NeutralContext is the fail-open market context used when index data is missing.
func NeutralContext() domain.MarketContext {
	return domain.MarketContext{
		Regime:               domain.RegimeNeutral,
		TrendPct:             0,
		BuyThreshold:         0.70,
		ConfidenceMultiplier: 1.0,
	}
}
