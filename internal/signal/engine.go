// Package signal combines component sub-scores and the market context into a
// final trading action. The engine is a pure function of its inputs: no state
// survives between cycles, and two configurations can be compared by running
// both over the same inputs.
package signal

import (
	"fmt"
	"math"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/score"
)

// Weights are the component blend weights. They should sum to 1.0.
type Weights struct {
	Technical float64 `yaml:"technical"` // Default: 0.4
	Sentiment float64 `yaml:"sentiment"` // Default: 0.3
	Volume    float64 `yaml:"volume"`    // Default: 0.2
	Risk      float64 `yaml:"risk"`      // Default: 0.1
}

// Config holds the decision engine tunables. The blocking-rule thresholds are
// invariants of the system, exposed as configuration for regression testing,
// not for tuning away.
type Config struct {
	Weights Weights `yaml:"weights"`

	// StrongMargin above the buy threshold upgrades BUY to STRONG_BUY, and
	// symmetrically below the mirrored sell threshold for STRONG_SELL.
	StrongMargin float64 `yaml:"strong_margin"` // Default: 0.15

	// CircuitBreakerVolume: strictly below this volume trend, the decision is
	// forced to HOLD no matter what every other component says.
	CircuitBreakerVolume float64 `yaml:"circuit_breaker_volume"` // Default: -0.30

	// SoftVolumeFloor: strictly below this trend, HOLD unless the technical
	// score (0-100) clears SoftVolumeMinTechnical and confidence beats the
	// buy threshold by SoftVolumeMargin.
	SoftVolumeFloor        float64 `yaml:"soft_volume_floor"`         // Default: -0.15
	SoftVolumeMinTechnical float64 `yaml:"soft_volume_min_technical"` // Default: 60
	SoftVolumeMargin       float64 `yaml:"soft_volume_margin"`        // Default: 0.05

	// BearishVolumeFloor: in a BEARISH regime, any volume trend at or below
	// this level blocks BUY signals entirely.
	BearishVolumeFloor float64 `yaml:"bearish_volume_floor"` // Default: -0.05
}

// DefaultConfig returns the production decision configuration.
func DefaultConfig() Config {
	return Config{
		Weights:                Weights{Technical: 0.4, Sentiment: 0.3, Volume: 0.2, Risk: 0.1},
		StrongMargin:           0.15,
		CircuitBreakerVolume:   -0.30,
		SoftVolumeFloor:        -0.15,
		SoftVolumeMinTechnical: 60.0,
		SoftVolumeMargin:       0.05,
		BearishVolumeFloor:     -0.05,
	}
}

// Decision is the engine output for one symbol.
type Decision struct {
	Action domain.Action `json:"action"`

	// Confidence is the conviction in the emitted action: the bullish
	// confidence for BUY paths, its mirror for SELL paths, and the distance
	// from either trigger for HOLD.
	Confidence float64 `json:"confidence"`

	// FinalConfidence is the regime-adjusted bullish-scale confidence in
	// [0, 1] that was compared against the thresholds.
	FinalConfidence float64 `json:"final_confidence"`

	Direction domain.Direction   `json:"direction"`
	Scores    score.Scores       `json:"scores"`
	RulePath  []domain.RuleCheck `json:"rule_path"`

	// Blocked is set when a volume rule forced HOLD or suppressed a BUY that
	// would otherwise have fired; cycle summaries count these separately.
	Blocked bool `json:"blocked"`
}

// Engine evaluates decisions. Stateless; safe for concurrent use.
type Engine struct {
	config Config
}

// NewEngine creates a decision engine. A zero-weight config is replaced by defaults.
func NewEngine(config Config) *Engine {
	if config.Weights == (Weights{}) {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// Evaluate runs the decision tree over one symbol's sub-scores and the cycle's
// market context. It always returns a decision; blocking rules resolve to HOLD
// rather than errors.
func (e *Engine) Evaluate(scores score.Scores, volumeTrend float64, mctx domain.MarketContext) Decision {
	cfg := e.config

	raw := cfg.Weights.Technical*scores.Technical +
		cfg.Weights.Sentiment*scores.Sentiment +
		cfg.Weights.Volume*scores.Volume +
		cfg.Weights.Risk*scores.Risk

	// Project the signed blend onto [0, 1], then apply the regime multiplier.
	confidence := clamp01(((raw + 1.0) / 2.0) * mctx.ConfidenceMultiplier)

	d := Decision{
		Scores:          scores,
		FinalConfidence: confidence,
	}

	// Rule 1: global volume circuit breaker. A trend of exactly the breaker
	// value does not trip it.
	breaker := domain.RuleCheck{
		Name:      "volume_circuit_breaker",
		Value:     volumeTrend,
		Threshold: cfg.CircuitBreakerVolume,
		Passed:    volumeTrend >= cfg.CircuitBreakerVolume,
	}
	if !breaker.Passed {
		breaker.Reason = fmt.Sprintf("volume trend %.2f below circuit breaker %.2f, forcing HOLD", volumeTrend, cfg.CircuitBreakerVolume)
	}
	d.RulePath = append(d.RulePath, breaker)
	if !breaker.Passed {
		return e.hold(d, true)
	}

	// Rule 2: soft volume floor. Requires a strong technical score and a
	// confidence margin over the buy threshold to proceed at all.
	if volumeTrend < cfg.SoftVolumeFloor {
		strongEnough := scores.TechnicalScale > cfg.SoftVolumeMinTechnical &&
			confidence > mctx.BuyThreshold+cfg.SoftVolumeMargin
		floor := domain.RuleCheck{
			Name:      "soft_volume_floor",
			Value:     scores.TechnicalScale,
			Threshold: cfg.SoftVolumeMinTechnical,
			Passed:    strongEnough,
		}
		if !strongEnough {
			floor.Reason = fmt.Sprintf("volume trend %.2f below %.2f without technical override, forcing HOLD", volumeTrend, cfg.SoftVolumeFloor)
		}
		d.RulePath = append(d.RulePath, floor)
		if !strongEnough {
			return e.hold(d, true)
		}
	}

	// Rule 3: bearish regimes demand non-declining volume before any BUY.
	buyAllowed := true
	if mctx.Regime == domain.RegimeBearish && volumeTrend <= cfg.BearishVolumeFloor {
		buyAllowed = false
		d.RulePath = append(d.RulePath, domain.RuleCheck{
			Name:      "bearish_volume_confirm",
			Value:     volumeTrend,
			Threshold: cfg.BearishVolumeFloor,
			Passed:    false,
			Reason:    fmt.Sprintf("BEARISH regime with declining volume %.2f, BUY blocked", volumeTrend),
		})
	}

	// BUY side.
	if confidence > mctx.BuyThreshold {
		check := domain.RuleCheck{
			Name:      "buy_threshold",
			Value:     confidence,
			Threshold: mctx.BuyThreshold,
			Passed:    buyAllowed,
		}
		if !buyAllowed {
			check.Reason = "confidence cleared buy threshold but BUY is blocked by volume rules"
			d.RulePath = append(d.RulePath, check)
			return e.hold(d, true)
		}
		d.RulePath = append(d.RulePath, check)

		action := domain.ActionBuy
		if confidence > mctx.BuyThreshold+cfg.StrongMargin {
			action = domain.ActionStrongBuy
			d.RulePath = append(d.RulePath, domain.RuleCheck{
				Name:      "strong_buy_threshold",
				Value:     confidence,
				Threshold: mctx.BuyThreshold + cfg.StrongMargin,
				Passed:    true,
			})
		}
		return e.finish(d, action, confidence)
	}

	// SELL side: mirrored threshold on the same bullish confidence scale.
	sellThreshold := 1.0 - mctx.BuyThreshold
	if confidence < sellThreshold {
		d.RulePath = append(d.RulePath, domain.RuleCheck{
			Name:      "sell_threshold",
			Value:     confidence,
			Threshold: sellThreshold,
			Passed:    true,
		})
		action := domain.ActionSell
		if confidence < sellThreshold-cfg.StrongMargin {
			action = domain.ActionStrongSell
			d.RulePath = append(d.RulePath, domain.RuleCheck{
				Name:      "strong_sell_threshold",
				Value:     confidence,
				Threshold: sellThreshold - cfg.StrongMargin,
				Passed:    true,
			})
		}
		return e.finish(d, action, 1.0-confidence)
	}

	return e.hold(d, false)
}

func (e *Engine) hold(d Decision, blocked bool) Decision {
	d.Blocked = blocked
	// Conviction in HOLD is the distance from either decision trigger.
	return e.finish(d, domain.ActionHold, clamp01(1.0-math.Abs(2.0*d.FinalConfidence-1.0)))
}

func (e *Engine) finish(d Decision, action domain.Action, conviction float64) Decision {
	d.Action = action
	d.Confidence = clamp01(conviction)
	d.Direction = action.Direction()
	return d
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
