package domain

// Regime is the discrete classification of the broad-market trend used to
// adjust decision thresholds.
type Regime string

const (
	RegimeBearish     Regime = "BEARISH"
	RegimeWeakBearish Regime = "WEAK_BEARISH"
	RegimeNeutral     Regime = "NEUTRAL"
	RegimeWeakBullish Regime = "WEAK_BULLISH"
	RegimeBullish     Regime = "BULLISH"
)

// IsBearish reports whether the regime is BEARISH or WEAK_BEARISH.
func (r Regime) IsBearish() bool {
	return r == RegimeBearish || r == RegimeWeakBearish
}

// MarketContext carries the regime classification and the regime-dependent
// decision parameters for one cycle. Ephemeral: recomputed every cycle and
// embedded in the prediction audit trail rather than persisted on its own.
type MarketContext struct {
	Regime               Regime  `json:"regime"`
	TrendPct             float64 `json:"trend_pct"`
	BuyThreshold         float64 `json:"buy_threshold"`
	ConfidenceMultiplier float64 `json:"confidence_multiplier"`
}
