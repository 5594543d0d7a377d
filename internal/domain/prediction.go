package domain

import (
	"time"
)

// Action is the discrete trading action emitted by the decision engine.
type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionBuy        Action = "BUY"
	ActionHold       Action = "HOLD"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

// Direction is the price movement implied by an action, or realized by the market.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionFlat Direction = "FLAT"
)

// Direction maps an action to the movement it predicts.
func (a Action) Direction() Direction {
	switch a {
	case ActionBuy, ActionStrongBuy:
		return DirectionUp
	case ActionSell, ActionStrongSell:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// IsBuy reports whether the action is BUY or STRONG_BUY.
func (a Action) IsBuy() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

// IsSell reports whether the action is SELL or STRONG_SELL.
func (a Action) IsSell() bool {
	return a == ActionSell || a == ActionStrongSell
}

// RuleCheck records a single decision rule evaluation for post-hoc audit.
// Every BUY/SELL decision retains the full rule path that produced it so a
// bias failure (e.g. 95% BUY) can be traced back to the rules that let it through.
type RuleCheck struct {
	Name      string  `json:"name"`
	Passed    bool    `json:"passed"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Reason    string  `json:"reason,omitempty"`
}

// ComponentInputs preserves the raw feature values a decision was computed from.
type ComponentInputs struct {
	RSI            float64 `json:"rsi"`
	MACDHistogram  float64 `json:"macd_histogram"`
	SentimentScore float64 `json:"sentiment_score"`
	VolumeTrend    float64 `json:"volume_trend"`
	Volatility     float64 `json:"volatility"`
}

// ComponentBreakdown is the per-factor contribution audit trail attached to a
// prediction. It is a fixed tagged structure rather than a free-form map so a
// missing or renamed component fails at compile time, not silently at runtime.
type ComponentBreakdown struct {
	Technical float64         `json:"technical"`
	Sentiment float64         `json:"sentiment"`
	Volume    float64         `json:"volume"`
	Risk      float64         `json:"risk"`
	Inputs    ComponentInputs `json:"inputs"`
	RulePath  []RuleCheck     `json:"rule_path,omitempty"`
}

// Prediction is one persisted trading decision. Immutable once written: the
// store is append-only and the evaluator never touches prediction rows.
type Prediction struct {
	ID                string             `json:"prediction_id" db:"prediction_id"`
	Symbol            string             `json:"symbol" db:"symbol"`
	DecisionTimestamp time.Time          `json:"decision_timestamp" db:"decision_ts"`
	Action            Action             `json:"predicted_action" db:"predicted_action"`
	Confidence        float64            `json:"action_confidence" db:"action_confidence"`
	Direction         Direction          `json:"predicted_direction" db:"predicted_direction"`
	Breakdown         ComponentBreakdown `json:"component_breakdown" db:"component_breakdown"`
	EntryPrice        float64            `json:"entry_price" db:"entry_price"`
	Regime            Regime             `json:"regime" db:"regime"`
	ModelVersion      string             `json:"model_version" db:"model_version"`

	// Feature observation timestamps, kept as first-class columns so the
	// temporal integrity guard can query for look-ahead violations.
	TechnicalTimestamp time.Time `json:"technical_timestamp" db:"technical_ts"`
	SentimentTimestamp time.Time `json:"sentiment_timestamp" db:"sentiment_ts"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Outcome is the realized result of one matured prediction, 1:1 by prediction ID.
type Outcome struct {
	ID                  string    `json:"outcome_id" db:"outcome_id"`
	PredictionID        string    `json:"prediction_id" db:"prediction_id"`
	EvaluationTimestamp time.Time `json:"evaluation_timestamp" db:"evaluation_ts"`
	ExitPrice           float64   `json:"exit_price" db:"exit_price"`
	ActualReturnPct     float64   `json:"actual_return_pct" db:"actual_return_pct"`
	ActualDirection     Direction `json:"actual_direction" db:"actual_direction"`
	Success             bool      `json:"success" db:"success"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}
