package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrDataUnavailable signals an upstream feed miss or timeout. The affected
// component degrades to a neutral contribution; the cycle continues.
var ErrDataUnavailable = errors.New("market data unavailable")

// ErrEvaluationSkipped is the normal idempotent no-op result when an outcome
// already exists for a prediction or its realized price is not yet available.
var ErrEvaluationSkipped = errors.New("evaluation skipped")

// DuplicateDecisionError is returned by the prediction store when a write
// conflicts on (symbol, decision_timestamp). The caller logs and skips the
// symbol; the existing row is never overwritten.
type DuplicateDecisionError struct {
	Symbol            string
	DecisionTimestamp time.Time
}

func (e *DuplicateDecisionError) Error() string {
	return fmt.Sprintf("duplicate decision for %s at %s", e.Symbol, e.DecisionTimestamp.Format(time.RFC3339))
}

// TemporalIntegrityError aborts an entire decision cycle: the persisted
// decision trail contains records computed from future-dated data.
type TemporalIntegrityError struct {
	Violations []string
}

func (e *TemporalIntegrityError) Error() string {
	return fmt.Sprintf("temporal integrity check failed with %d violation(s)", len(e.Violations))
}
