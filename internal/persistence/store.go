// Package persistence defines the append-only stores for predictions and
// outcomes. Predictions are written exactly once by the decision cycle and
// never mutated; outcomes link 1:1 to matured predictions.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrOutcomeExists is returned when an outcome write conflicts on
// prediction_id. Callers treat it as an idempotent no-op, not a failure.
var ErrOutcomeExists = errors.New("outcome already recorded for prediction")

// PredictionStore persists trading decisions. Writes are append-only and
// unique on (symbol, decision_timestamp); a conflicting write fails with
// *domain.DuplicateDecisionError rather than silently overwriting.
type PredictionStore interface {
	// Record writes one prediction and returns its generated ID.
	Record(ctx context.Context, p domain.Prediction) (string, error)

	// Get retrieves a prediction by ID, ErrNotFound when absent.
	Get(ctx context.Context, predictionID string) (*domain.Prediction, error)

	// ListPending returns predictions older than the cutoff that have no
	// linked outcome yet, oldest first.
	ListPending(ctx context.Context, before time.Time, limit int) ([]domain.Prediction, error)

	// ListRecent returns the newest predictions for a symbol.
	ListRecent(ctx context.Context, symbol string, limit int) ([]domain.Prediction, error)

	// ListSince returns all predictions decided at or after the given time,
	// newest first. Used by the temporal integrity guard and bias reporting.
	ListSince(ctx context.Context, since time.Time) ([]domain.Prediction, error)
}

// OutcomeStore persists realized results, at most one per prediction.
type OutcomeStore interface {
	// Record writes one outcome and returns its generated ID. A second write
	// for the same prediction fails with ErrOutcomeExists.
	Record(ctx context.Context, o domain.Outcome) (string, error)

	// GetByPrediction retrieves the outcome linked to a prediction,
	// ErrNotFound when the prediction has not been evaluated yet.
	GetByPrediction(ctx context.Context, predictionID string) (*domain.Outcome, error)

	// ListSince returns outcomes evaluated at or after the given time.
	ListSince(ctx context.Context, since time.Time) ([]domain.Outcome, error)
}

// Store aggregates both repositories behind one handle.
type Store struct {
	Predictions PredictionStore
	Outcomes    OutcomeStore
}
