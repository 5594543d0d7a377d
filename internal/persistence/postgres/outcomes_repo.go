package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
)

// outcomesRepo implements persistence.OutcomeStore on PostgreSQL.
type outcomesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOutcomeStore creates a PostgreSQL-backed outcome store.
func NewOutcomeStore(db *sqlx.DB, timeout time.Duration) persistence.OutcomeStore {
	return &outcomesRepo{db: db, timeout: timeout}
}

// Record writes one outcome. The prediction_id unique constraint makes a
// duplicate write surface as ErrOutcomeExists, which evaluators treat as an
// idempotent skip.
func (r *outcomesRepo) Record(ctx context.Context, o domain.Outcome) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	query := `
		INSERT INTO outcomes (
			outcome_id, prediction_id, evaluation_ts, exit_price,
			actual_return_pct, actual_direction, success
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.PredictionID, o.EvaluationTimestamp, o.ExitPrice,
		o.ActualReturnPct, o.ActualDirection, o.Success)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", persistence.ErrOutcomeExists
		}
		return "", fmt.Errorf("failed to insert outcome: %w", err)
	}

	return o.ID, nil
}

// GetByPrediction retrieves the outcome linked to a prediction.
func (r *outcomesRepo) GetByPrediction(ctx context.Context, predictionID string) (*domain.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT outcome_id, prediction_id, evaluation_ts, exit_price,
		       actual_return_pct, actual_direction, success, created_at
		FROM outcomes
		WHERE prediction_id = $1`

	var o domain.Outcome
	err := r.db.QueryRowxContext(ctx, query, predictionID).Scan(
		&o.ID, &o.PredictionID, &o.EvaluationTimestamp, &o.ExitPrice,
		&o.ActualReturnPct, &o.ActualDirection, &o.Success, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}

	return &o, nil
}

// ListSince returns outcomes evaluated at or after the given time.
func (r *outcomesRepo) ListSince(ctx context.Context, since time.Time) ([]domain.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT outcome_id, prediction_id, evaluation_ts, exit_price,
		       actual_return_pct, actual_direction, success, created_at
		FROM outcomes
		WHERE evaluation_ts >= $1
		ORDER BY evaluation_ts DESC`

	rows, err := r.db.QueryxContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var outcomes []domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		if err := rows.Scan(
			&o.ID, &o.PredictionID, &o.EvaluationTimestamp, &o.ExitPrice,
			&o.ActualReturnPct, &o.ActualDirection, &o.Success, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome rows: %w", err)
	}

	return outcomes, nil
}
