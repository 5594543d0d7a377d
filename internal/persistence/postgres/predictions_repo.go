package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
)

const uniqueViolation = "23505"

// predictionsRepo implements persistence.PredictionStore on PostgreSQL.
type predictionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPredictionStore creates a PostgreSQL-backed prediction store.
func NewPredictionStore(db *sqlx.DB, timeout time.Duration) persistence.PredictionStore {
	return &predictionsRepo{db: db, timeout: timeout}
}

// Record writes one prediction. The (symbol, decision_ts) unique constraint
// turns a duplicate write into *domain.DuplicateDecisionError so callers can
// skip the symbol instead of overwriting history.
func (r *predictionsRepo) Record(ctx context.Context, p domain.Prediction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	breakdownJSON, err := json.Marshal(p.Breakdown)
	if err != nil {
		return "", fmt.Errorf("failed to marshal component breakdown: %w", err)
	}

	query := `
		INSERT INTO predictions (
			prediction_id, symbol, decision_ts, predicted_action, action_confidence,
			predicted_direction, component_breakdown, entry_price, regime,
			model_version, technical_ts, sentiment_ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Symbol, p.DecisionTimestamp, p.Action, p.Confidence,
		p.Direction, breakdownJSON, p.EntryPrice, p.Regime,
		p.ModelVersion, p.TechnicalTimestamp, p.SentimentTimestamp)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", &domain.DuplicateDecisionError{Symbol: p.Symbol, DecisionTimestamp: p.DecisionTimestamp}
		}
		return "", fmt.Errorf("failed to insert prediction: %w", err)
	}

	return p.ID, nil
}

// Get retrieves a prediction by ID.
func (r *predictionsRepo) Get(ctx context.Context, predictionID string) (*domain.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, selectPredictionColumns+` FROM predictions WHERE prediction_id = $1`, predictionID)
	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

// ListPending returns matured predictions that have no linked outcome yet.
func (r *predictionsRepo) ListPending(ctx context.Context, before time.Time, limit int) ([]domain.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectPredictionColumns + `
		FROM predictions p
		WHERE p.decision_ts <= $1
		  AND NOT EXISTS (SELECT 1 FROM outcomes o WHERE o.prediction_id = p.prediction_id)
		ORDER BY p.decision_ts ASC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// ListRecent returns the newest predictions for a symbol.
func (r *predictionsRepo) ListRecent(ctx context.Context, symbol string, limit int) ([]domain.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectPredictionColumns + `
		FROM predictions p
		WHERE p.symbol = $1
		ORDER BY p.decision_ts DESC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// ListSince returns all predictions decided at or after the given time.
func (r *predictionsRepo) ListSince(ctx context.Context, since time.Time) ([]domain.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectPredictionColumns + `
		FROM predictions p
		WHERE p.decision_ts >= $1
		ORDER BY p.decision_ts DESC`

	rows, err := r.db.QueryxContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

const selectPredictionColumns = `
	SELECT p.prediction_id, p.symbol, p.decision_ts, p.predicted_action,
	       p.action_confidence, p.predicted_direction, p.component_breakdown,
	       p.entry_price, p.regime, p.model_version, p.technical_ts,
	       p.sentiment_ts, p.created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(row rowScanner) (*domain.Prediction, error) {
	var p domain.Prediction
	var breakdownJSON []byte

	err := row.Scan(
		&p.ID, &p.Symbol, &p.DecisionTimestamp, &p.Action,
		&p.Confidence, &p.Direction, &breakdownJSON,
		&p.EntryPrice, &p.Regime, &p.ModelVersion, &p.TechnicalTimestamp,
		&p.SentimentTimestamp, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &p.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal component breakdown: %w", err)
		}
	}

	return &p, nil
}

func scanPredictions(rows *sqlx.Rows) ([]domain.Prediction, error) {
	var predictions []domain.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}
		predictions = append(predictions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction rows: %w", err)
	}
	return predictions, nil
}
