package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func samplePrediction() domain.Prediction {
	decided := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	return domain.Prediction{
		Symbol:            "CBA",
		DecisionTimestamp: decided,
		Action:            domain.ActionBuy,
		Confidence:        0.76,
		Direction:         domain.DirectionUp,
		Breakdown: domain.ComponentBreakdown{
			Technical: 0.5, Sentiment: 0.3, Volume: 0.2, Risk: 0.4,
			Inputs: domain.ComponentInputs{RSI: 62, VolumeTrend: 0.05},
		},
		EntryPrice:         105.0,
		Regime:             domain.RegimeBullish,
		ModelVersion:       "v2",
		TechnicalTimestamp: decided.Add(-time.Minute),
		SentimentTimestamp: decided.Add(-time.Hour),
	}
}

func TestPredictionRecord_AssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionStore(db, 5*time.Second)

	mock.ExpectExec("INSERT INTO predictions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Record(context.Background(), samplePrediction())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionRecord_UniqueViolationMapsToDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionStore(db, 5*time.Second)

	mock.ExpectExec("INSERT INTO predictions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "predictions_symbol_decision_ts_key"})

	p := samplePrediction()
	_, err := repo.Record(context.Background(), p)

	var dup *domain.DuplicateDecisionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "CBA", dup.Symbol)
	assert.Equal(t, p.DecisionTimestamp, dup.DecisionTimestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionGet_RoundTripsBreakdown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionStore(db, 5*time.Second)

	p := samplePrediction()
	p.ID = "pred-1"
	breakdownJSON, err := json.Marshal(p.Breakdown)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"prediction_id", "symbol", "decision_ts", "predicted_action",
		"action_confidence", "predicted_direction", "component_breakdown",
		"entry_price", "regime", "model_version", "technical_ts",
		"sentiment_ts", "created_at",
	}).AddRow(
		p.ID, p.Symbol, p.DecisionTimestamp, string(p.Action),
		p.Confidence, string(p.Direction), breakdownJSON,
		p.EntryPrice, string(p.Regime), p.ModelVersion, p.TechnicalTimestamp,
		p.SentimentTimestamp, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM predictions WHERE prediction_id").
		WithArgs("pred-1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "pred-1")
	require.NoError(t, err)
	assert.Equal(t, p.Symbol, got.Symbol)
	assert.Equal(t, p.Breakdown.Technical, got.Breakdown.Technical)
	assert.Equal(t, p.Breakdown.Inputs.RSI, got.Breakdown.Inputs.RSI)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionGet_NoRowsMapsToNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionStore(db, 5*time.Second)

	mock.ExpectQuery("SELECT (.+) FROM predictions WHERE prediction_id").
		WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"prediction_id"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestListPending_ExcludesEvaluated(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionStore(db, 5*time.Second)

	before := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM predictions p(.+)NOT EXISTS").
		WithArgs(before, 200).
		WillReturnRows(sqlmock.NewRows([]string{
			"prediction_id", "symbol", "decision_ts", "predicted_action",
			"action_confidence", "predicted_direction", "component_breakdown",
			"entry_price", "regime", "model_version", "technical_ts",
			"sentiment_ts", "created_at",
		}))

	pending, err := repo.ListPending(context.Background(), before, 200)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcomeRecord_UniqueViolationMapsToExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeStore(db, 5*time.Second)

	mock.ExpectExec("INSERT INTO outcomes").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "outcomes_prediction_id_key"})

	_, err := repo.Record(context.Background(), domain.Outcome{PredictionID: "pred-1"})
	assert.ErrorIs(t, err, persistence.ErrOutcomeExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcomeRecord_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeStore(db, 5*time.Second)

	mock.ExpectExec("INSERT INTO outcomes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Record(context.Background(), domain.Outcome{
		PredictionID:        "pred-1",
		EvaluationTimestamp: time.Now(),
		ExitPrice:           104.5,
		ActualReturnPct:     4.5,
		ActualDirection:     domain.DirectionUp,
		Success:             true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestOutcomeGetByPrediction_NoRowsMapsToNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeStore(db, 5*time.Second)

	mock.ExpectQuery("SELECT (.+) FROM outcomes").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"outcome_id"}))

	_, err := repo.GetByPrediction(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}
