package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/guard"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/metrics"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence/memory"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/report"
)

func newTestServer(t *testing.T, seed ...domain.Prediction) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for _, p := range seed {
		_, err := store.Record(context.Background(), p)
		require.NoError(t, err)
	}
	reporter := report.NewReporter(store, store.Outcomes())
	g := guard.NewGuard(store, guard.DefaultConfig())
	return NewServer(reporter, g, metrics.New()), store
}

func recentPrediction(symbol string, action domain.Action, age time.Duration) domain.Prediction {
	decided := time.Now().Add(-age)
	return domain.Prediction{
		Symbol:             symbol,
		DecisionTimestamp:  decided,
		Action:             action,
		Direction:          action.Direction(),
		EntryPrice:         100,
		Regime:             domain.RegimeNeutral,
		TechnicalTimestamp: decided,
		SentimentTimestamp: decided,
		Breakdown:          domain.ComponentBreakdown{Inputs: domain.ComponentInputs{RSI: 50}},
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestPredictionsEndpoint(t *testing.T) {
	s, _ := newTestServer(t,
		recentPrediction("CBA", domain.ActionBuy, time.Hour),
		recentPrediction("CBA", domain.ActionHold, 2*time.Hour),
		recentPrediction("BHP", domain.ActionSell, time.Hour),
	)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/CBA?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var predictions []domain.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &predictions))
	require.Len(t, predictions, 2)
	assert.Equal(t, domain.ActionBuy, predictions[0].Action)
}

func TestDistributionEndpoint(t *testing.T) {
	s, _ := newTestServer(t,
		recentPrediction("CBA", domain.ActionBuy, time.Hour),
		recentPrediction("BHP", domain.ActionHold, time.Hour),
	)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/distribution?window=24h", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var dist map[domain.Action]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dist))
	assert.Equal(t, 1, dist[domain.ActionBuy])
	assert.Equal(t, 1, dist[domain.ActionHold])
	assert.Equal(t, 0, dist[domain.ActionStrongSell])
}

func TestIntegrityEndpoint_ConflictOnViolation(t *testing.T) {
	bad := recentPrediction("XRO", domain.ActionBuy, 10*time.Hour)
	bad.TechnicalTimestamp = bad.DecisionTimestamp.Add(19 * time.Hour)

	s, _ := newTestServer(t, bad)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/integrity", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	var rep guard.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.False(t, rep.OK)
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, guard.KindFeatureAfterDecision, rep.Violations[0].Kind)
}

func TestIntegrityEndpoint_OKOnCleanTrail(t *testing.T) {
	s, _ := newTestServer(t, recentPrediction("CBA", domain.ActionHold, time.Hour))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/integrity", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccuracyEndpoint(t *testing.T) {
	s, store := newTestServer(t, recentPrediction("CBA", domain.ActionBuy, 30*time.Hour))

	recent, err := store.ListRecent(context.Background(), "CBA", 1)
	require.NoError(t, err)
	_, err = store.RecordOutcome(context.Background(), domain.Outcome{
		PredictionID:        recent[0].ID,
		EvaluationTimestamp: time.Now().Add(-time.Hour),
		ExitPrice:           104.5,
		ActualReturnPct:     4.5,
		ActualDirection:     domain.DirectionUp,
		Success:             true,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accuracy?window=168h", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var hr report.HitRate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hr))
	assert.Equal(t, 1, hr.Evaluated)
	assert.Equal(t, 1.0, hr.Rate)
}
