package outcome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence/memory"
)

var evalNow = time.Date(2026, 3, 11, 16, 0, 0, 0, time.UTC)

type stubPrices struct {
	prices map[string]float64
}

func (s *stubPrices) GetOHLCV(ctx context.Context, symbol string, lookback int) ([]domain.OHLCV, error) {
	return nil, domain.ErrDataUnavailable
}

func (s *stubPrices) GetTechnicalIndicators(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error) {
	return nil, domain.ErrDataUnavailable
}

func (s *stubPrices) GetPriceAt(ctx context.Context, symbol string, at time.Time) (float64, error) {
	price, ok := s.prices[symbol]
	if !ok {
		return 0, domain.ErrDataUnavailable
	}
	return price, nil
}

func maturedPrediction(symbol string, action domain.Action, entry float64) domain.Prediction {
	decided := evalNow.Add(-30 * time.Hour)
	return domain.Prediction{
		Symbol:             symbol,
		DecisionTimestamp:  decided,
		Action:             action,
		Direction:          action.Direction(),
		EntryPrice:         entry,
		Regime:             domain.RegimeNeutral,
		ModelVersion:       "v2",
		TechnicalTimestamp: decided,
		SentimentTimestamp: decided,
	}
}

func newTestEvaluator(store *memory.Store, prices map[string]float64) *Evaluator {
	e := NewEvaluator(store, store.Outcomes(), &stubPrices{prices: prices}, DefaultConfig())
	e.now = func() time.Time { return evalNow }
	return e
}

func TestEvaluatePending_BuySuccess(t *testing.T) {
	store := memory.NewStore()
	id, err := store.Record(context.Background(), maturedPrediction("CBA", domain.ActionBuy, 100.0))
	require.NoError(t, err)

	e := newTestEvaluator(store, map[string]float64{"CBA": 104.5})

	n, err := e.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	o, err := store.GetByPrediction(context.Background(), id)
	require.NoError(t, err)
	assert.InDelta(t, 4.50, o.ActualReturnPct, 1e-9)
	assert.Equal(t, domain.DirectionUp, o.ActualDirection)
	assert.True(t, o.Success)
	assert.Equal(t, 104.5, o.ExitPrice)
}

func TestEvaluatePending_RerunIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	id, err := store.Record(context.Background(), maturedPrediction("CBA", domain.ActionBuy, 100.0))
	require.NoError(t, err)

	e := newTestEvaluator(store, map[string]float64{"CBA": 104.5})

	n, err := e.EvaluatePending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	first, err := store.GetByPrediction(context.Background(), id)
	require.NoError(t, err)

	// Second run over the same window: nothing new, nothing overwritten.
	n, err = e.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	second, err := store.GetByPrediction(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ActualReturnPct, second.ActualReturnPct)
}

func TestEvaluatePending_ImmaturePredictionsWait(t *testing.T) {
	store := memory.NewStore()
	fresh := maturedPrediction("BHP", domain.ActionBuy, 50.0)
	fresh.DecisionTimestamp = evalNow.Add(-2 * time.Hour)
	_, err := store.Record(context.Background(), fresh)
	require.NoError(t, err)

	e := newTestEvaluator(store, map[string]float64{"BHP": 55.0})

	n, err := e.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEvaluatePending_MissingPriceStaysPending(t *testing.T) {
	store := memory.NewStore()
	id, err := store.Record(context.Background(), maturedPrediction("WBC", domain.ActionSell, 25.0))
	require.NoError(t, err)

	e := newTestEvaluator(store, map[string]float64{})

	n, err := e.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The prediction is untouched and picked up once the price arrives.
	_, err = store.GetByPrediction(context.Background(), id)
	assert.Error(t, err)

	e = newTestEvaluator(store, map[string]float64{"WBC": 24.0})
	n, err = e.EvaluatePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEvaluatePending_DirectionAndSuccessRules(t *testing.T) {
	tests := []struct {
		name      string
		action    domain.Action
		entry     float64
		exit      float64
		direction domain.Direction
		success   bool
	}{
		{"buy rewarded on up move", domain.ActionBuy, 100, 103, domain.DirectionUp, true},
		{"buy punished on down move", domain.ActionStrongBuy, 100, 97, domain.DirectionDown, false},
		{"buy not rewarded inside flat band", domain.ActionBuy, 100, 100.5, domain.DirectionFlat, false},
		{"sell rewarded on down move", domain.ActionSell, 100, 95, domain.DirectionDown, true},
		{"sell punished on up move", domain.ActionStrongSell, 100, 105, domain.DirectionUp, false},
		{"hold rewarded inside flat band", domain.ActionHold, 100, 100.9, domain.DirectionFlat, true},
		{"hold punished outside flat band", domain.ActionHold, 100, 103, domain.DirectionUp, false},
		{"flat band boundary is a move", domain.ActionHold, 100, 101, domain.DirectionUp, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			id, err := store.Record(context.Background(), maturedPrediction("TST", tt.action, tt.entry))
			require.NoError(t, err)

			e := newTestEvaluator(store, map[string]float64{"TST": tt.exit})
			n, err := e.EvaluatePending(context.Background())
			require.NoError(t, err)
			require.Equal(t, 1, n)

			o, err := store.GetByPrediction(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.direction, o.ActualDirection)
			assert.Equal(t, tt.success, o.Success)
		})
	}
}

func TestEvaluatePending_CancelledContextStopsEarly(t *testing.T) {
	store := memory.NewStore()
	for i, sym := range []string{"AAA", "BBB", "CCC"} {
		p := maturedPrediction(sym, domain.ActionBuy, 100)
		p.DecisionTimestamp = p.DecisionTimestamp.Add(time.Duration(i) * time.Minute)
		_, err := store.Record(context.Background(), p)
		require.NoError(t, err)
	}

	e := newTestEvaluator(store, map[string]float64{"AAA": 101, "BBB": 101, "CCC": 101})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := e.EvaluatePending(ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
