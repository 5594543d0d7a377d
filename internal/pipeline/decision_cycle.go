// Package pipeline orchestrates the two batch jobs: the decision cycle that
// turns market signals into persisted predictions, and the outcome cycle that
// scores matured predictions. The jobs share nothing but the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/guard"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/metrics"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/providers"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/regime"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/score"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/signal"
)

// Config holds decision cycle settings.
type Config struct {
	// MaxConcurrent bounds the symbol worker pool. Symbol work is independent;
	// the store write is the single serialization point.
	MaxConcurrent int `yaml:"max_concurrent"` // Default: 4

	// FetchTimeout bounds all external fetches for one symbol. Timeout reads
	// as missing data, never as a crash.
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Default: 15s

	// OHLCV windows for volume trend and volatility.
	OHLCVLookback        int `yaml:"ohlcv_lookback"`         // Default: 30
	VolumeRecentWindow   int `yaml:"volume_recent_window"`   // Default: 5
	VolumeBaselineWindow int `yaml:"volume_baseline_window"` // Default: 20

	// ModelVersion identifies the scoring configuration on every prediction.
	ModelVersion string `yaml:"model_version"`

	// StoreRetryInterval seeds the single backoff retry on store writes.
	StoreRetryInterval time.Duration `yaml:"store_retry_interval"` // Default: 500ms
}

// DefaultConfig returns production cycle settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:        4,
		FetchTimeout:         15 * time.Second,
		OHLCVLookback:        30,
		VolumeRecentWindow:   5,
		VolumeBaselineWindow: 20,
		ModelVersion:         "v2",
		StoreRetryInterval:   500 * time.Millisecond,
	}
}

// Summary is the user-visible result of one decision cycle.
type Summary struct {
	GuardOK     bool          `json:"guard_ok"`
	Regime      domain.Regime `json:"regime"`
	Decided     int           `json:"decided"`
	SkippedData int           `json:"skipped_data"`
	Blocked     int           `json:"blocked"`
	Duplicates  int           `json:"duplicates"`
	Elapsed     time.Duration `json:"elapsed"`
}

// DecisionCycle runs one pass of the signal-to-decision pipeline.
type DecisionCycle struct {
	market      providers.MarketDataProvider
	sentiment   providers.SentimentProvider
	classifier  *regime.Classifier
	scorer      *score.Scorer
	engine      *signal.Engine
	predictions persistence.PredictionStore
	guard       *guard.Guard
	metrics     *metrics.Collectors
	config      Config
	now         func() time.Time
}

// NewDecisionCycle wires a decision cycle from its collaborators.
func NewDecisionCycle(
	market providers.MarketDataProvider,
	sentiment providers.SentimentProvider,
	classifier *regime.Classifier,
	scorer *score.Scorer,
	engine *signal.Engine,
	predictions persistence.PredictionStore,
	g *guard.Guard,
	collectors *metrics.Collectors,
	config Config,
) *DecisionCycle {
	if config.MaxConcurrent <= 0 {
		config = DefaultConfig()
	}
	return &DecisionCycle{
		market:      market,
		sentiment:   sentiment,
		classifier:  classifier,
		scorer:      scorer,
		engine:      engine,
		predictions: predictions,
		guard:       g,
		metrics:     collectors,
		config:      config,
		now:         time.Now,
	}
}

// symbolResult is the per-symbol outcome folded into the cycle summary.
type symbolResult struct {
	prediction *domain.Prediction
	skipped    bool
	blocked    bool
	duplicate  bool
}

// Run executes one decision cycle over the given symbols. The temporal
// integrity guard must pass before any symbol is processed; a guard failure
// aborts the cycle with a TemporalIntegrityError and writes nothing.
func (c *DecisionCycle) Run(ctx context.Context, symbols []string) ([]domain.Prediction, Summary, error) {
	start := c.now()
	summary := Summary{}

	report, err := c.guard.Check(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("guard pre-flight failed to run: %w", err)
	}
	summary.GuardOK = report.OK
	if !report.OK {
		c.metrics.GuardFailuresTotal.Inc()
		return nil, summary, report.Err()
	}

	mctx := c.classifier.ClassifyCurrent(ctx)
	summary.Regime = mctx.Regime
	log.Info().Str("regime", string(mctx.Regime)).Float64("trend_pct", mctx.TrendPct).
		Float64("buy_threshold", mctx.BuyThreshold).Int("symbols", len(symbols)).
		Msg("decision cycle starting")

	results := make([]symbolResult, len(symbols))
	sem := make(chan struct{}, c.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			break // cancelled mid-flight; unprocessed symbols re-run next cycle
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = c.processSymbol(ctx, symbol, mctx)
		}(i, symbol)
	}
	wg.Wait()

	var predictions []domain.Prediction
	for _, r := range results {
		switch {
		case r.prediction != nil:
			predictions = append(predictions, *r.prediction)
			summary.Decided++
			if r.blocked {
				summary.Blocked++
			}
		case r.duplicate:
			summary.Duplicates++
		case r.skipped:
			summary.SkippedData++
		}
	}
	summary.Elapsed = c.now().Sub(start)

	log.Info().Int("decided", summary.Decided).Int("skipped_data", summary.SkippedData).
		Int("blocked", summary.Blocked).Int("duplicates", summary.Duplicates).
		Dur("elapsed", summary.Elapsed).Msg("decision cycle complete")

	return predictions, summary, ctx.Err()
}

// processSymbol fetches, scores, decides and persists one symbol. Missing
// technical or sentiment data degrades that component to neutral; missing
// price history skips the symbol entirely because a prediction without an
// entry price cannot be evaluated later.
func (c *DecisionCycle) processSymbol(ctx context.Context, symbol string, mctx domain.MarketContext) symbolResult {
	fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	defer cancel()

	bars, err := c.market.GetOHLCV(fetchCtx, symbol, c.config.OHLCVLookback)
	if err != nil || len(bars) == 0 {
		log.Warn().Err(err).Str("symbol", symbol).Msg("price history unavailable, skipping symbol")
		c.metrics.CycleSymbolsTotal.WithLabelValues("skipped_data").Inc()
		return symbolResult{skipped: true}
	}
	entryPrice := bars[len(bars)-1].Close
	if entryPrice <= 0 {
		log.Warn().Str("symbol", symbol).Msg("non-positive close price, skipping symbol")
		c.metrics.CycleSymbolsTotal.WithLabelValues("skipped_data").Inc()
		return symbolResult{skipped: true}
	}

	tech, err := c.market.GetTechnicalIndicators(fetchCtx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("technical indicators unavailable, degrading to neutral")
		tech = nil
	}
	sent, err := c.sentiment.GetSentiment(fetchCtx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("sentiment unavailable, degrading to neutral")
		sent = nil
	}

	volTrend := volumeTrend(bars, c.config.VolumeRecentWindow, c.config.VolumeBaselineWindow)
	volatility := realizedVolatility(bars)

	scores := c.scorer.Score(score.Inputs{
		Symbol:      symbol,
		Technical:   tech,
		Sentiment:   sent,
		VolumeTrend: volTrend,
		Volatility:  volatility,
	}, mctx)

	decision := c.engine.Evaluate(scores, volTrend, mctx)

	// All inputs are observed by now; the decision carries this instant.
	decisionTS := c.now()
	p := c.buildPrediction(symbol, decisionTS, entryPrice, volTrend, volatility, tech, sent, scores, decision, mctx)

	if err := c.record(ctx, p); err != nil {
		var dup *domain.DuplicateDecisionError
		if errors.As(err, &dup) {
			log.Warn().Str("symbol", symbol).Time("decision_ts", decisionTS).
				Msg("duplicate decision, skipping symbol")
			c.metrics.CycleSymbolsTotal.WithLabelValues("duplicate").Inc()
			return symbolResult{duplicate: true}
		}
		log.Error().Err(err).Str("symbol", symbol).Msg("prediction write failed after retry, skipping symbol")
		c.metrics.CycleSymbolsTotal.WithLabelValues("write_failed").Inc()
		return symbolResult{skipped: true}
	}

	c.metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	c.metrics.DecisionConfidence.Observe(decision.FinalConfidence)
	c.metrics.CycleSymbolsTotal.WithLabelValues("decided").Inc()

	log.Info().Str("symbol", symbol).Str("action", string(decision.Action)).
		Float64("confidence", decision.Confidence).Bool("blocked", decision.Blocked).
		Msg("decision recorded")

	return symbolResult{prediction: p, blocked: decision.Blocked}
}

func (c *DecisionCycle) buildPrediction(
	symbol string,
	decisionTS time.Time,
	entryPrice, volTrend, volatility float64,
	tech *domain.TechnicalSnapshot,
	sent *domain.SentimentSnapshot,
	scores score.Scores,
	decision signal.Decision,
	mctx domain.MarketContext,
) *domain.Prediction {
	inputs := domain.ComponentInputs{VolumeTrend: volTrend, Volatility: volatility}
	techTS, sentTS := decisionTS, decisionTS
	if tech != nil {
		inputs.RSI = tech.RSI
		inputs.MACDHistogram = tech.MACDHistogram
		if !tech.Timestamp.IsZero() {
			techTS = tech.Timestamp
		}
	} else {
		inputs.RSI = 50 // neutral placeholder when the feed was down
	}
	if sent != nil {
		inputs.SentimentScore = sent.Score
		if !sent.Timestamp.IsZero() {
			sentTS = sent.Timestamp
		}
	}

	return &domain.Prediction{
		Symbol:            symbol,
		DecisionTimestamp: decisionTS,
		Action:            decision.Action,
		Confidence:        decision.Confidence,
		Direction:         decision.Direction,
		Breakdown: domain.ComponentBreakdown{
			Technical: scores.Technical,
			Sentiment: scores.Sentiment,
			Volume:    scores.Volume,
			Risk:      scores.Risk,
			Inputs:    inputs,
			RulePath:  decision.RulePath,
		},
		EntryPrice:         entryPrice,
		Regime:             mctx.Regime,
		ModelVersion:       c.config.ModelVersion,
		TechnicalTimestamp: techTS,
		SentimentTimestamp: sentTS,
	}
}

// record writes the prediction, retrying once with backoff on transient store
// failures. Duplicate decisions are permanent and surface immediately.
func (c *DecisionCycle) record(ctx context.Context, p *domain.Prediction) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.config.StoreRetryInterval), 1), ctx)

	return backoff.Retry(func() error {
		id, err := c.predictions.Record(ctx, *p)
		if err != nil {
			var dup *domain.DuplicateDecisionError
			if errors.As(err, &dup) {
				return backoff.Permanent(err)
			}
			return err
		}
		p.ID = id
		return nil
	}, policy)
}
