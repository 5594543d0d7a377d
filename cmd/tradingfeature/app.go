package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/config"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/guard"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/metrics"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/outcome"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence/postgres"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/pipeline"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/providers"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/regime"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/report"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/score"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/signal"
)

// app holds the fully wired pipeline for one command invocation.
type app struct {
	cfg      config.Config
	db       *sqlx.DB
	store    persistence.Store
	market   providers.MarketDataProvider
	guard    *guard.Guard
	metrics  *metrics.Collectors
	decision *pipeline.DecisionCycle
	outcomes *pipeline.OutcomeCycle
	reporter *report.Reporter
}

// maturationOverride, when set by the evaluate command, replaces the
// configured maturation delay for this invocation.
var maturationOverride time.Duration

// newApp loads config, connects the stores and wires every component.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if maturationOverride > 0 {
		cfg.Outcome.MaturationDelay = maturationOverride
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	store := persistence.Store{
		Predictions: postgres.NewPredictionStore(db, cfg.Database.QueryTimeout),
		Outcomes:    postgres.NewOutcomeStore(db, cfg.Database.QueryTimeout),
	}

	gateway := providers.NewClient(cfg.Gateway)
	var market providers.MarketDataProvider = gateway
	if cfg.Cache.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr, DB: cfg.Cache.DB})
		market = providers.NewCachedMarketData(gateway, rdb, cfg.Cache)
		log.Info().Str("addr", cfg.Cache.Addr).Msg("market data cache enabled")
	}

	collectors := metrics.New()
	g := guard.NewGuard(store.Predictions, cfg.Guard)
	classifier := regime.NewClassifier(gateway, cfg.Regime)
	scorer := score.NewScorer(cfg.Scorer)
	engine := signal.NewEngine(cfg.Engine)

	decision := pipeline.NewDecisionCycle(
		market, gateway, classifier, scorer, engine,
		store.Predictions, g, collectors, cfg.Pipeline)

	evaluator := outcome.NewEvaluator(store.Predictions, store.Outcomes, market, cfg.Outcome)
	outcomes := pipeline.NewOutcomeCycle(
		evaluator, store.Predictions, store.Outcomes, collectors, cfg.Outcome.MaturationDelay)

	return &app{
		cfg:      cfg,
		db:       db,
		store:    store,
		market:   market,
		guard:    g,
		metrics:  collectors,
		decision: decision,
		outcomes: outcomes,
		reporter: report.NewReporter(store.Predictions, store.Outcomes),
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}
