// Package providers defines the external data collaborators the pipeline
// consumes and the default HTTP-backed implementations. Every fetch failure
// maps to domain.ErrDataUnavailable so callers degrade components instead of
// crashing a cycle.
package providers

import (
	"context"
	"time"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

// MarketDataProvider supplies OHLCV history, technical indicators and
// historical prices for a symbol.
type MarketDataProvider interface {
	// GetOHLCV returns up to lookback daily bars, oldest first.
	GetOHLCV(ctx context.Context, symbol string, lookback int) ([]domain.OHLCV, error)

	// GetTechnicalIndicators returns the current indicator snapshot.
	GetTechnicalIndicators(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error)

	// GetPriceAt returns the realized price at, or the nearest available
	// price at or before, the given instant.
	GetPriceAt(ctx context.Context, symbol string, at time.Time) (float64, error)
}

// SentimentProvider is the black-box news/NLP scorer.
type SentimentProvider interface {
	GetSentiment(ctx context.Context, symbol string) (*domain.SentimentSnapshot, error)
}

// IndexProvider supplies the broad-market index trend over a trailing window.
type IndexProvider interface {
	GetIndexTrend(ctx context.Context, lookbackSessions int) (float64, error)
}
