package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

// CacheConfig holds settings for the market-data read-through cache.
type CacheConfig struct {
	Addr         string        `yaml:"addr"`
	DB           int           `yaml:"db"`
	IndicatorTTL time.Duration `yaml:"indicator_ttl"` // Default: 5m
	PriceTTL     time.Duration `yaml:"price_ttl"`     // Default: 24h, historical prices are immutable
}

// DefaultCacheConfig returns production cache TTLs without an address.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		IndicatorTTL: 5 * time.Minute,
		PriceTTL:     24 * time.Hour,
	}
}

// CachedMarketData wraps a MarketDataProvider with a Redis read-through cache.
// Cache failures degrade to a direct fetch; they never fail a cycle.
type CachedMarketData struct {
	next   MarketDataProvider
	rdb    redis.Cmdable
	config CacheConfig
}

// NewCachedMarketData wraps the given provider with a Redis cache.
func NewCachedMarketData(next MarketDataProvider, rdb redis.Cmdable, config CacheConfig) *CachedMarketData {
	if config.IndicatorTTL <= 0 {
		config.IndicatorTTL = DefaultCacheConfig().IndicatorTTL
	}
	if config.PriceTTL <= 0 {
		config.PriceTTL = DefaultCacheConfig().PriceTTL
	}
	return &CachedMarketData{next: next, rdb: rdb, config: config}
}

// GetOHLCV passes through uncached; bar windows shift every session.
func (c *CachedMarketData) GetOHLCV(ctx context.Context, symbol string, lookback int) ([]domain.OHLCV, error) {
	return c.next.GetOHLCV(ctx, symbol, lookback)
}

// GetTechnicalIndicators serves the snapshot from cache within IndicatorTTL.
func (c *CachedMarketData) GetTechnicalIndicators(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error) {
	key := "indicators:" + symbol

	if payload, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var snap domain.TechnicalSnapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			return &snap, nil
		}
		log.Warn().Str("key", key).Msg("corrupt cache entry, refetching")
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching direct")
	}

	snap, err := c.next.GetTechnicalIndicators(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, snap, c.config.IndicatorTTL)
	return snap, nil
}

// GetPriceAt serves historical prices from cache; realized prices never change.
func (c *CachedMarketData) GetPriceAt(ctx context.Context, symbol string, at time.Time) (float64, error) {
	key := fmt.Sprintf("price:%s:%d", symbol, at.Unix())

	if payload, err := c.rdb.Get(ctx, key).Float64(); err == nil {
		return payload, nil
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching direct")
	}

	price, err := c.next.GetPriceAt(ctx, symbol, at)
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, key, price, c.config.PriceTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return price, nil
}

func (c *CachedMarketData) set(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
