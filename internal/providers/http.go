package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
)

// HTTPConfig holds settings for the HTTP data gateway client.
type HTTPConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // Default: 10s
	RatePerSecond  float64       `yaml:"rate_per_second"` // Default: 5
	RateBurst      int           `yaml:"rate_burst"`      // Default: 10

	// Circuit breaker: open after this many consecutive failures, retry after
	// the cooldown.
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"` // Default: 5
	BreakerCooldown    time.Duration `yaml:"breaker_cooldown"`     // Default: 30s
}

// DefaultHTTPConfig returns production client settings without a base URL.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		RequestTimeout:     10 * time.Second,
		RatePerSecond:      5,
		RateBurst:          10,
		BreakerMaxFailures: 5,
		BreakerCooldown:    30 * time.Second,
	}
}

// Client is the HTTP implementation of all three provider interfaces, backed
// by the market-data gateway. Requests are rate limited and pass through a
// circuit breaker; an open breaker reads as missing data, never as a crash.
type Client struct {
	config  HTTPConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewClient creates an HTTP provider client.
func NewClient(config HTTPConfig) *Client {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultHTTPConfig().RequestTimeout
	}
	settings := gobreaker.Settings{
		Name:    "market-data-gateway",
		Timeout: config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	}
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.RequestTimeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.RateBurst),
	}
}

// GetOHLCV returns up to lookback daily bars, oldest first.
func (c *Client) GetOHLCV(ctx context.Context, symbol string, lookback int) ([]domain.OHLCV, error) {
	var bars []domain.OHLCV
	err := c.getJSON(ctx, "/v1/ohlcv", url.Values{
		"symbol":   {symbol},
		"lookback": {strconv.Itoa(lookback)},
	}, &bars)
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// GetTechnicalIndicators returns the current indicator snapshot for a symbol.
func (c *Client) GetTechnicalIndicators(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error) {
	var snap domain.TechnicalSnapshot
	err := c.getJSON(ctx, "/v1/indicators", url.Values{"symbol": {symbol}}, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetPriceAt returns the nearest available price at or before the instant.
func (c *Client) GetPriceAt(ctx context.Context, symbol string, at time.Time) (float64, error) {
	var resp struct {
		Price float64 `json:"price"`
	}
	err := c.getJSON(ctx, "/v1/price", url.Values{
		"symbol": {symbol},
		"at":     {at.UTC().Format(time.RFC3339)},
	}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.Price <= 0 {
		return 0, fmt.Errorf("%w: no price for %s at %s", domain.ErrDataUnavailable, symbol, at.Format(time.RFC3339))
	}
	return resp.Price, nil
}

// GetSentiment returns the black-box sentiment snapshot for a symbol.
func (c *Client) GetSentiment(ctx context.Context, symbol string) (*domain.SentimentSnapshot, error) {
	var snap domain.SentimentSnapshot
	err := c.getJSON(ctx, "/v1/sentiment", url.Values{"symbol": {symbol}}, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetIndexTrend returns the broad index trailing change percentage.
func (c *Client) GetIndexTrend(ctx context.Context, lookbackSessions int) (float64, error) {
	var resp struct {
		TrendPct float64 `json:"trend_pct"`
	}
	err := c.getJSON(ctx, "/v1/index/trend", url.Values{
		"lookback": {strconv.Itoa(lookbackSessions)},
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.TrendPct, nil
}

// getJSON performs one rate-limited, breaker-protected GET and decodes the
// JSON body. All failure modes wrap domain.ErrDataUnavailable.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", domain.ErrDataUnavailable, err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, path, err)
	}
	return nil
}
