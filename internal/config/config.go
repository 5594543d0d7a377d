// Package config loads the full pipeline configuration from YAML. Every
// tunable lives here or in a component Config struct; nothing reads
// process-wide mutable state, so two configurations can be compared by
// constructing both and running them over the same inputs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/guard"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/outcome"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence/postgres"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/pipeline"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/providers"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/regime"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/scheduler"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/score"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/signal"
)

// Config aggregates every component configuration.
type Config struct {
	Database  postgres.Config       `yaml:"database"`
	Gateway   providers.HTTPConfig  `yaml:"gateway"`
	Cache     providers.CacheConfig `yaml:"cache"`
	Regime    regime.Config         `yaml:"regime"`
	Scorer    score.Config          `yaml:"scorer"`
	Engine    signal.Config         `yaml:"engine"`
	Guard     guard.Config          `yaml:"guard"`
	Outcome   outcome.Config        `yaml:"outcome"`
	Pipeline  pipeline.Config       `yaml:"pipeline"`
	Scheduler scheduler.Config      `yaml:"scheduler"`
	ServeAddr string                `yaml:"serve_addr"` // Default: ":8087"
	LogLevel  string                `yaml:"log_level"`  // Default: "info"
}

// Default returns the full production default configuration.
func Default() Config {
	return Config{
		Database:  postgres.DefaultConfig(),
		Gateway:   providers.DefaultHTTPConfig(),
		Cache:     providers.DefaultCacheConfig(),
		Regime:    regime.DefaultConfig(),
		Scorer:    score.DefaultConfig(),
		Engine:    signal.DefaultConfig(),
		Guard:     guard.DefaultConfig(),
		Outcome:   outcome.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		ServeAddr: ":8087",
		LogLevel:  "info",
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	w := c.Engine.Weights
	total := w.Technical + w.Sentiment + w.Volume + w.Risk
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("engine weights must sum to 1.0, got %.3f", total)
	}
	if c.Outcome.MaturationDelay <= 0 {
		return fmt.Errorf("maturation delay must be positive")
	}
	if len(c.Regime.Bands) == 0 {
		return fmt.Errorf("regime bands must not be empty")
	}
	return nil
}
