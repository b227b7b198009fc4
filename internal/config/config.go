// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and EXPO_ environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the record store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is passed to the SQL driver. Empty uses the driver default.
	StoreDSN string `koanf:"store_dsn"`

	// FixturesFile optionally seeds rubrics and projects at startup.
	FixturesFile string `koanf:"fixtures_file"`

	// DefaultTopN is the ranking size used when a request gives no limit.
	DefaultTopN int `koanf:"default_top_n"`

	// MaxRankLimit caps GET /rankings?limit.
	MaxRankLimit int `koanf:"max_rank_limit"`

	// WeightTolerance is the accepted distance of a weight sum from 100.
	WeightTolerance float64 `koanf:"weight_tolerance"`

	// InternalWeight is the share of the internal track in the consolidated score.
	InternalWeight float64 `koanf:"internal_weight"`

	// RankConcurrency bounds parallel score computation during ranking.
	RankConcurrency int `koanf:"rank_concurrency"`

	// DedupeSize sets the size of the submission id cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults. The context is reserved for
// future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		StoreDriver:     "memory",
		DefaultTopN:     3,
		MaxRankLimit:    100,
		WeightTolerance: 0.01,
		InternalWeight:  0.5,
		RankConcurrency: 8,
		DedupeSize:      10_000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !oneOf(c.StoreDriver, "memory", "sqlite", "postgres"):
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case !oneOf(c.LogFormat, "text", "json"):
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.DefaultTopN < 1:
		return fmt.Errorf("%w: default_top_n must be >= 1", ErrInvalidConfig)
	case c.MaxRankLimit < c.DefaultTopN:
		return fmt.Errorf("%w: max_rank_limit must be >= default_top_n", ErrInvalidConfig)
	case c.WeightTolerance < 0:
		return fmt.Errorf("%w: weight_tolerance must not be negative", ErrInvalidConfig)
	case c.InternalWeight < 0 || c.InternalWeight > 1:
		return fmt.Errorf("%w: internal_weight must be within [0, 1]", ErrInvalidConfig)
	case c.RankConcurrency < 1:
		return fmt.Errorf("%w: rank_concurrency must be >= 1", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
