// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package config provides layered configuration loading for Discovault.
//
// Configuration is resolved in order of precedence: environment variables
// override the YAML config file, which overrides built-in defaults. The
// resulting Config value is immutable by convention: operations receive it
// (or a sub-struct) as a parameter and never consult global state.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Discovault engine.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Discogs  DiscogsConfig  `koanf:"discogs"`
	Ingest   IngestConfig   `koanf:"ingestion"`
	Sync     SyncConfig     `koanf:"sync"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds embedded DuckDB store settings.
type DatabaseConfig struct {
	// Path is the database file location, or ":memory:" for tests.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory caps DuckDB's memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets DuckDB's thread count; 0 means runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`

	// PreserveInsertionOrder matches the DuckDB default; disabling it
	// reduces memory usage on very large dump ingestions.
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`
}

// DiscogsConfig holds remote API settings.
//
// The Discogs API enforces per-token rate limits server-side; the client
// must stay below them. Both the per-minute ceiling and the minimum gap
// between consecutive requests are operator-configurable.
type DiscogsConfig struct {
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	Token     string `koanf:"token"`
	Username  string `koanf:"username"`
	UserAgent string `koanf:"user_agent" validate:"required"`

	// RequestsPerWindow is the rolling-window request ceiling.
	RequestsPerWindow int `koanf:"requests_per_window" validate:"gt=0"`

	// RateWindow is the width of the rolling window (default one minute).
	RateWindow time.Duration `koanf:"rate_window" validate:"gt=0"`

	// MinRequestInterval is the minimum wall-clock gap between requests.
	MinRequestInterval time.Duration `koanf:"min_request_interval" validate:"gte=0"`

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `koanf:"max_retries" validate:"gte=0"`

	// RetryBaseDelay is the base for exponential backoff (1s, 2s, 4s, ...).
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// PageSize is the collection listing page size (API max 100).
	PageSize int `koanf:"page_size" validate:"gt=0,lte=100"`

	// InsecureSkipVerify relaxes TLS verification. Development only; it
	// does not change request or response semantics.
	InsecureSkipVerify bool `koanf:"insecure_skip_verify"`
}

// ReleaseStrategy selects which releases a dump ingestion persists.
type ReleaseStrategy string

const (
	// StrategyAll keeps every release record.
	StrategyAll ReleaseStrategy = "all"
	// StrategyNone discards every release record.
	StrategyNone ReleaseStrategy = "none"
	// StrategyCollection keeps releases linked to some user's collection.
	StrategyCollection ReleaseStrategy = "collection"
	// StrategyCollectionMasters additionally keeps releases sharing a
	// master with a collection-linked release (sibling pressings).
	StrategyCollectionMasters ReleaseStrategy = "collection_masters"
)

// IngestConfig holds bulk-dump ingestion settings.
type IngestConfig struct {
	// BatchSize groups accepted records per upsert statement batch.
	BatchSize int `koanf:"batch_size" validate:"gt=0"`

	// CommitInterval bounds transaction size: a commit is issued after
	// this many accepted records regardless of batch grouping.
	CommitInterval int `koanf:"commit_interval" validate:"gt=0"`

	// MaxErrorRate is the malformed-record fraction above which an
	// ingestion run aborts as systemic rather than isolated corruption.
	MaxErrorRate float64 `koanf:"max_error_rate" validate:"gte=0,lte=1"`

	// ProgressInterval is the record-count cadence of progress callbacks.
	ProgressInterval int `koanf:"progress_interval" validate:"gt=0"`

	// ReleaseStrategy selects the release persistence policy.
	ReleaseStrategy ReleaseStrategy `koanf:"release_strategy" validate:"oneof=all none collection collection_masters"`

	// RetryAttempts bounds per-batch retries on transient storage errors.
	RetryAttempts int `koanf:"retry_attempts" validate:"gte=0"`

	// RetryDelay is the base delay between batch retries.
	RetryDelay time.Duration `koanf:"retry_delay"`
}

// SyncConfig holds collection synchronization settings.
type SyncConfig struct {
	// Enabled turns on the periodic background sync service.
	Enabled bool `koanf:"enabled"`

	// Interval is the cadence of the periodic sync service.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// Force clears prior collection rows before repopulating, which also
	// captures remote removals.
	Force bool `koanf:"force"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/discovault.duckdb",
			MaxMemory:              "2GB",
			Threads:                0, // 0 = runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		Discogs: DiscogsConfig{
			BaseURL:            "https://api.discogs.com",
			Token:              "",
			Username:           "",
			UserAgent:          "Discovault/1.0 +https://github.com/discovault/discovault",
			RequestsPerWindow:  60,
			RateWindow:         time.Minute,
			MinRequestInterval: time.Second,
			MaxRetries:         5,
			RetryBaseDelay:     time.Second,
			Timeout:            30 * time.Second,
			PageSize:           100,
			InsecureSkipVerify: false,
		},
		Ingest: IngestConfig{
			BatchSize:        1000,
			CommitInterval:   10000,
			MaxErrorRate:     0.1,
			ProgressInterval: 1000,
			ReleaseStrategy:  StrategyAll,
			RetryAttempts:    5,
			RetryDelay:       2 * time.Second,
		},
		Sync: SyncConfig{
			Enabled:  false,
			Interval: 24 * time.Hour,
			Force:    false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// validate is the shared validator instance; validator.Validate is
// safe for concurrent use and caches struct metadata.
var validate = validator.New()

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("invalid configuration value: %w", err)
		}
		return fmt.Errorf("configuration validation: %w", err)
	}

	if c.Discogs.MinRequestInterval > c.Discogs.RateWindow {
		return fmt.Errorf("discogs.min_request_interval (%s) exceeds discogs.rate_window (%s)",
			c.Discogs.MinRequestInterval, c.Discogs.RateWindow)
	}
	if c.Ingest.BatchSize > c.Ingest.CommitInterval {
		return fmt.Errorf("ingestion.batch_size (%d) exceeds ingestion.commit_interval (%d)",
			c.Ingest.BatchSize, c.Ingest.CommitInterval)
	}
	return nil
}
