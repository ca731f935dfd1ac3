// Package config defines the calibration engine configuration and its loading
// hooks.
//
// Conventions:
// - New() returns a Config filled with defaults.
// - Load(ctx) layers a YAML file and DIARYCAL_ env vars on top.
// - Validate() reports problems as errors wrapping ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"runtime"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendJSONL    = "jsonl"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// ProfileStore is the profile backend: memory, file or postgres.
	ProfileStore string `koanf:"profile_store"`
	ProfileFile  string `koanf:"profile_file"`

	// LabelStore is the feedback backend: memory, jsonl or postgres.
	LabelStore string `koanf:"label_store"`
	LabelFile  string `koanf:"label_file"`

	PGDSN            string `koanf:"pg_dsn"`
	PGQueryTimeoutMS int    `koanf:"pg_query_timeout_ms"`
	PGMaxOpenConns   int    `koanf:"pg_max_open_conns"`

	// RedisAddr enables the read-through profile cache when set.
	RedisAddr         string `koanf:"redis_addr"`
	RedisDB           int    `koanf:"redis_db"`
	ProfileCacheTTLMS int    `koanf:"profile_cache_ttl_ms"`

	// PageSize bounds a single label store page.
	PageSize int `koanf:"page_size"`

	// WorkerCount and QueueSize size the all-personal training pool.
	WorkerCount int `koanf:"worker_count"`
	QueueSize   int `koanf:"queue_size"`

	// DedupeSize bounds the record-id cache used while loading.
	DedupeSize int `koanf:"dedupe_size"`

	PlattLearningRate float64 `koanf:"platt_learning_rate"`
	PlattIterations   int     `koanf:"platt_iterations"`
	PlattL2Penalty    float64 `koanf:"platt_l2_penalty"`

	IsotonicBins   int     `koanf:"isotonic_bins"`
	ECEBins        int     `koanf:"ece_bins"`
	IsotonicMargin float64 `koanf:"isotonic_margin"`

	// MinTrainSamples is the selector floor; MinSamples gates personal
	// profiles, and 0 activates every personal profile.
	MinTrainSamples int `koanf:"min_train_samples"`
	MinSamples      int `koanf:"min_samples"`

	PositiveRating float64 `koanf:"positive_rating"`
	SignalMargin   float64 `koanf:"signal_margin"`
	EntropyCeiling float64 `koanf:"entropy_ceiling"`

	PushgatewayURL string `koanf:"pushgateway_url"`
	MetricsJob     string `koanf:"metrics_job"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		ProfileStore:      BackendFile,
		ProfileFile:       "calibration_profiles.json",
		LabelStore:        BackendJSONL,
		LabelFile:         "calibration_records.jsonl",
		PGQueryTimeoutMS:  5_000,
		PGMaxOpenConns:    10,
		ProfileCacheTTLMS: 60_000,
		PageSize:          1_000,
		WorkerCount:       runtime.NumCPU(),
		QueueSize:         1_024,
		DedupeSize:        500_000,
		PlattLearningRate: 0.1,
		PlattIterations:   2_000,
		PlattL2Penalty:    1e-3,
		IsotonicBins:      10,
		ECEBins:           10,
		IsotonicMargin:    1e-6,
		MinTrainSamples:   5,
		MinSamples:        20,
		PositiveRating:    4,
		SignalMargin:      0.15,
		EntropyCeiling:    0.65,
		MetricsJob:        "diarycal",
	}
}

// PGQueryTimeout returns the per-query timeout.
func (c *Config) PGQueryTimeout() time.Duration {
	return time.Duration(c.PGQueryTimeoutMS) * time.Millisecond
}

// ProfileCacheTTL returns the redis entry lifetime.
func (c *Config) ProfileCacheTTL() time.Duration {
	return time.Duration(c.ProfileCacheTTLMS) * time.Millisecond
}

// Validate checks ranges and backend selections. Float checks are written
// so that NaN fails them.
func (c *Config) Validate() error {
	switch {
	case !(c.PlattLearningRate > 0) || math.IsInf(c.PlattLearningRate, 0):
		return invalid("platt_learning_rate must be a finite number > 0")
	case c.PlattIterations <= 0:
		return invalid("platt_iterations must be > 0")
	case !(c.PlattL2Penalty >= 0) || math.IsInf(c.PlattL2Penalty, 0):
		return invalid("platt_l2_penalty must be a finite number >= 0")
	case c.IsotonicBins < 1:
		return invalid("isotonic_bins must be >= 1")
	case c.ECEBins < 1:
		return invalid("ece_bins must be >= 1")
	case !(c.IsotonicMargin >= 0):
		return invalid("isotonic_margin must be >= 0")
	case math.IsNaN(c.PositiveRating) || math.IsNaN(c.SignalMargin) || math.IsNaN(c.EntropyCeiling):
		return invalid("positive_rating, signal_margin and entropy_ceiling must be numbers")
	case c.MinTrainSamples < 1:
		return invalid("min_train_samples must be >= 1")
	case c.MinSamples < 0:
		return invalid("min_samples must be >= 0")
	case c.PageSize < 1:
		return invalid("page_size must be >= 1")
	case c.WorkerCount < 1:
		return invalid("worker_count must be >= 1")
	case c.QueueSize < 1:
		return invalid("queue_size must be >= 1")
	}

	switch c.ProfileStore {
	case BackendMemory:
	case BackendFile:
		if c.ProfileFile == "" {
			return invalid("profile_file must not be empty for the file profile store")
		}
	case BackendPostgres:
		if c.PGDSN == "" {
			return invalid("pg_dsn must not be empty for the postgres profile store")
		}
	default:
		return invalid(fmt.Sprintf("unknown profile_store %q", c.ProfileStore))
	}

	switch c.LabelStore {
	case BackendMemory:
	case BackendJSONL:
		if c.LabelFile == "" {
			return invalid("label_file must not be empty for the jsonl label store")
		}
	case BackendPostgres:
		if c.PGDSN == "" {
			return invalid("pg_dsn must not be empty for the postgres label store")
		}
	default:
		return invalid(fmt.Sprintf("unknown label_store %q", c.LabelStore))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
