// Package config defines service configuration and its loader.
//
// Values are layered low to high: built-in defaults, an optional YAML file
// named by STUDYPRIO_CONFIG, then STUDYPRIO_* environment variables.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of classification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many batch IDs are remembered for idempotent submits.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBatchSize caps the number of subjects in one request.
	MaxBatchSize int `koanf:"max_batch_size"`

	// ResultRetentionSec is how long finished batches are kept. Zero keeps them forever.
	ResultRetentionSec int `koanf:"result_retention_sec"`

	// RulesFile is an optional YAML rules file. Empty means built-in thresholds.
	RulesFile string `koanf:"rules_file"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty disables CORS headers; "*" allows any origin.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config holding the defaults. The context is reserved for
// future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         50_000,
		MaxBatchSize:       100,
		ResultRetentionSec: 900,
		RulesFile:          "",
		CORSAllowedOrigins: []string{"*"},
	}
}

// ResultRetention returns ResultRetentionSec as a duration.
func (c *Config) ResultRetention() time.Duration {
	return time.Duration(c.ResultRetentionSec) * time.Second
}
