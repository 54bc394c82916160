// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layering (defaults, file, env) lives in Load.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Weights holds per-component composite weights.
type Weights struct {
	Preference float64 `koanf:"preference"`
	Affinity   float64 `koanf:"affinity"`
	External   float64 `koanf:"external"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory solve queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of solve workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// SolveTimeoutMS bounds a single queued solve.
	SolveTimeoutMS int `koanf:"solve_timeout_ms"`

	// StoreDriver selects where solve records live: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite path or postgres connection string.
	StoreDSN string `koanf:"store_dsn"`

	// StoreMaxRecords bounds the memory store; the oldest solves are dropped first.
	// Zero keeps everything.
	StoreMaxRecords int `koanf:"store_max_records"`

	// RateLimitRPS and RateLimitBurst throttle POST /solves. RPS <= 0 disables.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// RetryAttempts bounds persistence retries of finished solves.
	RetryAttempts int `koanf:"retry_attempts"`

	// Weights of the composite score components.
	Weights Weights `koanf:"weights"`

	// Rounds overrides the round policy table, keyed by round name (R1, R2, DL).
	Rounds map[string]roster.RoundPolicy `koanf:"rounds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	rounds := make(map[string]roster.RoundPolicy)
	for r, p := range roster.DefaultPolicy() {
		rounds[string(r)] = p
	}
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		QueueSize:       1024,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      10_000,
		SolveTimeoutMS:  30_000,
		StoreDriver:     DriverMemory,
		StoreMaxRecords: 1000,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		MaxBodyBytes:    32 << 20,
		RetryAttempts:   3,
		Weights:         Weights{Preference: 1, Affinity: 1, External: 1},
		Rounds:          rounds,
	}
}

// SolveTimeout returns the per-solve deadline.
func (c *Config) SolveTimeout() time.Duration {
	return time.Duration(c.SolveTimeoutMS) * time.Millisecond
}

// Policy returns the default round table with Rounds applied on top.
func (c *Config) Policy() roster.Policy {
	p := make(roster.Policy, len(c.Rounds))
	for name, rp := range c.Rounds {
		p[model.Round(strings.ToUpper(name))] = rp
	}
	return roster.DefaultPolicy().Merge(p)
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for driver %q", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.StoreMaxRecords < 0 {
		return fmt.Errorf("%w: store_max_records must not be negative", ErrInvalidConfig)
	}
	w := c.Weights
	if w.Preference < 0 || w.Affinity < 0 || w.External < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	}
	if w.Preference+w.Affinity+w.External == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidConfig)
	}
	for name, rp := range c.Rounds {
		if err := rp.Validate(); err != nil {
			return fmt.Errorf("%w: round %s: %w", ErrInvalidConfig, name, err)
		}
	}
	return nil
}
