// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of submission workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the idempotency cache. Zero or negative is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /events/{id}/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RefreshInterval is how often dirty events are re-ranked and broadcast.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// TieBreak selects the ordering of equal times: input_order or submission_date.
	TieBreak string `koanf:"tie_break"`

	// MaxUsernameLength truncates display names, in runes.
	MaxUsernameLength int `koanf:"max_username_length"`

	// Store selects the entry store backend: memory or postgres.
	Store string `koanf:"store"`

	// DatabaseURL is the Postgres DSN used when Store is postgres.
	DatabaseURL string `koanf:"database_url"`

	// NATSURL enables publishing leaderboard updates to NATS when set.
	NATSURL string `koanf:"nats_url"`

	// NATSSubjectPrefix prefixes the per-event update subject.
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          500_000,
		MaxLeaderboardLimit: 100,
		RefreshInterval:     5 * time.Second,
		TieBreak:            "input_order",
		MaxUsernameLength:   32,
		Store:               StoreMemory,
		NATSSubjectPrefix:   "battle64.leaderboard",
		CORSAllowedOrigins:  []string{"*"},
	}
}
