// Package loadtest drives a running battle64 service with generated
// submissions and checks the resulting leaderboard.
package loadtest

import (
	"runtime"
	"time"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	EventID        string        // Event that receives the submissions
	NumSubmissions int           // Distinct submissions to generate
	DuplicateEvery int           // Resend every Nth submission; 0 disables
	Workers        int           // Concurrent HTTP workers
	Timeout        time.Duration // HTTP request timeout
	Settle         time.Duration // How long to wait for the leaderboard to catch up
	PollInterval   time.Duration // Leaderboard poll interval while settling
	Limit          int           // Leaderboard page verified; must not exceed the service maximum
	Seed           uint64        // Generator seed; equal seeds give equal times
	OutputFile     string        // Optional JSON dump of generated submissions
	Verbose        bool
}

// DefaultConfig returns a config for a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:9080",
		EventID:        "loadtest",
		NumSubmissions: 1000,
		DuplicateEvery: 10,
		Workers:        runtime.NumCPU() * 2,
		Timeout:        10 * time.Second,
		Settle:         30 * time.Second,
		PollInterval:   250 * time.Millisecond,
		Limit:          100,
		Seed:           1,
	}
}

// Submission is the request body posted for each generated entry.
type Submission struct {
	SubmissionID      string `json:"submission_id" yaml:"submission_id"`
	UserID            string `json:"user_id" yaml:"user_id"`
	Username          string `json:"username" yaml:"username"`
	Time              string `json:"time" yaml:"time"`
	Verified          bool   `json:"verified" yaml:"verified"`
	SubmittedAt       string `json:"submitted_at,omitempty" yaml:"submitted_at,omitempty"`
	DocumentationType string `json:"documentation_type,omitempty" yaml:"documentation_type,omitempty"`
}

// Entry is a leaderboard row as returned by the service.
type Entry struct {
	Rank         int      `json:"rank"`
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Time         string   `json:"time"`
	TotalSeconds *float64 `json:"total_seconds"`
	ValidFormat  bool     `json:"valid_format"`
	IsFallback   bool     `json:"is_fallback"`
}

// AckResponse is the submission response.
type AckResponse struct {
	Status         string `json:"status"`
	ID             string `json:"id"`
	Duplicate      bool   `json:"duplicate"`
	NormalizedTime string `json:"normalized_time"`
	ValidFormat    bool   `json:"valid_format"`
}

// Stats holds run statistics.
type Stats struct {
	Generated          int
	Submitted          int
	Accepted           int
	Duplicate          int
	Rejected           int
	Failed             int
	Repaired           int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
