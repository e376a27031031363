package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/battle64/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	percent             = 100
)

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("eventID", cfg.EventID),
		logger.Int("submissions", cfg.NumSubmissions),
		logger.Int("workers", cfg.Workers),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// The event may already hold entries from an earlier run.
	before, err := c.eventEntries(ctx, cfg.EventID)
	if err != nil {
		return stats, fmt.Errorf("read initial event size: %w", err)
	}

	subs := Generate(cfg.NumSubmissions, cfg.Seed)
	stats.Generated = len(subs)
	submitAll(ctx, c, cfg, withDuplicates(subs, cfg.DuplicateEvery), stats)

	want := before + stats.Accepted
	got, err := waitForEntries(ctx, c, cfg, want)
	if err != nil {
		return stats, err
	}
	stats.LeaderboardEntries = got
	if got != want {
		return stats, fmt.Errorf("%w: event holds %d entries, want %d", ErrVerification, got, want)
	}

	page, err := c.leaderboard(ctx, cfg.EventID, min(want, cfg.Limit))
	if err != nil {
		return stats, fmt.Errorf("read leaderboard: %w", err)
	}
	if err := Verify(page, min(want, cfg.Limit)); err != nil {
		return stats, err
	}

	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, stats)
	return stats, nil
}

// waitForEntries polls the event size until it reaches want or cfg.Settle
// elapses, and returns the last size seen.
func waitForEntries(ctx context.Context, c *client, cfg *Config, want int) (int, error) {
	deadline := time.Now().Add(cfg.Settle)
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		got, err := c.eventEntries(ctx, cfg.EventID)
		if err != nil {
			return 0, fmt.Errorf("read event size: %w", err)
		}
		if got >= want || time.Now().After(deadline) {
			return got, nil
		}
		select {
		case <-ctx.Done():
			return got, ctx.Err()
		case <-ticker.C:
		}
	}
}

func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal submissions: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func logStats(ctx context.Context, stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * percent
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("repaired", stats.Repaired),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
