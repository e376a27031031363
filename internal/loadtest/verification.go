package loadtest

import (
	"errors"
	"fmt"
)

// ErrVerification is wrapped by every leaderboard check failure.
var ErrVerification = errors.New("leaderboard verification failed")

// Verify checks a leaderboard page starting at rank 1. It must hold want
// entries with dense ranks, times that never get faster going down and
// fallback entries only after every ranked time.
func Verify(entries []Entry, want int) error {
	if len(entries) != want {
		return fmt.Errorf("%w: got %d entries, want %d", ErrVerification, len(entries), want)
	}
	// A null total_seconds marks a time that fell back and ranks last.
	// Repaired times carry is_fallback too but rank by their value.
	seenFallback := false
	var prev float64
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrVerification, i, e.Rank)
		}
		if e.Time == "" {
			return fmt.Errorf("%w: entry %s has no display time", ErrVerification, e.ID)
		}
		if e.TotalSeconds == nil {
			if !e.IsFallback {
				return fmt.Errorf("%w: entry %s has no total_seconds but is not flagged", ErrVerification, e.ID)
			}
			seenFallback = true
			continue
		}
		if seenFallback {
			return fmt.Errorf("%w: ranked entry %s follows a fallback entry", ErrVerification, e.ID)
		}
		if i > 0 && *e.TotalSeconds < prev {
			return fmt.Errorf("%w: entry %s (%.3f) is faster than rank %d (%.3f)",
				ErrVerification, e.ID, *e.TotalSeconds, i, prev)
		}
		prev = *e.TotalSeconds
	}
	return nil
}
