package timing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/battle64/internal/domain/model"
)

// TieBreak selects how entries with equal times are ordered.
type TieBreak string

const (
	// TieBreakInputOrder keeps equal times in their original order.
	TieBreakInputOrder TieBreak = "input_order"
	// TieBreakSubmissionDate lets the earlier submission win a tie. Entries
	// with equal dates keep their original order.
	TieBreakSubmissionDate TieBreak = "submission_date"
)

// ParseTieBreak parses a configured tie-break name. Empty means input order.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieBreakInputOrder:
		return TieBreakInputOrder, nil
	case TieBreakSubmissionDate:
		return TieBreakSubmissionDate, nil
	default:
		return "", fmt.Errorf("unknown tie break %q", s)
	}
}

// RankOption configures RankEntries.
type RankOption func(*rankConfig)

type rankConfig struct {
	tieBreak TieBreak
}

// WithTieBreak sets the tie-break rule. Unknown values are ignored.
func WithTieBreak(tb TieBreak) RankOption {
	return func(c *rankConfig) {
		if tb == TieBreakInputOrder || tb == TieBreakSubmissionDate {
			c.tieBreak = tb
		}
	}
}

// RankEntries ranks entries by ascending time and returns them in rank
// order. Every input entry appears exactly once in the output and ranks are
// 1..N with no gaps or shared positions. Entries whose time fell back to
// FallbackTime rank after every recoverable time. The input slice is not
// modified.
func RankEntries(entries []model.RaceEntry, opts ...RankOption) []model.RankedEntry {
	cfg := rankConfig{tieBreak: TieBreakInputOrder}
	for _, opt := range opts {
		opt(&cfg)
	}

	ranked := make([]model.RankedEntry, len(entries))
	for i, e := range entries {
		normalized, outcome := Classify(e.RawTime)
		key := ToComparableKey(normalized)
		if outcome == Fallback {
			key = math.Inf(1)
		}
		ranked[i] = model.RankedEntry{
			RaceEntry:      e,
			NormalizedTime: normalized,
			TotalSeconds:   key,
			IsValidFormat:  outcome == Valid,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalSeconds != b.TotalSeconds {
			return a.TotalSeconds < b.TotalSeconds
		}
		if cfg.tieBreak == TieBreakSubmissionDate {
			return a.SubmissionDate.Before(b.SubmissionDate)
		}
		return false
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Display is the presentation form of a ranked time.
type Display struct {
	Text       string
	IsFallback bool
}

// DisplayTime returns the normalized time and whether it should be flagged
// as unverifiable. It never alters the entry's rank.
func DisplayTime(entry model.RankedEntry) Display {
	return Display{
		Text:       entry.NormalizedTime,
		IsFallback: !entry.IsValidFormat,
	}
}
