package service

import (
	"math"
	"strings"
	"unicode"

	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/timing"
	"github.com/okian/battle64/internal/domain/types"
)

const ellipsis = "…"

// DisplayName strips control characters and truncates to maxRunes runes,
// ending with an ellipsis when cut. maxRunes <= 0 disables truncation.
func DisplayName(name string, maxRunes int) string {
	clean := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name))

	if maxRunes <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) <= maxRunes {
		return clean
	}
	if maxRunes == 1 {
		return ellipsis
	}
	return strings.TrimRightFunc(string(runes[:maxRunes-1]), unicode.IsSpace) + ellipsis
}

func toEntry(r model.RankedEntry, maxName int) types.Entry { //nolint:gocritic // hugeParam: value conversion
	display := timing.DisplayTime(r)
	e := types.Entry{
		Rank:              r.Rank,
		ID:                r.ID,
		UserID:            r.UserID,
		Username:          DisplayName(r.Username, maxName),
		Time:              display.Text,
		ValidFormat:       r.IsValidFormat,
		IsFallback:        display.IsFallback,
		Verified:          r.Verified,
		SubmittedAt:       r.SubmissionDate,
		DocumentationType: string(r.DocumentationType),
		MediaURL:          r.MediaURL,
		LivestreamURL:     r.LivestreamURL,
		Notes:             r.Notes,
	}
	if !math.IsInf(r.TotalSeconds, 0) {
		seconds := r.TotalSeconds
		e.TotalSeconds = &seconds
	}
	return e
}

func toEntries(ranked []model.RankedEntry, limit, maxName int) []types.Entry {
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	out := make([]types.Entry, len(ranked))
	for i := range ranked {
		out[i] = toEntry(ranked[i], maxName)
	}
	return out
}

func toMovements(in []timing.Movement) []types.Movement {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.Movement, len(in))
	for i, m := range in {
		out[i] = types.Movement{
			UserID:       m.UserID,
			Rank:         m.Rank,
			PreviousRank: m.PreviousRank,
			Delta:        m.Delta,
			IsNew:        m.IsNew,
		}
	}
	return out
}
