package timing

import "github.com/okian/battle64/internal/domain/model"

// Movement describes how a user's best position changed between two
// rankings of the same event.
type Movement struct {
	UserID       string
	Rank         int
	PreviousRank int // zero when IsNew
	Delta        int // positive when the user moved up
	IsNew        bool
}

// CompareRankings reports users that are new in current or whose best rank
// changed since previous. Users are keyed by UserID and only their best
// entry counts. The result follows current's rank order.
func CompareRankings(previous, current []model.RankedEntry) []Movement {
	before := bestRanks(previous)

	seen := make(map[string]struct{}, len(current))
	var out []Movement
	for _, e := range current {
		if _, dup := seen[e.UserID]; dup {
			continue
		}
		seen[e.UserID] = struct{}{}

		prev, ok := before[e.UserID]
		switch {
		case !ok:
			out = append(out, Movement{UserID: e.UserID, Rank: e.Rank, IsNew: true})
		case prev != e.Rank:
			out = append(out, Movement{UserID: e.UserID, Rank: e.Rank, PreviousRank: prev, Delta: prev - e.Rank})
		}
	}
	return out
}

func bestRanks(entries []model.RankedEntry) map[string]int {
	ranks := make(map[string]int, len(entries))
	for _, e := range entries {
		if r, ok := ranks[e.UserID]; !ok || e.Rank < r {
			ranks[e.UserID] = e.Rank
		}
	}
	return ranks
}
