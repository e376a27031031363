package timing_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/timing"
	. "github.com/smartystreets/goconvey/convey"
)

func entry(id, raw string) model.RaceEntry {
	return model.RaceEntry{ID: id, UserID: "u-" + id, Username: id, RawTime: raw}
}

func ids(ranked []model.RankedEntry) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.ID
	}
	return out
}

func TestRankEntries(t *testing.T) {
	Convey("Given the ranking engine", t, func() {
		Convey("When ranking a mix of ties and a malformed time", func() {
			input := []model.RaceEntry{
				entry("a", "1:15.320"),
				entry("b", "1:15.320"),
				entry("c", "0:59.999"),
				entry("d", "bogus"),
			}
			ranked := timing.RankEntries(input)

			Convey("Then the fastest time wins and ties keep input order", func() {
				So(ids(ranked), ShouldResemble, []string{"c", "a", "b", "d"})
				for i, r := range ranked {
					So(r.Rank, ShouldEqual, i+1)
				}
			})

			Convey("Then the malformed entry is flagged and ranked last", func() {
				d := ranked[3]
				So(d.IsValidFormat, ShouldBeFalse)
				So(d.NormalizedTime, ShouldEqual, "0:00.000")
				So(timing.DisplayTime(d), ShouldResemble, timing.Display{Text: "0:00.000", IsFallback: true})
			})

			Convey("Then the input is left untouched", func() {
				So(input[0].RawTime, ShouldEqual, "1:15.320")
				So(input[3].RawTime, ShouldEqual, "bogus")
			})
		})

		Convey("When ranking an empty batch", func() {
			Convey("Then the result is empty", func() {
				So(timing.RankEntries(nil), ShouldBeEmpty)
				So(timing.RankEntries([]model.RaceEntry{}), ShouldBeEmpty)
			})
		})

		Convey("When ranking a single entry", func() {
			ranked := timing.RankEntries([]model.RaceEntry{entry("x", "2:00.000")})

			Convey("Then it gets rank 1 and its seconds key", func() {
				So(ranked, ShouldHaveLength, 1)
				So(ranked[0].Rank, ShouldEqual, 1)
				So(ranked[0].TotalSeconds, ShouldEqual, 120.0)
				So(ranked[0].IsValidFormat, ShouldBeTrue)
			})
		})

		Convey("When a time is repaired from bare seconds", func() {
			ranked := timing.RankEntries([]model.RaceEntry{entry("slow", "1:10.000"), entry("bare", "65")})

			Convey("Then it ranks by its repaired value but is not a valid format", func() {
				So(ids(ranked), ShouldResemble, []string{"bare", "slow"})
				So(ranked[0].NormalizedTime, ShouldEqual, "1:05.000")
				So(ranked[0].IsValidFormat, ShouldBeFalse)
				So(timing.DisplayTime(ranked[0]).IsFallback, ShouldBeTrue)
			})
		})

		Convey("When every entry is malformed", func() {
			ranked := timing.RankEntries([]model.RaceEntry{entry("p", ""), entry("q", "??"), entry("r", "x")})

			Convey("Then they keep their original positions", func() {
				So(ids(ranked), ShouldResemble, []string{"p", "q", "r"})
			})
		})

		Convey("When ties are broken by submission date", func() {
			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			late := entry("late", "1:00.000")
			late.SubmissionDate = base.Add(time.Hour)
			early := entry("early", "1:00.000")
			early.SubmissionDate = base

			Convey("Then input order wins by default", func() {
				So(ids(timing.RankEntries([]model.RaceEntry{late, early})), ShouldResemble, []string{"late", "early"})
			})

			Convey("Then the earlier submission wins when configured", func() {
				ranked := timing.RankEntries([]model.RaceEntry{late, early}, timing.WithTieBreak(timing.TieBreakSubmissionDate))
				So(ids(ranked), ShouldResemble, []string{"early", "late"})
			})
		})
	})
}

func TestRankEntriesProperties(t *testing.T) {
	Convey("Given a random batch with valid, repaired and malformed times", t, func() {
		rng := rand.New(rand.NewSource(7))
		raws := []string{"1:00.000", "0:59.999", "65", "", "junk", "12:34.567", "1:00.000", "3.5"}
		input := make([]model.RaceEntry, 200)
		for i := range input {
			input[i] = entry(fmt.Sprintf("e%03d", i), raws[rng.Intn(len(raws))])
		}

		first := timing.RankEntries(input)
		second := timing.RankEntries(input)

		Convey("Then ranking is deterministic", func() {
			So(second, ShouldResemble, first)
		})

		Convey("Then no entry is dropped", func() {
			So(first, ShouldHaveLength, len(input))
		})

		Convey("Then ranks are exactly 1..N", func() {
			seen := make(map[int]bool)
			for _, r := range first {
				seen[r.Rank] = true
			}
			So(len(seen), ShouldEqual, len(input))
			for i := 1; i <= len(input); i++ {
				So(seen[i], ShouldBeTrue)
			}
		})

		Convey("Then keys never decrease", func() {
			for i := 1; i < len(first); i++ {
				So(first[i-1].TotalSeconds, ShouldBeLessThanOrEqualTo, first[i].TotalSeconds)
			}
		})

		Convey("Then identical raw times keep their input order", func() {
			position := make(map[string]int, len(first))
			for i, r := range first {
				position[r.ID] = i
			}
			for i := 0; i < len(input); i++ {
				for j := i + 1; j < len(input); j++ {
					if input[i].RawTime == input[j].RawTime {
						So(position[input[i].ID], ShouldBeLessThan, position[input[j].ID])
					}
				}
			}
		})

		Convey("Then every normalized time is valid and fallbacks are last", func() {
			sawFallback := false
			for _, r := range first {
				So(timing.ValidateFormat(r.NormalizedTime), ShouldBeTrue)
				if math.IsInf(r.TotalSeconds, 1) {
					sawFallback = true
				} else {
					So(sawFallback, ShouldBeFalse)
				}
			}
		})
	})
}

func TestParseTieBreak(t *testing.T) {
	Convey("Given tie-break names", t, func() {
		tb, err := timing.ParseTieBreak("")
		So(err, ShouldBeNil)
		So(tb, ShouldEqual, timing.TieBreakInputOrder)

		tb, err = timing.ParseTieBreak("Submission_Date")
		So(err, ShouldBeNil)
		So(tb, ShouldEqual, timing.TieBreakSubmissionDate)

		_, err = timing.ParseTieBreak("fastest_fingers")
		So(err, ShouldNotBeNil)
	})
}
