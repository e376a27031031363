package loadtest

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Time shapes produced by the generator, in rough proportion to what real
// submitters send.
const (
	shapeCanonical = iota
	shapeTwoDigitMinutes
	shapeBareSeconds
	shapeGarbage
	shapeEmpty
	shapeCount
)

var garbageTimes = []string{"abc", "1:2:3", "--", "1:05", "01:05.5", "-3", "1.2.3", "PB!"}

// Generate builds n submissions with unique ids. Each kind of time shape is
// represented: canonical, two-digit minutes, bare seconds, garbage and empty.
func Generate(n int, seed uint64) []Submission {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Submission, n)
	for i := range out {
		user := "runner-" + strconv.Itoa(rng.IntN(n/2+1))
		out[i] = Submission{
			SubmissionID: uuid.NewString(),
			UserID:       user,
			Username:     user,
			Time:         generateTime(rng, i),
			Verified:     rng.IntN(3) == 0,
			SubmittedAt:  base.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		}
	}
	return out
}

// generateTime cycles through every shape for the first few entries so small
// runs still cover them, then picks at random.
func generateTime(rng *rand.Rand, i int) string {
	shape := i % shapeCount
	if i >= shapeCount {
		shape = rng.IntN(shapeCount + 3) // bias towards canonical
		if shape >= shapeCount {
			shape = shapeCanonical
		}
	}

	minutes := rng.IntN(10)
	seconds := rng.IntN(60)
	millis := rng.IntN(1000)
	switch shape {
	case shapeCanonical:
		return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis)
	case shapeTwoDigitMinutes:
		return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
	case shapeBareSeconds:
		return strconv.Itoa(minutes*60 + seconds)
	case shapeGarbage:
		return garbageTimes[rng.IntN(len(garbageTimes))]
	default:
		return ""
	}
}

// withDuplicates appends a resend of every nth submission.
func withDuplicates(subs []Submission, every int) []Submission {
	if every <= 0 {
		return subs
	}
	out := make([]Submission, 0, len(subs)+len(subs)/every)
	out = append(out, subs...)
	for i := 0; i < len(subs); i += every {
		out = append(out, subs[i])
	}
	return out
}
