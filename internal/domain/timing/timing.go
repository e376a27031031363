// Package timing parses, normalizes and ranks race-time strings.
//
// Times are expected as M:SS.mmm or MM:SS.mmm. Input is untrusted: nothing
// in this package returns an error or panics on malformed times. Instead the
// result carries a validity flag and a safe fallback display value.
package timing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// FallbackTime is substituted for times that cannot be parsed or repaired.
const FallbackTime = "0:00.000"

const (
	millisPerSecond = 1000
	millisPerMinute = 60 * millisPerSecond
	maxMinutes      = 99
	maxMillis       = (maxMinutes+1)*millisPerMinute - 1 // 99:59.999
)

var validTime = regexp.MustCompile(`^\d{1,2}:\d{2}\.\d{3}$`)

// Outcome classifies how a raw time was turned into its normalized form.
type Outcome int

const (
	// Valid means the raw time already matched the format.
	Valid Outcome = iota
	// Repaired means the raw time was a bare seconds count and was converted.
	Repaired
	// Fallback means the raw time was unusable and FallbackTime was substituted.
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Repaired:
		return "repaired"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ValidateFormat reports whether the trimmed raw time matches M:SS.mmm or
// MM:SS.mmm exactly.
func ValidateFormat(raw string) bool {
	return validTime.MatchString(strings.TrimSpace(raw))
}

// Normalize returns a display string that always matches the valid format.
// Valid input is returned trimmed, bare seconds are converted ("65" becomes
// "1:05.000") and anything else yields FallbackTime. Validity of the
// original value must be checked with ValidateFormat.
func Normalize(raw string) string {
	normalized, _ := Classify(raw)
	return normalized
}

// Classify normalizes raw and reports which path produced the result.
func Classify(raw string) (string, Outcome) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FallbackTime, Fallback
	}
	if validTime.MatchString(trimmed) {
		return trimmed, Valid
	}
	if ms, ok := parseBareSeconds(trimmed); ok {
		if formatted, ok := FormatMillis(ms); ok {
			return formatted, Repaired
		}
	}
	return FallbackTime, Fallback
}

// ToComparableKey converts a normalized time to total seconds
// (minutes*60 + seconds). Input that does not match the format maps to +Inf
// so that it can never outrank a real time.
func ToComparableKey(normalized string) float64 {
	ms, ok := Milliseconds(normalized)
	if !ok {
		return math.Inf(1)
	}
	return float64(ms) / millisPerSecond
}

// Milliseconds converts a normalized time to an integer millisecond count.
func Milliseconds(normalized string) (int64, bool) {
	s := strings.TrimSpace(normalized)
	if !validTime.MatchString(s) {
		return 0, false
	}
	minutesPart, rest, _ := strings.Cut(s, ":")
	secondsPart, millisPart, _ := strings.Cut(rest, ".")

	minutes, err := strconv.ParseInt(minutesPart, 10, 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseInt(secondsPart, 10, 64)
	if err != nil {
		return 0, false
	}
	millis, err := strconv.ParseInt(millisPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return minutes*millisPerMinute + seconds*millisPerSecond + millis, true
}

// FormatMillis renders a millisecond count as M:SS.mmm. It fails for
// negative values and for durations that need more than two minute digits.
func FormatMillis(ms int64) (string, bool) {
	if ms < 0 || ms > maxMillis {
		return "", false
	}
	minutes := ms / millisPerMinute
	seconds := (ms % millisPerMinute) / millisPerSecond
	millis := ms % millisPerSecond
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis), true
}

// parseBareSeconds accepts digits with at most one decimal point and
// returns the value in whole milliseconds.
func parseBareSeconds(s string) (int64, bool) {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return 0, false
		}
	}
	if digits == 0 || dots > 1 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 0, false
	}
	ms := math.Round(seconds * millisPerSecond)
	if ms > maxMillis {
		return 0, false
	}
	return int64(ms), true
}
