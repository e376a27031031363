// Package model contains domain models passed between layers.
package model

import "time"

// DocumentationType describes how a submitted time was documented.
type DocumentationType string

// Supported documentation types.
const (
	DocumentationPhoto      DocumentationType = "photo"
	DocumentationVideo      DocumentationType = "video"
	DocumentationLivestream DocumentationType = "livestream"
)

// Valid reports whether d is one of the known documentation types.
// The empty value is accepted and means "not documented".
func (d DocumentationType) Valid() bool {
	switch d {
	case "", DocumentationPhoto, DocumentationVideo, DocumentationLivestream:
		return true
	}
	return false
}

// RaceEntry is a single competitor submission for an event.
// RawTime is untrusted and may be empty or malformed.
type RaceEntry struct {
	ID             string
	UserID         string
	Username       string
	RawTime        string
	Verified       bool
	SubmissionDate time.Time

	DocumentationType DocumentationType
	MediaURL          string
	LivestreamURL     string
	Notes             string
}

// RankedEntry is a RaceEntry with its derived ranking fields.
type RankedEntry struct {
	RaceEntry

	// NormalizedTime always matches the M:SS.mmm / MM:SS.mmm format.
	NormalizedTime string
	// TotalSeconds is the comparison key: minutes*60 + seconds.
	// Entries whose time could not be recovered carry +Inf so they rank last.
	TotalSeconds float64
	// Rank is dense and 1-based.
	Rank int
	// IsValidFormat reports whether RawTime parsed without repair or fallback.
	IsValidFormat bool
}

// Submission is the unit flowing from the HTTP layer through the queue
// to the workers.
type Submission struct {
	EventID string
	Entry   RaceEntry
}
