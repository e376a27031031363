// Package types contains the read shapes returned by the API.
package types

import "time"

// Entry is a display-safe leaderboard row.
type Entry struct {
	Rank              int       `json:"rank"`
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Username          string    `json:"username"`
	Time              string    `json:"time"`
	TotalSeconds      *float64  `json:"total_seconds"`
	ValidFormat       bool      `json:"valid_format"`
	IsFallback        bool      `json:"is_fallback"`
	Verified          bool      `json:"verified"`
	SubmittedAt       time.Time `json:"submitted_at"`
	DocumentationType string    `json:"documentation_type,omitempty"`
	MediaURL          string    `json:"media_url,omitempty"`
	LivestreamURL     string    `json:"livestream_url,omitempty"`
	Notes             string    `json:"notes,omitempty"`
}

// Movement describes how a user's position changed between two refreshes.
type Movement struct {
	UserID       string `json:"user_id"`
	Rank         int    `json:"rank"`
	PreviousRank int    `json:"previous_rank,omitempty"`
	Delta        int    `json:"delta"`
	IsNew        bool   `json:"is_new"`
}

// Update is pushed to live subscribers whenever an event's ranking changes.
type Update struct {
	EventID     string     `json:"event_id"`
	Version     uint64     `json:"version"`
	GeneratedAt time.Time  `json:"generated_at"`
	Entries     []Entry    `json:"entries"`
	Movements   []Movement `json:"movements,omitempty"`
}

// EventSummary lists an event known to the store.
type EventSummary struct {
	EventID string `json:"event_id"`
	Entries int    `json:"entries"`
}
