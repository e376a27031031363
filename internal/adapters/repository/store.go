// Package repository stores race entries per event.
//
// Stores are append-only logs. Ranking happens on read, over a snapshot in
// insertion order, so the stable tie break follows the order entries were
// recorded.
package repository

import (
	"context"

	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/types"
)

// Store provides append and snapshot access to race entries.
type Store interface {
	// Append records entry under eventID and returns the event's new version.
	// Returns ErrDuplicate if the entry id is already stored for the event.
	Append(ctx context.Context, eventID string, entry model.RaceEntry) (uint64, error)

	// Snapshot returns a copy of the event's entries in insertion order
	// together with the version they correspond to.
	// Returns ErrNotFound if the event has no entries.
	Snapshot(ctx context.Context, eventID string) ([]model.RaceEntry, uint64, error)

	// Version returns the event's current version without copying entries.
	// Returns ErrNotFound if the event has no entries.
	Version(ctx context.Context, eventID string) (uint64, error)

	// Events lists every event with its entry count, ordered by event id.
	Events(ctx context.Context) ([]types.EventSummary, error)

	// Count returns the number of entries across all events.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
