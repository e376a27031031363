package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/types"
	"github.com/okian/battle64/pkg/metrics"
)

type eventLog struct {
	entries []model.RaceEntry
	ids     map[string]struct{}
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*eventLog
	total  int
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]*eventLog)}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, eventID string, entry model.RaceEntry) (uint64, error) { //nolint:gocritic // hugeParam: entry is copied into the log
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("append", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	log, ok := s.events[eventID]
	if !ok {
		log = &eventLog{ids: make(map[string]struct{})}
		s.events[eventID] = log
	}
	if _, dup := log.ids[entry.ID]; dup {
		return uint64(len(log.entries)), ErrDuplicate
	}
	log.ids[entry.ID] = struct{}{}
	log.entries = append(log.entries, entry)
	s.total++
	metrics.UpdateStoreEntries(s.total)

	return uint64(len(log.entries)), nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context, eventID string) ([]model.RaceEntry, uint64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("snapshot", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.events[eventID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	out := make([]model.RaceEntry, len(log.entries))
	copy(out, log.entries)
	return out, uint64(len(log.entries)), nil
}

// Version implements Store.
func (s *MemoryStore) Version(_ context.Context, eventID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.events[eventID]
	if !ok {
		return 0, ErrNotFound
	}
	return uint64(len(log.entries)), nil
}

// Events implements Store.
func (s *MemoryStore) Events(_ context.Context) ([]types.EventSummary, error) {
	s.mu.RLock()
	out := make([]types.EventSummary, 0, len(s.events))
	for id, log := range s.events {
		out = append(out, types.EventSummary{EventID: id, Entries: len(log.entries)})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
