// Package service hosts the race-time ranking engine behind intake,
// storage and live refresh.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/battle64/internal/adapters/mq/queue"
	"github.com/okian/battle64/internal/adapters/mq/worker"
	"github.com/okian/battle64/internal/adapters/repository"
	"github.com/okian/battle64/internal/domain/dedupe"
	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/timing"
	"github.com/okian/battle64/internal/domain/types"
	"github.com/okian/battle64/pkg/logger"
	"github.com/okian/battle64/pkg/metrics"
)

const (
	defaultQueueSize         = 100_000
	defaultDedupeSize        = 500_000
	defaultMaxUsernameLength = 32
	defaultRefreshInterval   = 5 * time.Second
	defaultLiveEntries       = 100
)

// SubmitResult reports what happened to a submission at intake.
type SubmitResult struct {
	ID             string
	Duplicate      bool
	NormalizedTime string
	ValidFormat    bool
}

// rankedSnapshot is an immutable ranking of one event at a store version.
type rankedSnapshot struct {
	version uint64
	ranked  []model.RankedEntry
}

// Service implements the API dependencies for the race leaderboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	refresher *Refresher
	clock     clockwork.Clock

	cacheMu sync.Mutex
	cache   map[string]*rankedSnapshot

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	tieBreak          timing.TieBreak
	maxUsernameLength int
	refreshInterval   time.Duration
	liveEntries       int
	broadcasters      []Broadcaster

	// State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         defaultQueueSize,
		dedupeSize:        defaultDedupeSize,
		tieBreak:          timing.TieBreakInputOrder,
		maxUsernameLength: defaultMaxUsernameLength,
		refreshInterval:   defaultRefreshInterval,
		liveEntries:       defaultLiveEntries,
		clock:             clockwork.NewRealClock(),
		cache:             make(map[string]*rankedSnapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting leaderboard service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.refresher = newRefresher(s, s.clock, s.refreshInterval, s.broadcasters, s.logger.Named("live"))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithClock(s.clock),
		worker.WithNotifier(s.refresher),
	)

	// Workers and the refresher outlive the start request's context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.pool.Start(runCtx)
	go func() {
		defer close(s.done)
		s.refresher.Run(runCtx)
	}()

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("tieBreak", string(s.tieBreak)),
		logger.Int("broadcasters", len(s.broadcasters)),
	)
	return nil
}

// Stop drains the queue into the store, publishes a final refresh and
// releases resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.refresher.refresh(ctx)
	s.cancel()
	<-s.done

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "error closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// Submit validates a submission, drops duplicates and enqueues the rest.
// Malformed times are accepted; the result reports how they normalize.
func (s *Service) Submit(ctx context.Context, eventID string, entry model.RaceEntry) (SubmitResult, error) { //nolint:gocritic // hugeParam: entry is copied into the queue
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return SubmitResult{}, ErrNotStarted
	}

	if err := validateSubmission(eventID, &entry); err != nil {
		metrics.RecordSubmission("invalid")
		return SubmitResult{}, err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	normalized, outcome := timing.Classify(entry.RawTime)
	result := SubmitResult{ID: entry.ID, NormalizedTime: normalized, ValidFormat: outcome == timing.Valid}

	key := eventID + "/" + entry.ID
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmission("duplicate")
		result.Duplicate = true
		return result, nil
	}

	if err := s.queue.Enqueue(ctx, model.Submission{EventID: eventID, Entry: entry}); err != nil {
		s.deduper.Unrecord(ctx, key)
		metrics.RecordSubmission("rejected")
		if errors.Is(err, queue.ErrFull) {
			return SubmitResult{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return SubmitResult{}, fmt.Errorf("enqueue submission %s: %w", entry.ID, err)
	}

	metrics.RecordSubmission("accepted")
	s.logger.Debug(ctx, "submission accepted",
		logger.String("eventID", eventID),
		logger.String("entryID", entry.ID),
		logger.String("outcome", outcome.String()),
	)
	return result, nil
}

func validateSubmission(eventID string, entry *model.RaceEntry) error {
	entry.ID = strings.TrimSpace(entry.ID)
	switch {
	case strings.TrimSpace(eventID) == "":
		return fmt.Errorf("%w: missing event id", ErrInvalidSubmission)
	case strings.TrimSpace(entry.UserID) == "":
		return fmt.Errorf("%w: missing user_id", ErrInvalidSubmission)
	case strings.TrimSpace(entry.Username) == "":
		return fmt.Errorf("%w: missing username", ErrInvalidSubmission)
	case !entry.DocumentationType.Valid():
		return fmt.Errorf("%w: unknown documentation_type %q", ErrInvalidSubmission, entry.DocumentationType)
	}
	return nil
}

// ranking returns the event's ranking, recomputing it only when the store
// version moved past the cached one.
func (s *Service) ranking(ctx context.Context, eventID string) (*rankedSnapshot, error) {
	if s.store == nil {
		return nil, ErrNotStarted
	}
	version, err := s.store.Version(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	cached := s.cache[eventID]
	s.cacheMu.Unlock()
	if cached != nil && cached.version >= version {
		return cached, nil
	}

	entries, version, err := s.store.Snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	snap := &rankedSnapshot{
		version: version,
		ranked:  timing.RankEntries(entries, timing.WithTieBreak(s.tieBreak)),
	}
	metrics.RecordRanking(float64(time.Since(start).Microseconds())/1000, len(entries))

	s.cacheMu.Lock()
	if current := s.cache[eventID]; current == nil || current.version < snap.version {
		s.cache[eventID] = snap
	}
	s.cacheMu.Unlock()
	return snap, nil
}

// Leaderboard returns up to limit ranked entries of an event. A limit of
// zero or less returns every entry.
func (s *Service) Leaderboard(ctx context.Context, eventID string, limit int) ([]types.Entry, error) {
	snap, err := s.ranking(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toEntries(snap.ranked, limit, s.maxUsernameLength), nil
}

// Standing returns the best ranked entry of userID in an event.
func (s *Service) Standing(ctx context.Context, eventID, userID string) (types.Entry, error) {
	snap, err := s.ranking(ctx, eventID)
	if err != nil {
		return types.Entry{}, err
	}
	for i := range snap.ranked {
		if snap.ranked[i].UserID == userID {
			return toEntry(snap.ranked[i], s.maxUsernameLength), nil
		}
	}
	return types.Entry{}, fmt.Errorf("%w: %s", ErrNoStanding, userID)
}

// Events lists known events with their entry counts.
func (s *Service) Events(ctx context.Context) ([]types.EventSummary, error) {
	if s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store.Events(ctx)
}

// CurrentUpdate returns the event's current leaderboard as a live update
// without movements. Live subscribers receive it on connect.
func (s *Service) CurrentUpdate(ctx context.Context, eventID string) (types.Update, error) {
	snap, err := s.ranking(ctx, eventID)
	if err != nil {
		return types.Update{}, err
	}
	return s.update(eventID, snap, nil), nil
}

func (s *Service) update(eventID string, snap *rankedSnapshot, moves []timing.Movement) types.Update {
	return types.Update{
		EventID:     eventID,
		Version:     snap.version,
		GeneratedAt: s.clock.Now().UTC(),
		Entries:     toEntries(snap.ranked, s.liveEntries, s.maxUsernameLength),
		Movements:   toMovements(moves),
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"tieBreak":     string(s.tieBreak),
		"broadcasters": len(s.broadcasters),
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.queue.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	if total, err := s.store.Count(ctx); err == nil {
		stats["totalEntries"] = total
	}
	if events, err := s.store.Events(ctx); err == nil {
		stats["events"] = len(events)
	}
	return stats
}
