package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/timing"
	"github.com/okian/battle64/internal/domain/types"
	"github.com/okian/battle64/pkg/logger"
	"github.com/okian/battle64/pkg/metrics"
)

// Broadcaster delivers live leaderboard updates to subscribers.
type Broadcaster interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	Broadcast(ctx context.Context, update types.Update) error
}

// Refresher re-ranks events that gained entries and pushes the result with
// the movements since the previous push.
type Refresher struct {
	svc          *Service
	clock        clockwork.Clock
	interval     time.Duration
	broadcasters []Broadcaster
	logger       logger.Logger

	mu    sync.Mutex
	dirty map[string]struct{}

	// refreshMu serializes refresh passes; previous is only touched under it.
	refreshMu sync.Mutex
	previous  map[string]*rankedSnapshot
}

func newRefresher(svc *Service, clock clockwork.Clock, interval time.Duration, broadcasters []Broadcaster, l logger.Logger) *Refresher {
	return &Refresher{
		svc:          svc,
		clock:        clock,
		interval:     interval,
		broadcasters: broadcasters,
		logger:       l,
		dirty:        make(map[string]struct{}),
		previous:     make(map[string]*rankedSnapshot),
	}
}

// MarkDirty schedules eventID for the next refresh.
func (r *Refresher) MarkDirty(eventID string) {
	r.mu.Lock()
	r.dirty[eventID] = struct{}{}
	r.mu.Unlock()
}

// Run refreshes on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) takeDirty() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dirty) == 0 {
		return nil
	}
	events := make([]string, 0, len(r.dirty))
	for id := range r.dirty {
		events = append(events, id)
	}
	r.dirty = make(map[string]struct{})
	sort.Strings(events)
	return events
}

func (r *Refresher) refresh(ctx context.Context) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	for _, eventID := range r.takeDirty() {
		snap, err := r.svc.ranking(ctx, eventID)
		if err != nil {
			metrics.RecordError("live", "ranking_error")
			r.logger.Error(ctx, "refresh failed", logger.String("eventID", eventID), logger.Error(err))
			continue
		}
		var before []model.RankedEntry
		if prev := r.previous[eventID]; prev != nil {
			if prev.version == snap.version {
				continue
			}
			before = prev.ranked
		}
		moves := timing.CompareRankings(before, snap.ranked)
		r.previous[eventID] = snap

		update := r.svc.update(eventID, snap, moves)
		for _, b := range r.broadcasters {
			if err := b.Broadcast(ctx, update); err != nil {
				metrics.RecordBroadcast(b.Name(), "error")
				r.logger.Warn(ctx, "broadcast failed",
					logger.String("sink", b.Name()),
					logger.String("eventID", eventID),
					logger.Error(err),
				)
				continue
			}
			metrics.RecordBroadcast(b.Name(), "ok")
		}
		r.logger.Debug(ctx, "leaderboard refreshed",
			logger.String("eventID", eventID),
			logger.Uint64("version", snap.version),
			logger.Int("movements", len(moves)),
		)
	}
}
