package service

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/battle64/internal/adapters/repository"
	"github.com/okian/battle64/internal/domain/timing"
	"github.com/okian/battle64/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache. Zero or negative
// keeps every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the entry store. The service owns it and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the clock used for submission dates and live refreshes.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTieBreak sets how entries with equal times are ordered.
func WithTieBreak(tb timing.TieBreak) Option {
	return func(s *Service) {
		s.tieBreak = tb
	}
}

// WithMaxUsernameLength sets the display truncation for usernames, in runes.
func WithMaxUsernameLength(n int) Option {
	return func(s *Service) {
		s.maxUsernameLength = n
	}
}

// WithRefreshInterval sets how often dirty events are re-ranked and broadcast.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithLiveEntries caps the number of entries carried by a live update.
func WithLiveEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.liveEntries = n
		}
	}
}

// WithBroadcaster adds a sink for live leaderboard updates.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) {
		if b != nil {
			s.broadcasters = append(s.broadcasters, b)
		}
	}
}
