package worker

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/battle64/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker or a Pool.
type Option func(*settings)

type settings struct {
	name     string
	logger   logger.Logger
	clock    clockwork.Clock
	notifier Notifier
}

func defaultSettings() settings {
	return settings{
		name:     "worker",
		clock:    clockwork.NewRealClock(),
		notifier: nopNotifier{},
	}
}

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used to stamp submissions that arrive without a date.
func WithClock(c clockwork.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithNotifier sets who is told that an event gained an entry.
func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notifier = n
		}
	}
}
