// Package worker drains the submission queue into the entry store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/battle64/internal/adapters/repository"
	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/timing"
	"github.com/okian/battle64/pkg/logger"
	"github.com/okian/battle64/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Recorder appends an entry to an event.
type Recorder interface {
	Append(ctx context.Context, eventID string, entry model.RaceEntry) (uint64, error)
}

// Notifier is told which event changed after a successful append.
type Notifier interface {
	MarkDirty(eventID string)
}

type nopNotifier struct{}

func (nopNotifier) MarkDirty(string) {}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Submission
}

// Worker processes submissions until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for its loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker records submissions read from a Queue.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	settings

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		recorder: recorder,
		settings: defaultSettings(),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&w.settings)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	submissions := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-submissions:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error recording submission", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process stores a single submission.
func (w *InMemoryWorker) process(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	entry := s.Entry
	if entry.SubmissionDate.IsZero() {
		entry.SubmissionDate = w.clock.Now().UTC()
	}

	normalized, outcome := timing.Classify(entry.RawTime)
	metrics.RecordTimeOutcome(outcome.String())
	if outcome != timing.Valid {
		w.logger.Debug(ctx, "submitted time was not in canonical form",
			logger.String("eventID", s.EventID),
			logger.String("entryID", entry.ID),
			logger.String("raw", entry.RawTime),
			logger.String("normalized", normalized),
			logger.String("outcome", outcome.String()),
		)
	}

	version, err := w.recorder.Append(ctx, s.EventID, entry)
	if errors.Is(err, repository.ErrDuplicate) {
		w.logger.Debug(ctx, "entry already stored",
			logger.String("eventID", s.EventID),
			logger.String("entryID", entry.ID),
		)
		return nil
	}
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordError("worker", "store_error")
		return fmt.Errorf("record entry %s for event %s: %w", entry.ID, s.EventID, err)
	}

	w.notifier.MarkDirty(s.EventID)
	w.logger.Debug(ctx, "entry recorded",
		logger.String("eventID", s.EventID),
		logger.String("entryID", entry.ID),
		logger.Uint64("version", version),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker; each
// worker is named after its index.
func NewPool(workerCount int, q Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	base := defaultSettings()
	for _, opt := range opts {
		opt(&base)
	}
	if base.logger == nil {
		base.logger = logger.Get().Named("worker")
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  base.logger.Named("pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithLogger(base.logger), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, recorder, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}

// Stop stops all workers without draining the queue.
func (p *Pool) Stop(ctx context.Context) error {
	var firstErr error
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	metrics.UpdateWorkerCount(0)
	return firstErr
}
