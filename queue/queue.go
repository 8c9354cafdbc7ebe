/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scribd/Lucid-sub001/errors"
)

// Scheduling decides how a request shares the queue with others.
type Scheduling int

const (
	// Concurrent requests run immediately with unlimited concurrency.
	Concurrent Scheduling = iota
	// Barrier requests run one at a time, in enqueue order.
	Barrier
)

// Request is one outbound mutation handed to the queue. Run performs the
// actual call; the queue owns retries and scheduling.
type Request struct {
	ID         uuid.UUID
	Label      string
	Scheduling Scheduling
	Policy     RetryPolicy
	Run        func(ctx context.Context) error
}

// NewRequest builds a request with a fresh ID and the default retry
// policy.
func NewRequest(label string, scheduling Scheduling, run func(ctx context.Context) error) Request {
	return Request{
		ID:         uuid.New(),
		Label:      label,
		Scheduling: scheduling,
		Policy:     DefaultRetryPolicy(),
		Run:        run,
	}
}

// Queue executes outbound mutations with retry and scheduling
// guarantees: at most one barrier request in flight, unlimited
// concurrency for concurrent requests, and one pending request journaled
// to survive a process restart.
type Queue interface {
	// Enqueue schedules the request and returns a channel delivering the
	// final outcome exactly once.
	Enqueue(ctx context.Context, req Request) <-chan error

	// Close stops accepting new requests and waits for in-flight ones.
	Close()
}

type task struct {
	ctx    context.Context
	req    Request
	result chan error
}

// InProcessQueue is the default Queue implementation.
type InProcessQueue struct {
	mu      sync.Mutex
	pending []Entry
	closed  bool

	barrier chan task
	sends   sync.WaitGroup
	wg      sync.WaitGroup

	journal  Journal
	restored []Entry
	logger   *slog.Logger
}

type queueConfig struct {
	journal       Journal
	logger        *slog.Logger
	barrierBuffer int
}

// Option configures an InProcessQueue.
type Option func(*queueConfig)

// WithJournal persists the oldest pending request descriptor through
// restarts.
func WithJournal(j Journal) Option {
	return func(c *queueConfig) { c.journal = j }
}

// WithQueueLogger sets the queue logger. Defaults to slog.Default().
func WithQueueLogger(logger *slog.Logger) Option {
	return func(c *queueConfig) { c.logger = logger }
}

// New creates a queue. Entries journaled by a previous process are
// available through Restored for the caller to re-enqueue.
func New(opts ...Option) *InProcessQueue {
	cfg := queueConfig{logger: slog.Default(), barrierBuffer: 128}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InProcessQueue{
		barrier: make(chan task, cfg.barrierBuffer),
		journal: cfg.journal,
		logger:  cfg.logger,
	}

	if q.journal != nil {
		entries, err := q.journal.Pending()
		if err != nil {
			q.logger.Warn("journal replay failed", slog.Any("error", err))
		} else {
			q.restored = entries
		}
	}

	q.wg.Add(1)
	go q.barrierWorker()
	return q
}

// Restored returns the request descriptors journaled by a previous
// process. Run closures cannot be persisted, so the caller rebuilds and
// re-enqueues the requests these describe.
func (q *InProcessQueue) Restored() []Entry {
	return q.restored
}

// Enqueue implements Queue.
func (q *InProcessQueue) Enqueue(ctx context.Context, req Request) <-chan error {
	result := make(chan error, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		result <- errors.ErrNotSupported
		return result
	}
	q.pending = append(q.pending, newEntry(req))
	if len(q.pending) == 1 {
		q.recordLocked(q.pending[0])
	}
	// Registered before the mutex is released so Close waits for the
	// barrier send (and for concurrent workers) instead of racing them.
	if req.Scheduling == Barrier {
		q.sends.Add(1)
	} else {
		q.wg.Add(1)
	}
	q.mu.Unlock()

	t := task{ctx: ctx, req: req, result: result}
	if req.Scheduling == Barrier {
		q.barrier <- t
		q.sends.Done()
		return result
	}

	go func() {
		defer q.wg.Done()
		q.run(t)
	}()
	return result
}

// Close implements Queue.
func (q *InProcessQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.sends.Wait()
	close(q.barrier)
	q.wg.Wait()
}

func (q *InProcessQueue) barrierWorker() {
	defer q.wg.Done()
	for t := range q.barrier {
		q.run(t)
	}
}

func (q *InProcessQueue) run(t task) {
	err := q.runWithRetry(t.ctx, t.req)
	q.finish(t.req.ID, err)
	t.result <- err
}

func (q *InProcessQueue) runWithRetry(ctx context.Context, req Request) error {
	policy := req.Policy
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return errors.NewNetworkError(ctx.Err())
		default:
		}

		lastErr = req.Run(ctx)
		if lastErr == nil {
			return nil
		}
		if !policy.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		backoff := time.Duration(attempt+1) * policy.Backoff
		q.logger.Debug("retrying outbound request",
			slog.String("label", req.Label),
			slog.Int("attempt", attempt+1),
			slog.Any("error", lastErr))
		select {
		case <-ctx.Done():
			return errors.NewNetworkError(ctx.Err())
		case <-time.After(backoff):
		}
	}
	return lastErr
}

func (q *InProcessQueue) finish(id uuid.UUID, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.pending {
		if q.pending[i].ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	if q.journal == nil {
		return
	}
	if clearErr := q.journal.Clear(id); clearErr != nil {
		q.logger.Warn("journal clear failed", slog.Any("error", clearErr))
	}
	// Hand the journal slot to the next oldest request so a crash between
	// completions still leaves one pending request recoverable.
	if len(q.pending) > 0 {
		q.recordLocked(q.pending[0])
	}
	_ = err
}

func newEntry(req Request) Entry {
	return Entry{
		ID:         req.ID,
		Label:      req.Label,
		Barrier:    req.Scheduling == Barrier,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (q *InProcessQueue) recordLocked(entry Entry) {
	if q.journal == nil {
		return
	}
	if err := q.journal.Record(entry); err != nil {
		q.logger.Warn("journal record failed", slog.Any("error", err))
	}
}
