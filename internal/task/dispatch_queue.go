package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/platform/logger"
	"github.com/phrazzld/nutritrack-api/internal/platform/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// ErrQueueStarted is returned when Start is called twice.
var ErrQueueStarted = errors.New("task queue already started")

// DispatchQueue is an unbounded FIFO queue drained by a single worker, so at
// most one Runner call is in flight at any time.
type DispatchQueue struct {
	runner  Runner
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu        sync.Mutex
	pending   []Item
	busy      bool
	started   bool
	closed    bool
	abandoned bool

	// wake has capacity one; a pending signal is enough to re-check the queue.
	wake     chan struct{}
	stopping chan struct{}
	done     chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc

	enqueued  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Option configures a DispatchQueue.
type Option func(*DispatchQueue)

// WithMetrics records queue depth and run outcomes on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(q *DispatchQueue) {
		q.metrics = m
	}
}

// NewDispatchQueue creates a stopped queue that runs items with runner.
func NewDispatchQueue(runner Runner, logger *slog.Logger, opts ...Option) (*DispatchQueue, error) {
	if runner == nil {
		return nil, ErrNilRunner
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	q := &DispatchQueue{
		runner:   runner,
		logger:   logger.With("component", "dispatch_queue"),
		wake:     make(chan struct{}, 1),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Start launches the worker. Runs use a context derived from parent, so
// cancelling parent aborts the in-flight run.
func (q *DispatchQueue) Start(parent context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.started {
		return ErrQueueStarted
	}
	q.started = true
	q.runCtx, q.cancelRun = context.WithCancel(parent)

	go q.worker()
	q.logger.Info("dispatch queue started", "pending", len(q.pending))
	return nil
}

// Enqueue appends item to the queue and returns without waiting for it to run.
func (q *DispatchQueue) Enqueue(item Item) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, item)
	depth := len(q.pending)
	q.mu.Unlock()

	q.enqueued.Add(1)
	q.metrics.QueueChanged(context.Background(), 1)

	select {
	case q.wake <- struct{}{}:
	default:
	}

	q.logger.Debug("task enqueued",
		"task_id", item.TaskID,
		"queue_len", depth)
	return nil
}

// Stop refuses new items and lets the worker drain the queue until ctx is
// done. Items still waiting at that point fail with ErrQueueClosed and the
// in-flight run, if any, is cancelled.
func (q *DispatchQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	q.mu.Unlock()

	close(q.stopping)

	if started {
		select {
		case <-q.done:
			q.cancelRun()
			q.logger.Info("dispatch queue drained",
				"completed", q.completed.Load(),
				"failed", q.failed.Load())
			return nil
		case <-ctx.Done():
		}
	}

	q.mu.Lock()
	q.abandoned = true
	leftover := q.pending
	q.pending = nil
	q.mu.Unlock()

	if started {
		q.cancelRun()
	}

	q.logger.Warn("dispatch queue stopped before draining",
		"abandoned_items", len(leftover))
	for _, item := range leftover {
		q.metrics.QueueChanged(context.Background(), -1)
		q.metrics.TaskAbandoned(context.Background())
		q.failed.Add(1)
		q.fail(context.Background(), item, ErrQueueClosed)
	}

	return ctx.Err()
}

// Stats returns counters and the current depth.
func (q *DispatchQueue) Stats() Stats {
	q.mu.Lock()
	pending := len(q.pending)
	busy := q.busy
	q.mu.Unlock()

	return Stats{
		Pending:   pending,
		Busy:      busy,
		Enqueued:  q.enqueued.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
	}
}

func (q *DispatchQueue) worker() {
	defer close(q.done)

	for {
		item, ok := q.next()
		if ok {
			q.process(item)
			continue
		}

		select {
		case <-q.wake:
		case <-q.stopping:
			// No new items arrive after stopping is closed, so an empty
			// queue here means the drain is finished.
			if q.idle() {
				return
			}
		}
	}
}

// next pops the head of the queue and marks the worker busy.
func (q *DispatchQueue) next() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.abandoned || len(q.pending) == 0 {
		q.busy = false
		return Item{}, false
	}
	item := q.pending[0]
	q.pending[0] = Item{}
	q.pending = q.pending[1:]
	q.busy = true
	return item, true
}

func (q *DispatchQueue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.abandoned || len(q.pending) == 0
}

func (q *DispatchQueue) process(item Item) {
	log := q.logger.With("task_id", item.TaskID)
	ctx := logger.WithLogger(q.runCtx, log)
	ctx, span := telemetry.StartDispatchSpan(ctx, item.TaskID)
	defer span.End()

	q.metrics.QueueChanged(ctx, -1)
	log.InfoContext(ctx, "processing task")
	started := time.Now()

	result, err := q.run(ctx, item)
	elapsed := time.Since(started)
	q.metrics.TaskFinished(ctx, err == nil, elapsed)

	if err != nil {
		q.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "task failed")
		log.ErrorContext(ctx, "task execution failed",
			"error", err,
			"duration", elapsed)
		q.fail(ctx, item, err)
		return
	}

	q.completed.Add(1)
	log.InfoContext(ctx, "task completed successfully", "duration", elapsed)
	if item.OnSuccess != nil {
		q.guard(ctx, item.TaskID, "success", func() { item.OnSuccess(ctx, result) })
	}
}

// run calls the runner, turning a panic into ErrRunnerPanic.
func (q *DispatchQueue) run(ctx context.Context, item Item) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "task runner panicked",
				"task_id", item.TaskID,
				"panic", r,
				"stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("%w: %v", ErrRunnerPanic, r)
		}
	}()

	progress := func(message string) {
		if item.OnProgress != nil {
			q.guard(ctx, item.TaskID, "progress", func() { item.OnProgress(ctx, message) })
		}
	}
	return q.runner.Run(ctx, item.Request, progress)
}

func (q *DispatchQueue) fail(ctx context.Context, item Item, err error) {
	if item.OnFailure != nil {
		q.guard(ctx, item.TaskID, "failure", func() { item.OnFailure(ctx, err) })
	}
}

// guard runs a callback and logs any panic it raises.
func (q *DispatchQueue) guard(ctx context.Context, taskID, kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "task callback panicked",
				"task_id", taskID,
				"callback", kind,
				"panic", r)
		}
	}()
	fn()
}
