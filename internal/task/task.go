package task

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/phrazzld/nutritrack-api/internal/domain"
)

// Common errors returned by the DispatchQueue
var (
	// ErrQueueClosed is returned by Enqueue after Stop, and passed to the
	// failure callback of items that were still waiting when Stop gave up.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrRunnerPanic is passed to the failure callback when the runner panicked.
	ErrRunnerPanic = errors.New("task runner panicked")

	// ErrNilRunner is returned when a queue is created without a runner.
	ErrNilRunner = errors.New("runner cannot be nil")
)

// Runner performs the slow outbound call for one item. progress may be
// called while the run is in flight.
type Runner interface {
	Run(ctx context.Context, req domain.MealPlanRequest, progress func(message string)) (json.RawMessage, error)
}

// RunnerFunc adapts an ordinary function to the Runner interface.
type RunnerFunc func(ctx context.Context, req domain.MealPlanRequest, progress func(message string)) (json.RawMessage, error)

// Run calls f.
func (f RunnerFunc) Run(
	ctx context.Context,
	req domain.MealPlanRequest,
	progress func(message string),
) (json.RawMessage, error) {
	return f(ctx, req, progress)
}

// Item is one unit of queued work. The callbacks are invoked from the worker
// goroutine; exactly one of OnSuccess and OnFailure runs per item. Any of
// them may be nil.
type Item struct {
	TaskID  string
	Request domain.MealPlanRequest

	OnProgress func(ctx context.Context, message string)
	OnSuccess  func(ctx context.Context, result json.RawMessage)
	OnFailure  func(ctx context.Context, err error)
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending   int   `json:"pending"`
	Busy      bool  `json:"busy"`
	Enqueued  int64 `json:"enqueued"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
