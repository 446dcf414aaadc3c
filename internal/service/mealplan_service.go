package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/platform/compute"
	"github.com/phrazzld/nutritrack-api/internal/platform/logger"
	"github.com/phrazzld/nutritrack-api/internal/platform/telemetry"
	"github.com/phrazzld/nutritrack-api/internal/store"
	"github.com/phrazzld/nutritrack-api/internal/task"
)

// TaskPollPathPrefix is where clients poll for a submitted task.
const TaskPollPathPrefix = "/api/tasks/"

// TaskQueue defines the interface for handing work to the background worker.
type TaskQueue interface {
	// Enqueue adds an item to the processing queue without waiting for it to run.
	Enqueue(item task.Item) error
}

// Submission is returned to the caller as soon as a request is accepted.
type Submission struct {
	TaskID   string
	Status   domain.TaskStatus
	Message  string
	PollPath string
}

// MealPlanService accepts meal plan requests and runs them in the background.
type MealPlanService struct {
	taskStore store.TaskStore
	queue     TaskQueue
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time
}

// MealPlanServiceOption customizes a MealPlanService.
type MealPlanServiceOption func(*MealPlanService)

// WithMetrics records submissions on m.
func WithMetrics(m *telemetry.Metrics) MealPlanServiceOption {
	return func(s *MealPlanService) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for completion timestamps.
func WithClock(now func() time.Time) MealPlanServiceOption {
	return func(s *MealPlanService) {
		s.now = now
	}
}

// NewMealPlanService creates a new MealPlanService.
// It returns an error if any of the required dependencies are nil.
func NewMealPlanService(
	taskStore store.TaskStore,
	queue TaskQueue,
	logger *slog.Logger,
	opts ...MealPlanServiceOption,
) (*MealPlanService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if queue == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "queue cannot be nil"}
	}
	if logger == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "logger cannot be nil"}
	}

	s := &MealPlanService{
		taskStore: taskStore,
		queue:     queue,
		logger:    logger.With("component", "mealplan_service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitMealPlan records a processing task for ownerID, queues the request,
// and returns without waiting for the compute service.
func (s *MealPlanService) SubmitMealPlan(
	ctx context.Context,
	ownerID string,
	req domain.MealPlanRequest,
) (*Submission, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner ID is required", domain.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.taskStore.Create(ctx, ownerID, req)
	if err != nil {
		log.ErrorContext(ctx, "failed to create task", "error", err, "owner_id", ownerID)
		return nil, NewTaskServiceError("submit_meal_plan", "failed to create task", err)
	}
	s.metrics.TaskSubmitted(ctx)

	if err := s.queue.Enqueue(s.newItem(t)); err != nil {
		log.ErrorContext(ctx, "failed to enqueue task", "error", err, "task_id", t.ID)
		s.recordFailure(ctx, t.ID, "the meal planner is not accepting requests right now")
		return nil, fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
	}

	log.InfoContext(ctx, "meal plan task submitted",
		"task_id", t.ID,
		"owner_id", ownerID,
		"plan_type", req.PlanType)

	return &Submission{
		TaskID:   t.ID,
		Status:   t.Status,
		Message:  t.Message,
		PollPath: TaskPollPathPrefix + t.ID,
	}, nil
}

// newItem builds the queue item whose callbacks write the outcome back into the store.
func (s *MealPlanService) newItem(t *domain.Task) task.Item {
	taskID := t.ID
	return task.Item{
		TaskID:  taskID,
		Request: t.Input,
		OnProgress: func(ctx context.Context, message string) {
			err := s.taskStore.Update(context.WithoutCancel(ctx), taskID, func(t *domain.Task) error {
				return t.SetProgress(message)
			})
			if err != nil {
				logger.FromContextOrDefault(ctx, s.logger).WarnContext(ctx, "failed to record task progress",
					"task_id", taskID, "error", err)
			}
		},
		OnSuccess: func(ctx context.Context, result json.RawMessage) {
			err := s.taskStore.Update(context.WithoutCancel(ctx), taskID, func(t *domain.Task) error {
				return t.Complete(result, s.now())
			})
			if err != nil {
				logger.FromContextOrDefault(ctx, s.logger).ErrorContext(ctx, "failed to record task result",
					"task_id", taskID, "error", err)
			}
		},
		OnFailure: func(ctx context.Context, err error) {
			s.recordFailure(ctx, taskID, FailureMessage(err))
		},
	}
}

func (s *MealPlanService) recordFailure(ctx context.Context, taskID, message string) {
	err := s.taskStore.Update(context.WithoutCancel(ctx), taskID, func(t *domain.Task) error {
		return t.Fail(message, s.now())
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).ErrorContext(ctx, "failed to record task failure",
			"task_id", taskID, "error", err)
	}
}

// FailureMessage turns a background error into the text stored on a failed task.
// Upstream messages are passed through; internal details are not.
func FailureMessage(err error) string {
	var (
		upstreamErr *compute.UpstreamError
		timeoutErr  *compute.TimeoutError
	)

	switch {
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("meal plan generation did not finish after %d status checks", timeoutErr.Attempts)
	case errors.As(err, &upstreamErr):
		return upstreamErr.Error()
	case errors.Is(err, compute.ErrInvalidResponse):
		return "the meal planner returned an unreadable response"
	case errors.Is(err, task.ErrQueueClosed):
		return "the server shut down before the request could be processed"
	case errors.Is(err, context.Canceled):
		return "meal plan generation was interrupted"
	case errors.Is(err, context.DeadlineExceeded):
		return "the meal planner did not respond in time"
	case errors.Is(err, compute.ErrUpstream):
		return "the meal planner could not be reached"
	default:
		return "an internal error occurred while generating the meal plan"
	}
}
