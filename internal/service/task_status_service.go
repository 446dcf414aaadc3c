package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/platform/logger"
	"github.com/phrazzld/nutritrack-api/internal/store"
)

// TaskView is the caller-visible snapshot of a task.
type TaskView struct {
	ID          string
	Status      domain.TaskStatus
	Message     string
	Result      json.RawMessage
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// TaskStatusService answers status queries for tasks, restricted to their owners.
type TaskStatusService struct {
	taskStore store.TaskStore
	logger    *slog.Logger
}

// NewTaskStatusService creates a new TaskStatusService.
func NewTaskStatusService(taskStore store.TaskStore, logger *slog.Logger) (*TaskStatusService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if logger == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "logger cannot be nil"}
	}
	return &TaskStatusService{
		taskStore: taskStore,
		logger:    logger.With("component", "task_status_service"),
	}, nil
}

// GetTaskStatus returns the current view of taskID if ownerID owns it.
// Unknown tasks yield ErrTaskNotFound and foreign tasks ErrTaskNotOwned.
func (s *TaskStatusService) GetTaskStatus(ctx context.Context, taskID, ownerID string) (*TaskView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if taskID == "" {
		return nil, ErrTaskNotFound
	}

	t, err := s.taskStore.Get(ctx, taskID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.ErrorContext(ctx, "failed to load task", "task_id", taskID, "error", err)
		}
		return nil, NewTaskServiceError("get_task_status", "failed to load task", err)
	}

	if t.OwnerID != ownerID {
		log.WarnContext(ctx, "task status requested by non-owner",
			"task_id", taskID,
			"owner_id", t.OwnerID,
			"requester_id", ownerID)
		return nil, ErrTaskNotOwned
	}

	return &TaskView{
		ID:          t.ID,
		Status:      t.Status,
		Message:     t.Message,
		Result:      t.Result,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}, nil
}
