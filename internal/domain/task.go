package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Human-readable messages attached to a task at each stage.
const (
	TaskMessageQueued     = "Meal plan request received and queued for generation"
	TaskMessageInProgress = "Meal plan generation is in progress"
	TaskMessageCompleted  = "Meal plan generated successfully"
	TaskMessageFailed     = "Meal plan generation failed"
)

// Task is a unit of long-running work tracked by id and owner. A task is
// created in the processing state and moves exactly once to either completed
// or failed; terminal tasks never change again.
type Task struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Status      TaskStatus      `json:"status"`
	Message     string          `json:"message"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Input       MealPlanRequest `json:"input"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewTask creates a processing task for the given owner. The input is copied
// so later changes by the caller do not leak into the stored snapshot.
func NewTask(ownerID string, input MealPlanRequest, now time.Time) (*Task, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner ID cannot be empty", ErrValidation)
	}

	return &Task{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Status:    TaskStatusProcessing,
		Message:   TaskMessageQueued,
		Input:     input.Clone(),
		CreatedAt: now.UTC(),
	}, nil
}

// IsTerminal reports whether the task has reached completed or failed.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// SetProgress replaces the progress message of a processing task.
func (t *Task) SetProgress(message string) error {
	if t.IsTerminal() {
		return ErrTaskTerminal
	}
	t.Message = message
	return nil
}

// Complete moves the task to completed with the given result payload.
func (t *Task) Complete(result json.RawMessage, now time.Time) error {
	if t.IsTerminal() {
		return ErrTaskTerminal
	}

	// A completed task always carries a result, even if the service sent nothing.
	if len(result) == 0 {
		result = json.RawMessage("null")
	}

	completedAt := now.UTC()
	t.Status = TaskStatusCompleted
	t.Message = TaskMessageCompleted
	t.Result = append(json.RawMessage(nil), result...)
	t.Error = ""
	t.CompletedAt = &completedAt
	return nil
}

// Fail moves the task to failed, recording errMsg as both the error and part
// of the user-facing message.
func (t *Task) Fail(errMsg string, now time.Time) error {
	if t.IsTerminal() {
		return ErrTaskTerminal
	}
	if errMsg == "" {
		errMsg = "unknown error"
	}

	completedAt := now.UTC()
	t.Status = TaskStatusFailed
	t.Message = TaskMessageFailed + ": " + errMsg
	t.Result = nil
	t.Error = errMsg
	t.CompletedAt = &completedAt
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.Result != nil {
		c.Result = append(json.RawMessage(nil), t.Result...)
	}
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		c.CompletedAt = &completedAt
	}
	c.Input = t.Input.Clone()
	return &c
}

// Validate checks the status-dependent invariants of the task.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}
	if t.OwnerID == "" {
		return fmt.Errorf("%w: owner ID cannot be empty", ErrValidation)
	}

	switch t.Status {
	case TaskStatusProcessing:
		if t.CompletedAt != nil || t.Result != nil || t.Error != "" {
			return fmt.Errorf("%w: processing task carries a terminal outcome", ErrValidation)
		}
	case TaskStatusCompleted:
		if t.CompletedAt == nil || t.Result == nil || t.Error != "" {
			return fmt.Errorf("%w: completed task must have a result and completion time", ErrValidation)
		}
	case TaskStatusFailed:
		if t.CompletedAt == nil || t.Error == "" || t.Result != nil {
			return fmt.Errorf("%w: failed task must have an error and completion time", ErrValidation)
		}
	default:
		return ErrInvalidTaskStatus
	}

	return nil
}
