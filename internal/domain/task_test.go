package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewTask(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	input := MealPlanRequest{
		UserInput:           "high protein lunch",
		DietaryRestrictions: []string{"peanuts"},
	}

	task, err := NewTask("u1", input, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == "" {
		t.Error("Expected non-empty task ID")
	}
	if task.OwnerID != "u1" {
		t.Errorf("Expected owner u1, got %s", task.OwnerID)
	}
	if task.Status != TaskStatusProcessing {
		t.Errorf("Expected status %s, got %s", TaskStatusProcessing, task.Status)
	}
	if task.Message != TaskMessageQueued {
		t.Errorf("Expected queued message, got %q", task.Message)
	}
	if !task.CreatedAt.Equal(now) {
		t.Errorf("Expected CreatedAt %v, got %v", now, task.CreatedAt)
	}
	if task.CompletedAt != nil {
		t.Error("Expected nil CompletedAt for a processing task")
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Expected valid task, got %v", err)
	}

	// The snapshot must not alias the caller's slice
	input.DietaryRestrictions[0] = "changed"
	if task.Input.DietaryRestrictions[0] != "peanuts" {
		t.Error("Expected input snapshot to be independent of the caller's request")
	}

	other, err := NewTask("u1", input, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if other.ID == task.ID {
		t.Error("Expected distinct task IDs")
	}

	_, err = NewTask("  ", input, now)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty owner, got %v", err)
	}
}

func TestTaskComplete(t *testing.T) {
	t.Parallel()
	now := time.Now()
	task, err := NewTask("u1", MealPlanRequest{UserInput: "dinner"}, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := task.SetProgress(TaskMessageInProgress); err != nil {
		t.Fatalf("Expected progress update to succeed, got %v", err)
	}

	result := json.RawMessage(`{"plan":"salmon"}`)
	if err := task.Complete(result, now.Add(time.Minute)); err != nil {
		t.Fatalf("Expected completion to succeed, got %v", err)
	}

	if task.Status != TaskStatusCompleted {
		t.Errorf("Expected status %s, got %s", TaskStatusCompleted, task.Status)
	}
	if string(task.Result) != `{"plan":"salmon"}` {
		t.Errorf("Unexpected result %s", task.Result)
	}
	if task.CompletedAt == nil {
		t.Fatal("Expected CompletedAt to be set")
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Expected valid completed task, got %v", err)
	}

	// Terminal states never change
	if err := task.Fail("late failure", now); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("Expected ErrTaskTerminal, got %v", err)
	}
	if err := task.SetProgress("again"); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("Expected ErrTaskTerminal, got %v", err)
	}
	if task.Status != TaskStatusCompleted {
		t.Errorf("Expected status to remain %s, got %s", TaskStatusCompleted, task.Status)
	}
}

func TestTaskCompleteWithEmptyResult(t *testing.T) {
	t.Parallel()
	task, _ := NewTask("u1", MealPlanRequest{UserInput: "snack"}, time.Now())

	if err := task.Complete(nil, time.Now()); err != nil {
		t.Fatalf("Expected completion to succeed, got %v", err)
	}
	if string(task.Result) != "null" {
		t.Errorf("Expected null result placeholder, got %s", task.Result)
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Expected valid completed task, got %v", err)
	}
}

func TestTaskFail(t *testing.T) {
	t.Parallel()
	task, _ := NewTask("u1", MealPlanRequest{UserInput: "breakfast"}, time.Now())

	if err := task.Fail("compute service unavailable", time.Now()); err != nil {
		t.Fatalf("Expected failure transition to succeed, got %v", err)
	}

	if task.Status != TaskStatusFailed {
		t.Errorf("Expected status %s, got %s", TaskStatusFailed, task.Status)
	}
	if task.Error != "compute service unavailable" {
		t.Errorf("Unexpected error %q", task.Error)
	}
	if task.Message != TaskMessageFailed+": compute service unavailable" {
		t.Errorf("Unexpected message %q", task.Message)
	}
	if task.Result != nil {
		t.Error("Expected no result on a failed task")
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Expected valid failed task, got %v", err)
	}

	if err := task.Complete(json.RawMessage(`{}`), time.Now()); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("Expected ErrTaskTerminal, got %v", err)
	}
}

func TestTaskClone(t *testing.T) {
	t.Parallel()
	task, _ := NewTask("u1", MealPlanRequest{UserInput: "lunch"}, time.Now())
	_ = task.Complete(json.RawMessage(`{"a":1}`), time.Now())

	clone := task.Clone()
	clone.Result[2] = 'b'
	*clone.CompletedAt = clone.CompletedAt.Add(time.Hour)

	if string(task.Result) != `{"a":1}` {
		t.Errorf("Expected original result untouched, got %s", task.Result)
	}
	if task.CompletedAt.Equal(*clone.CompletedAt) {
		t.Error("Expected CompletedAt to be copied, not shared")
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()
	now := time.Now()

	tests := []struct {
		name    string
		task    Task
		wantErr error
	}{
		{
			name:    "unknown status",
			task:    Task{ID: "t", OwnerID: "u", Status: "queued"},
			wantErr: ErrInvalidTaskStatus,
		},
		{
			name:    "processing with completion time",
			task:    Task{ID: "t", OwnerID: "u", Status: TaskStatusProcessing, CompletedAt: &now},
			wantErr: ErrValidation,
		},
		{
			name:    "completed without result",
			task:    Task{ID: "t", OwnerID: "u", Status: TaskStatusCompleted, CompletedAt: &now},
			wantErr: ErrValidation,
		},
		{
			name:    "failed without error",
			task:    Task{ID: "t", OwnerID: "u", Status: TaskStatusFailed, CompletedAt: &now},
			wantErr: ErrValidation,
		},
		{
			name:    "missing owner",
			task:    Task{ID: "t", Status: TaskStatusProcessing},
			wantErr: ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.task.Validate(); !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
