package store

import (
	"context"

	"github.com/phrazzld/nutritrack-api/internal/domain"
)

// TaskMutator applies a change to a task. Returning an error aborts the update
// and leaves the stored task untouched.
type TaskMutator func(task *domain.Task) error

// TaskStore defines the interface for task lifecycle storage.
// Implementations must make every Update atomic: readers either see the task
// before the mutation or after it, never in between.
// Version: 1.0
type TaskStore interface {
	// Create stores a new processing task for the owner and returns it.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, ownerID string, input domain.MealPlanRequest) (*domain.Task, error)

	// Get retrieves a copy of the task with the given ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Get(ctx context.Context, taskID string) (*domain.Task, error)

	// Update applies fn to the task with the given ID and commits the result.
	// Returns ErrTaskNotFound if the task does not exist, or the error from fn.
	Update(ctx context.Context, taskID string, fn TaskMutator) error
}
