package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/platform/logger"
	"github.com/phrazzld/nutritrack-api/internal/store"
)

// TaskStore implements the store.TaskStore interface over a map guarded by a
// read-write mutex. Callers only ever receive copies of stored tasks.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	now   func() time.Time
}

// TaskStoreOption customizes a TaskStore.
type TaskStoreOption func(*TaskStore)

// WithClock overrides the time source used for creation timestamps.
func WithClock(now func() time.Time) TaskStoreOption {
	return func(s *TaskStore) {
		s.now = now
	}
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore(opts ...TaskStoreOption) *TaskStore {
	s := &TaskStore{
		tasks: make(map[string]*domain.Task),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure TaskStore implements store.TaskStore
var _ store.TaskStore = (*TaskStore)(nil)

// Create stores a new processing task for the owner
func (s *TaskStore) Create(
	ctx context.Context,
	ownerID string,
	input domain.MealPlanRequest,
) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	task, err := domain.NewTask(ownerID, input, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// UUID collisions are not expected, but the store still owns uniqueness
	for {
		if _, exists := s.tasks[task.ID]; !exists {
			break
		}
		log.Warn("task ID collision, regenerating", "task_id", task.ID)
		task, err = domain.NewTask(ownerID, input, s.now())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
	}

	s.tasks[task.ID] = task
	log.Debug("task created", slog.String("task_id", task.ID), slog.String("owner_id", ownerID))

	return task.Clone(), nil
}

// Get retrieves a copy of the task with the given ID
func (s *TaskStore) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Update applies fn to a private copy of the task and commits the copy only
// when fn succeeds, so a failed mutation never leaves a half-applied task.
func (s *TaskStore) Update(ctx context.Context, taskID string, fn store.TaskMutator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return err
	}

	if updated.ID != current.ID || updated.OwnerID != current.OwnerID {
		return fmt.Errorf("%w: task identity and owner are immutable", store.ErrInvalidEntity)
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.tasks[taskID] = updated
	return nil
}

// Len returns the number of tasks held in memory.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
