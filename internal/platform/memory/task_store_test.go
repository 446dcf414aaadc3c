package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStore_CreateAndGet(t *testing.T) {
	fixed := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)
	s := NewTaskStore(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	created, err := s.Create(ctx, "u1", domain.MealPlanRequest{UserInput: "high protein lunch"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, "high protein lunch", got.Input.UserInput)
	assert.Equal(t, fixed, got.CreatedAt)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 1, s.Len())
}

func TestTaskStore_CreateRejectsEmptyOwner(t *testing.T) {
	s := NewTaskStore()

	_, err := s.Create(context.Background(), "", domain.MealPlanRequest{UserInput: "x"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, s.Len())
}

func TestTaskStore_GetNotFound(t *testing.T) {
	s := NewTaskStore()

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestTaskStore_GetReturnsCopy(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	created, err := s.Create(ctx, "u1", domain.MealPlanRequest{UserInput: "x"})
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	got.Status = domain.TaskStatusFailed
	got.Message = "tampered"

	again, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, again.Status)
	assert.Equal(t, domain.TaskMessageQueued, again.Message)
}

func TestTaskStore_Update(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	created, err := s.Create(ctx, "u1", domain.MealPlanRequest{UserInput: "x"})
	require.NoError(t, err)

	err = s.Update(ctx, created.ID, func(task *domain.Task) error {
		return task.Complete(json.RawMessage(`{"meals":[]}`), time.Now())
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.JSONEq(t, `{"meals":[]}`, string(got.Result))
	assert.NotNil(t, got.CompletedAt)

	// A second terminal update is refused and leaves the task untouched
	err = s.Update(ctx, created.ID, func(task *domain.Task) error {
		return task.Fail("too late", time.Now())
	})
	assert.ErrorIs(t, err, domain.ErrTaskTerminal)

	got, err = s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
}

func TestTaskStore_UpdateIsAllOrNothing(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	created, err := s.Create(ctx, "u1", domain.MealPlanRequest{UserInput: "x"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Update(ctx, created.ID, func(task *domain.Task) error {
		task.Message = "half applied"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskMessageQueued, got.Message)
}

func TestTaskStore_UpdateRejectsInvariantViolations(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	created, err := s.Create(ctx, "u1", domain.MealPlanRequest{UserInput: "x"})
	require.NoError(t, err)

	t.Run("owner is immutable", func(t *testing.T) {
		err := s.Update(ctx, created.ID, func(task *domain.Task) error {
			task.OwnerID = "u2"
			return nil
		})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("status set without outcome", func(t *testing.T) {
		err := s.Update(ctx, created.ID, func(task *domain.Task) error {
			task.Status = domain.TaskStatusCompleted
			return nil
		})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
}

func TestTaskStore_UpdateNotFound(t *testing.T) {
	s := NewTaskStore()

	err := s.Update(context.Background(), "missing", func(task *domain.Task) error { return nil })
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStore_ConcurrentAccess(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()

	const writers = 20
	ids := make(chan string, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := s.Create(ctx, "u1", domain.MealPlanRequest{UserInput: "x"})
			if !assert.NoError(t, err) {
				return
			}
			ids <- task.ID
			_ = s.Update(ctx, task.ID, func(tk *domain.Task) error {
				return tk.SetProgress(domain.TaskMessageInProgress)
			})
			_, _ = s.Get(ctx, task.ID)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "task IDs must be unique")
		seen[id] = true
	}
	assert.Len(t, seen, writers)
	assert.Equal(t, writers, s.Len())
}
