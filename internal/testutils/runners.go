package testutils

import (
	"context"
	"encoding/json"

	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/task"
)

// StaticRunner returns a runner that reports progress once and then
// answers every request with result.
func StaticRunner(result json.RawMessage) task.Runner {
	return task.RunnerFunc(func(
		_ context.Context,
		_ domain.MealPlanRequest,
		progress func(string),
	) (json.RawMessage, error) {
		if progress != nil {
			progress(domain.TaskMessageInProgress)
		}
		return result, nil
	})
}

// FailingRunner returns a runner that fails every request with err.
func FailingRunner(err error) task.Runner {
	return task.RunnerFunc(func(context.Context, domain.MealPlanRequest, func(string)) (json.RawMessage, error) {
		return nil, err
	})
}

// BlockingRunner returns a runner that signals on started and then waits for
// release or context cancellation. started must be buffered or drained.
func BlockingRunner(started chan<- string, release <-chan struct{}) task.Runner {
	return task.RunnerFunc(func(
		ctx context.Context,
		req domain.MealPlanRequest,
		_ func(string),
	) (json.RawMessage, error) {
		started <- req.UserInput
		select {
		case <-release:
			return json.RawMessage(`{"ok":true}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}
