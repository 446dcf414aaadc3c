package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/nutritrack-api/internal/api/shared"
	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/service"
	"github.com/phrazzld/nutritrack-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	gotOwner string
	gotReq   domain.MealPlanRequest
	err      error
}

func (f *fakeSubmitter) SubmitMealPlan(
	_ context.Context,
	ownerID string,
	req domain.MealPlanRequest,
) (*service.Submission, error) {
	f.gotOwner = ownerID
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &service.Submission{
		TaskID:   "t-1",
		Status:   domain.TaskStatusProcessing,
		Message:  domain.TaskMessageQueued,
		PollPath: service.TaskPollPathPrefix + "t-1",
	}, nil
}

type fakeReader struct {
	view *service.TaskView
	err  error
}

func (f *fakeReader) GetTaskStatus(_ context.Context, taskID, ownerID string) (*service.TaskView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

type fakeStats struct{ stats task.Stats }

func (f fakeStats) Stats() task.Stats { return f.stats }

func newAuthedRequest(method, target, body, ownerID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ownerID != "" {
		req = req.WithContext(shared.WithOwnerID(req.Context(), ownerID))
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateMealPlan_Accepted(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	h := NewMealPlanHandler(submitter)

	rec := httptest.NewRecorder()
	h.CreateMealPlan(rec, newAuthedRequest(http.MethodPost, "/api/mealplans",
		`{"user_input":"high protein lunch","meal_type":"lunch","target_calories":700}`, "u1"))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/tasks/t-1", rec.Header().Get("Location"))

	var resp SubmissionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "t-1", resp.TaskID)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, domain.TaskMessageQueued, resp.Message)
	assert.Equal(t, "/api/tasks/t-1", resp.PollPath)

	assert.Equal(t, "u1", submitter.gotOwner)
	assert.Equal(t, "high protein lunch", submitter.gotReq.UserInput)
	assert.Equal(t, "lunch", submitter.gotReq.MealType)
	assert.Equal(t, 700, submitter.gotReq.TargetCalories)
}

func TestCreateMealPlan_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		ownerID    string
		submitErr  error
		wantStatus int
		wantError  string
	}{
		{
			name:       "unauthenticated",
			body:       `{"user_input":"lunch"}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "User ID not found or invalid",
		},
		{
			name:       "malformed json",
			body:       `{"user_input":`,
			ownerID:    "u1",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "unknown field",
			body:       `{"user_input":"lunch","extra":true}`,
			ownerID:    "u1",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "empty body",
			body:       ``,
			ownerID:    "u1",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name: "too many dietary restrictions",
			body: `{"user_input":"lunch","dietary_restrictions":[` +
				strings.TrimSuffix(strings.Repeat(`"nuts",`, 21), ",") + `]}`,
			ownerID:    "u1",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid dietary_restrictions: too long",
		},
		{
			name:       "missing user input",
			body:       `{"plan_type":"daily"}`,
			ownerID:    "u1",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid user_input: required field",
		},
		{
			name:       "service validation",
			body:       `{"user_input":"   "}`,
			ownerID:    "u1",
			submitErr:  fmt.Errorf("%w: user input is required", domain.ErrValidation),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request data",
		},
		{
			name:       "queue unavailable",
			body:       `{"user_input":"lunch"}`,
			ownerID:    "u1",
			submitErr:  fmt.Errorf("%w: %w", service.ErrQueueUnavailable, task.ErrQueueClosed),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Meal plan generation is temporarily unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMealPlanHandler(&fakeSubmitter{err: tt.submitErr})

			rec := httptest.NewRecorder()
			h.CreateMealPlan(rec, newAuthedRequest(http.MethodPost, "/api/mealplans", tt.body, tt.ownerID))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}

func TestCreateMealPlan_QueueUnavailableSetsRetryAfter(t *testing.T) {
	t.Parallel()

	h := NewMealPlanHandler(&fakeSubmitter{err: service.ErrQueueUnavailable})
	rec := httptest.NewRecorder()
	h.CreateMealPlan(rec, newAuthedRequest(http.MethodPost, "/api/mealplans", `{"user_input":"lunch"}`, "u1"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func serveTask(h *TaskHandler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/tasks/{id}", h.GetTask)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	completed := created.Add(42 * time.Second)

	t.Run("completed", func(t *testing.T) {
		h := NewTaskHandler(&fakeReader{view: &service.TaskView{
			ID:          "t-1",
			Status:      domain.TaskStatusCompleted,
			Message:     domain.TaskMessageCompleted,
			Result:      json.RawMessage(`{"meals":["eggs"]}`),
			CreatedAt:   created,
			CompletedAt: &completed,
		}})

		rec := serveTask(h, newAuthedRequest(http.MethodGet, "/api/tasks/t-1", "", "u1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "t-1", body["task_id"])
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, map[string]any{"meals": []any{"eggs"}}, body["result"])
		assert.Equal(t, "2025-03-01T12:00:42Z", body["completed_at"])
		assert.NotContains(t, body, "error")
	})

	t.Run("processing omits outcome", func(t *testing.T) {
		h := NewTaskHandler(&fakeReader{view: &service.TaskView{
			ID:        "t-2",
			Status:    domain.TaskStatusProcessing,
			Message:   domain.TaskMessageInProgress,
			CreatedAt: created,
		}})

		rec := serveTask(h, newAuthedRequest(http.MethodGet, "/api/tasks/t-2", "", "u1"))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "processing", body["status"])
		assert.Equal(t, domain.TaskMessageInProgress, body["message"])
		assert.NotContains(t, body, "result")
		assert.NotContains(t, body, "completed_at")
	})

	t.Run("failed", func(t *testing.T) {
		h := NewTaskHandler(&fakeReader{view: &service.TaskView{
			ID:          "t-3",
			Status:      domain.TaskStatusFailed,
			Message:     domain.TaskMessageFailed + ": timed out",
			Error:       "timed out",
			CreatedAt:   created,
			CompletedAt: &completed,
		}})

		rec := serveTask(h, newAuthedRequest(http.MethodGet, "/api/tasks/t-3", "", "u1"))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "failed", resp.Status)
		assert.Equal(t, "timed out", resp.Error)
	})

	t.Run("not found", func(t *testing.T) {
		h := NewTaskHandler(&fakeReader{err: service.ErrTaskNotFound})
		rec := serveTask(h, newAuthedRequest(http.MethodGet, "/api/tasks/missing", "", "u1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Task not found", decodeError(t, rec).Error)
	})

	t.Run("not owned", func(t *testing.T) {
		h := NewTaskHandler(&fakeReader{err: service.ErrTaskNotOwned})
		rec := serveTask(h, newAuthedRequest(http.MethodGet, "/api/tasks/t-1", "", "u2"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := NewTaskHandler(&fakeReader{})
		rec := serveTask(h, newAuthedRequest(http.MethodGet, "/api/tasks/t-1", "", ""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(fakeStats{stats: task.Stats{Pending: 2, Busy: true, Enqueued: 5, Completed: 3}})

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	h.Queue(rec, httptest.NewRequest(http.MethodGet, "/health/queue", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Queue.Pending)
	assert.True(t, resp.Queue.Busy)
	assert.Equal(t, int64(3), resp.Queue.Completed)
}
