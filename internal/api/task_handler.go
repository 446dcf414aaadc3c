package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/nutritrack-api/internal/api/shared"
	"github.com/phrazzld/nutritrack-api/internal/service"
)

// TaskStatusReader looks up tasks on behalf of their owner.
type TaskStatusReader interface {
	GetTaskStatus(ctx context.Context, taskID, ownerID string) (*service.TaskView, error)
}

// TaskResponse represents the response data for a task
type TaskResponse struct {
	TaskID      string          `json:"task_id"`
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TaskHandler handles task status HTTP requests
type TaskHandler struct {
	reader TaskStatusReader
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(reader TaskStatusReader) *TaskHandler {
	return &TaskHandler{reader: reader}
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.GetOwnerID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return
	}

	view, err := h.reader.GetTaskStatus(r.Context(), taskID, ownerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// Clients poll this endpoint; a cached processing answer would stall them.
	w.Header().Set("Cache-Control", "no-store")
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(view))
}

// taskToResponse converts a service.TaskView to a TaskResponse
func taskToResponse(view *service.TaskView) TaskResponse {
	return TaskResponse{
		TaskID:      view.ID,
		Status:      string(view.Status),
		Message:     view.Message,
		Result:      view.Result,
		Error:       view.Error,
		CreatedAt:   view.CreatedAt,
		CompletedAt: view.CompletedAt,
	}
}
