package api

import (
	"net/http"

	"github.com/phrazzld/nutritrack-api/internal/api/shared"
	"github.com/phrazzld/nutritrack-api/internal/task"
)

// QueueStatsReader reports the state of the background queue.
type QueueStatsReader interface {
	Stats() task.Stats
}

// HealthResponse is the body of the detailed health endpoint.
type HealthResponse struct {
	Status string     `json:"status"`
	Queue  task.Stats `json:"queue"`
}

// HealthHandler serves liveness and queue health checks.
type HealthHandler struct {
	queue QueueStatsReader
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(queue QueueStatsReader) *HealthHandler {
	return &HealthHandler{queue: queue}
}

// Live handles GET /health.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Queue handles GET /health/queue.
func (h *HealthHandler) Queue(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ok",
		Queue:  h.queue.Stats(),
	})
}
