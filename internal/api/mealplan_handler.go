package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/nutritrack-api/internal/api/shared"
	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/platform/logger"
	"github.com/phrazzld/nutritrack-api/internal/service"
)

// MealPlanSubmitter accepts meal plan requests for background processing.
type MealPlanSubmitter interface {
	SubmitMealPlan(ctx context.Context, ownerID string, req domain.MealPlanRequest) (*service.Submission, error)
}

// CreateMealPlanRequest represents the request body for a new meal plan
type CreateMealPlanRequest struct {
	UserInput           string   `json:"user_input"                     validate:"required,max=4000"`
	PlanType            string   `json:"plan_type,omitempty"            validate:"omitempty,oneof=daily single_meal multiple weekly"`
	MealType            string   `json:"meal_type,omitempty"            validate:"omitempty,oneof=breakfast lunch dinner snack"`
	TargetCalories      int      `json:"target_calories,omitempty"      validate:"omitempty,gt=0,lte=10000"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty" validate:"omitempty,max=20,dive,required,max=100"`
}

// SubmissionResponse is returned with 202 Accepted once a request is queued
type SubmissionResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	PollPath string `json:"poll_path"`
}

// MealPlanHandler handles meal plan HTTP requests
type MealPlanHandler struct {
	submitter MealPlanSubmitter
}

// NewMealPlanHandler creates a new MealPlanHandler
func NewMealPlanHandler(submitter MealPlanSubmitter) *MealPlanHandler {
	return &MealPlanHandler{submitter: submitter}
}

// CreateMealPlan handles POST /api/mealplans requests
func (h *MealPlanHandler) CreateMealPlan(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	ownerID, ok := shared.GetOwnerID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateMealPlanRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	submission, err := h.submitter.SubmitMealPlan(r.Context(), ownerID, domain.MealPlanRequest{
		UserInput:           req.UserInput,
		PlanType:            req.PlanType,
		MealType:            req.MealType,
		TargetCalories:      req.TargetCalories,
		DietaryRestrictions: req.DietaryRestrictions,
	})
	if err != nil {
		status := MapErrorToStatusCode(err)
		var opts []shared.ResponseOption
		if errors.Is(err, service.ErrQueueUnavailable) {
			opts = append(opts, shared.WithElevatedLogLevel())
			w.Header().Set("Retry-After", "30")
		}
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err, opts...)
		return
	}

	log.Info("meal plan request accepted", "task_id", submission.TaskID)
	w.Header().Set("Location", submission.PollPath)
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmissionResponse{
		TaskID:   submission.TaskID,
		Status:   string(submission.Status),
		Message:  submission.Message,
		PollPath: submission.PollPath,
	})
}
