package compute

import (
	"encoding/json"

	"github.com/phrazzld/nutritrack-api/internal/domain"
)

// Job states reported by the status endpoint. Anything else counts as still running.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobHandle identifies work the compute service accepted but did not finish
// synchronously.
type JobHandle struct {
	JobID      string
	StatusPath string
}

// StartOutcome is what the start endpoint answered: exactly one of Result
// and Job is set.
type StartOutcome struct {
	Result json.RawMessage
	Job    *JobHandle
}

// Deferred reports whether the service handed back a job to poll.
func (o *StartOutcome) Deferred() bool {
	return o.Job != nil
}

// JobStatus is one decoded answer from the status endpoint.
type JobStatus struct {
	Status   string
	Result   json.RawMessage
	Error    string
	Progress string
}

// StartRequest is the body posted to the start endpoint. The planner reads
// calorie targets and restrictions from the nested user profile.
type StartRequest struct {
	UserInput   string      `json:"user_input"`
	UserProfile UserProfile `json:"user_profile"`
	MealType    string      `json:"meal_type,omitempty"`
	PlanType    string      `json:"plan_type,omitempty"`
}

// UserProfile carries the per-user hints of a StartRequest.
type UserProfile struct {
	TargetCalories      int      `json:"target_calories,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
}

// NewStartRequest maps a meal plan request onto the planner's wire shape.
func NewStartRequest(req domain.MealPlanRequest) StartRequest {
	return StartRequest{
		UserInput: req.UserInput,
		UserProfile: UserProfile{
			TargetCalories:      req.TargetCalories,
			DietaryRestrictions: req.DietaryRestrictions,
		},
		MealType: req.MealType,
		PlanType: req.PlanType,
	}
}
