package domain

import (
	"fmt"
	"strings"
)

// Plan types understood by the meal planner.
const (
	PlanTypeDaily      = "daily"
	PlanTypeSingleMeal = "single_meal"
	PlanTypeMultiple   = "multiple"
	PlanTypeWeekly     = "weekly"
)

// MaxTargetCalories caps the calorie target a request may ask for.
const MaxTargetCalories = 10000

// MealPlanRequest is the free-text request a user submits to the meal planner,
// plus the optional hints the planner understands.
type MealPlanRequest struct {
	UserInput           string   `json:"user_input"`
	PlanType            string   `json:"plan_type,omitempty"`
	MealType            string   `json:"meal_type,omitempty"`
	TargetCalories      int      `json:"target_calories,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
}

// Validate checks the parts of the request the orchestrator depends on.
// Request format rules are enforced by api.CreateMealPlanRequest.
func (r MealPlanRequest) Validate() error {
	if strings.TrimSpace(r.UserInput) == "" {
		return fmt.Errorf("%w: user input is required", ErrValidation)
	}

	switch r.PlanType {
	case "", PlanTypeDaily, PlanTypeSingleMeal, PlanTypeMultiple, PlanTypeWeekly:
	default:
		return fmt.Errorf("%w: unknown plan type %q", ErrValidation, r.PlanType)
	}

	if r.TargetCalories < 0 || r.TargetCalories > MaxTargetCalories {
		return fmt.Errorf("%w: target calories out of range", ErrValidation)
	}

	return nil
}

// Clone returns a copy of the request that shares no memory with r.
func (r MealPlanRequest) Clone() MealPlanRequest {
	if r.DietaryRestrictions != nil {
		r.DietaryRestrictions = append([]string(nil), r.DietaryRestrictions...)
	}
	return r
}
