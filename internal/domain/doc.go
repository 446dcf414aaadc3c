// Package domain contains the core business entities of the meal-plan
// orchestration service: the long-running Task and the MealPlanRequest that
// starts one. It has no knowledge of storage, transport, or the compute service.
package domain
