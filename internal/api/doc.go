// Package api implements the HTTP handlers for meal plan submission and task
// status polling, and maps service errors to HTTP responses.
package api
