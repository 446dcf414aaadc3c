// Package service holds the application services behind the HTTP API: the
// meal-plan submission path, which records a task and hands the slow work to
// the dispatch queue, and the task status read path, which enforces ownership.
package service
