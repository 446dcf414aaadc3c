// Package store defines interfaces for task storage. These interfaces keep the
// orchestration logic independent of where task records live, so the volatile
// in-memory implementation can later be swapped for a persistent one.
package store
