// Package task runs background work against the compute service one item at
// a time. Submitters enqueue an Item and return immediately; a single worker
// goroutine takes items in FIFO order, runs each to completion, and reports
// the outcome through the item's callbacks.
package task
