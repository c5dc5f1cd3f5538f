// Package worker executes compiled plans in the background.
//
// Submit records the run as QUEUED in a persistence.RunStore and places it
// on a taskqueue.Queue. Run starts a fixed number of goroutines that take
// tasks off the queue, mark them RUNNING, evaluate them and save the final
// COMPLETED or FAILED record under the same run ID.
//
// A failed run is an outcome, not a worker error: it is stored with its
// partial trace and the worker moves on to the next task. Runs are never
// retried or resumed.
package worker
