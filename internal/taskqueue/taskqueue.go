// Package taskqueue holds runs waiting for a background worker.
package taskqueue

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/plano/pkg/api"
)

// ErrQueueFull is returned by TryEnqueue when the queue has no free slot.
var ErrQueueFull = errors.New("taskqueue: queue full")

// Runner is a compiled plan.
type Runner interface {
	Name() string
	Run(ctx context.Context, input any) (*api.RunResult, error)
}

// Task is one submitted run. ID becomes the run ID of the result.
type Task struct {
	ID         string
	Runner     Runner
	Input      any
	EnqueuedAt time.Time
}

// Queue is a FIFO of tasks.
type Queue interface {
	// Enqueue adds a task, blocking while the queue is full.
	Enqueue(ctx context.Context, t Task) error

	// TryEnqueue adds a task without blocking, failing with ErrQueueFull
	// when there is no room.
	TryEnqueue(t Task) error

	// Dequeue removes and returns the next task, blocking until one is
	// available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
