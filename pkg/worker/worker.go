package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/petrijr/plano/internal/persistence"
	"github.com/petrijr/plano/internal/taskqueue"
	"github.com/petrijr/plano/pkg/api"
)

// Runner is a compiled plan the worker can execute.
type Runner = taskqueue.Runner

// Worker pulls submitted runs from a Queue, executes them and saves their
// records in a RunStore.
type Worker struct {
	queue  taskqueue.Queue
	store  persistence.RunStore
	logger *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger for task lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Worker.
func New(queue taskqueue.Queue, store persistence.RunStore, opts ...Option) *Worker {
	w := &Worker{
		queue:  queue,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ErrQueueFull is returned by TrySubmit when the queue has no free slot.
var ErrQueueFull = taskqueue.ErrQueueFull

// Submit stores a QUEUED record for the run and enqueues it, blocking while
// the queue is full. The returned ID identifies the run in the store before
// and after it executes.
func (w *Worker) Submit(ctx context.Context, r Runner, input any) (string, error) {
	return w.submit(ctx, r, input, func(t taskqueue.Task) error { return w.queue.Enqueue(ctx, t) })
}

// TrySubmit is Submit without waiting: a full queue fails at once with
// ErrQueueFull.
func (w *Worker) TrySubmit(ctx context.Context, r Runner, input any) (string, error) {
	return w.submit(ctx, r, input, w.queue.TryEnqueue)
}

func (w *Worker) submit(ctx context.Context, r Runner, input any, enqueue func(taskqueue.Task) error) (string, error) {
	t := taskqueue.Task{
		ID:         uuid.NewString(),
		Runner:     r,
		Input:      input,
		EnqueuedAt: time.Now(),
	}
	rec := &persistence.RunRecord{
		ID:      t.ID,
		Plan:    r.Name(),
		Status:  persistence.StatusQueued,
		Started: t.EnqueuedAt,
	}
	if err := w.store.SaveRun(ctx, rec); err != nil {
		return "", fmt.Errorf("save queued run: %w", err)
	}
	if err := enqueue(t); err != nil {
		err = fmt.Errorf("enqueue run: %w", err)
		// No task backs the QUEUED record; close it so it does not wait forever.
		rec.Status = persistence.StatusFailed
		rec.Err = err.Error()
		if saveErr := w.store.SaveRun(context.WithoutCancel(ctx), rec); saveErr != nil {
			return "", errors.Join(err, fmt.Errorf("save unqueued run: %w", saveErr))
		}
		w.logger.WarnContext(ctx, "run_not_queued", slog.String("run_id", t.ID), slog.String("plan", rec.Plan), slog.Any("error", err))
		return "", err
	}
	w.logger.DebugContext(ctx, "run_queued", slog.String("run_id", t.ID), slog.String("plan", rec.Plan))
	return t.ID, nil
}

// ProcessOne pulls a single task from the queue and runs it.
// Returns (processed, error):
//   - processed == false: no task was obtained, err is the dequeue error
//     (usually the context's).
//   - processed == true: a task ran; err is the run's error or the error
//     saving its record.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	plan := task.Runner.Name()
	running := &persistence.RunRecord{
		ID:      task.ID,
		Plan:    plan,
		Status:  persistence.StatusRunning,
		Started: task.EnqueuedAt,
	}
	if err := w.store.SaveRun(ctx, running); err != nil {
		return true, fmt.Errorf("save running run: %w", err)
	}

	res, runErr := task.Runner.Run(api.WithRunID(ctx, task.ID), task.Input)
	if res == nil {
		res = &api.RunResult{ID: task.ID, Plan: plan, Started: task.EnqueuedAt}
	}
	if saveErr := w.store.SaveRun(ctx, persistence.NewRunRecord(res, runErr)); saveErr != nil {
		return true, errors.Join(runErr, fmt.Errorf("save finished run: %w", saveErr))
	}
	if runErr != nil {
		w.logger.WarnContext(ctx, "run_failed", slog.String("run_id", task.ID), slog.String("plan", plan), slog.Any("error", runErr))
	}
	return true, runErr
}

// Run processes tasks with the given number of goroutines until ctx is
// cancelled. Failed runs are recorded and do not stop the worker; Run
// returns nil once ctx is done.
func (w *Worker) Run(ctx context.Context, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for range concurrency {
		g.Go(func() error {
			for {
				processed, err := w.ProcessOne(ctx)
				if !processed {
					if ctx.Err() != nil {
						return nil
					}
					if err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}
