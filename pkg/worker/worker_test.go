package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/internal/persistence"
	"github.com/petrijr/plano/internal/taskqueue"
	"github.com/petrijr/plano/internal/textkit"
	"github.com/petrijr/plano/pkg/plan"
)

func newRunner(t *testing.T) *engine.Runner {
	t.Helper()
	r, err := engine.Compile(textkit.NewRegistry(), plan.Steps("denoise", "upper"), engine.WithName("shout"))
	require.NoError(t, err)
	return r
}

func TestWorker_SubmitStoresQueuedRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := persistence.NewInMemoryRunStore()
	queue := taskqueue.NewInMemoryQueue(10)
	w := New(queue, store)

	id, err := w.Submit(ctx, newRunner(t), "~hi~")
	require.NoError(t, err)
	require.Equal(t, 1, queue.Len())

	rec, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, persistence.StatusQueued, rec.Status)
	require.Equal(t, "shout", rec.Plan)
}

func TestWorker_SubmitFailureLeavesNoQueuedRecord(t *testing.T) {
	t.Parallel()

	store := persistence.NewInMemoryRunStore()
	queue := taskqueue.NewInMemoryQueue(1)
	w := New(queue, store)
	r := newRunner(t)

	_, err := w.Submit(context.Background(), r, "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = w.Submit(ctx, r, "b")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = w.TrySubmit(context.Background(), r, "c")
	require.ErrorIs(t, err, ErrQueueFull)

	queued, err := store.ListRuns(context.Background(), persistence.RunFilter{Status: persistence.StatusQueued})
	require.NoError(t, err)
	require.Len(t, queued, queue.Len(), "every QUEUED record has a task behind it")

	failed, err := store.ListRuns(context.Background(), persistence.RunFilter{Status: persistence.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 2)
	for _, rec := range failed {
		require.Contains(t, rec.Err, "enqueue run")
	}
}

func TestWorker_TrySubmit(t *testing.T) {
	t.Parallel()

	store := persistence.NewInMemoryRunStore()
	w := New(taskqueue.NewInMemoryQueue(4), store)

	id, err := w.TrySubmit(context.Background(), newRunner(t), "~hi~")
	require.NoError(t, err)

	processed, err := w.ProcessOne(context.Background())
	require.True(t, processed)
	require.NoError(t, err)

	rec, err := store.GetRun(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, persistence.StatusCompleted, rec.Status)
	require.Equal(t, "HI", rec.Output)
}

func TestWorker_ProcessOneCompletesRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := persistence.NewInMemoryRunStore()
	w := New(taskqueue.NewInMemoryQueue(10), store)

	id, err := w.Submit(ctx, newRunner(t), "~hi~")
	require.NoError(t, err)

	processed, err := w.ProcessOne(ctx)
	require.True(t, processed)
	require.NoError(t, err)

	rec, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, persistence.StatusCompleted, rec.Status)
	require.Equal(t, "HI", rec.Output)
	require.Equal(t, []string{"denoise", "upper"}, rec.Trace.Names())
}

func TestWorker_ProcessOneRecordsFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := persistence.NewInMemoryRunStore()
	w := New(taskqueue.NewInMemoryQueue(10), store)

	// denoise expects a string.
	id, err := w.Submit(ctx, newRunner(t), 42)
	require.NoError(t, err)

	processed, err := w.ProcessOne(ctx)
	require.True(t, processed)
	require.Error(t, err)

	rec, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, persistence.StatusFailed, rec.Status)
	require.Contains(t, rec.Err, "Sequence[0].denoise")
	require.Len(t, rec.Trace, 1)
}

func TestWorker_ProcessOneHonorsContext(t *testing.T) {
	t.Parallel()

	w := New(taskqueue.NewInMemoryQueue(1), persistence.NewInMemoryRunStore())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	processed, err := w.ProcessOne(ctx)
	require.False(t, processed)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWorker_RunDrainsQueue(t *testing.T) {
	t.Parallel()

	store := persistence.NewInMemoryRunStore()
	w := New(taskqueue.NewInMemoryQueue(10), store)
	r := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ids []string
	for _, in := range []any{"a", "b", 3, "d"} {
		id, err := w.Submit(ctx, r, in)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 3) }()

	require.Eventually(t, func() bool {
		recs, err := store.ListRuns(ctx, persistence.RunFilter{})
		if err != nil {
			return false
		}
		for _, rec := range recs {
			if rec.Status == persistence.StatusQueued || rec.Status == persistence.StatusRunning {
				return false
			}
		}
		return len(recs) == len(ids)
	}, 2*time.Second, 10*time.Millisecond)

	failed, err := store.ListRuns(ctx, persistence.RunFilter{Status: persistence.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1, "a failed run does not stop the worker")

	cancel()
	require.NoError(t, <-done)
}
