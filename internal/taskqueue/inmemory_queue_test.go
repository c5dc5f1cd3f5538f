package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryQueue_EnqueueDequeueOrder(t *testing.T) {
	q := NewInMemoryQueue(10)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := q.Enqueue(ctx, Task{ID: id, Input: id}); err != nil {
			t.Fatalf("Enqueue %s failed: %v", id, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected Len 3, got %d", q.Len())
	}

	var got []string
	for range 3 {
		task, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		got = append(got, task.ID)
	}
	if got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Fatalf("unexpected dequeue order: %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("expected Len 0 after dequeues, got %d", q.Len())
	}
}

func TestInMemoryQueue_DequeueHonorsContextCancellation(t *testing.T) {
	q := NewInMemoryQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestInMemoryQueue_Full(t *testing.T) {
	q := NewInMemoryQueue(1)
	if q.Cap() != 1 {
		t.Fatalf("expected Cap 1, got %d", q.Cap())
	}
	if err := q.TryEnqueue(Task{ID: "a"}); err != nil {
		t.Fatalf("TryEnqueue failed: %v", err)
	}
	if err := q.TryEnqueue(Task{ID: "b"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, Task{ID: "b"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected blocked Enqueue to time out, got %v", err)
	}
}

func TestNewInMemoryQueue_DefaultCapacity(t *testing.T) {
	if got := NewInMemoryQueue(0).Cap(); got != 1024 {
		t.Fatalf("expected default capacity 1024, got %d", got)
	}
}
