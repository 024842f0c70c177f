package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Replay/internal/domain"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(&domain.Task{TaskID: id}))
	}
	require.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, task.TaskID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	q := NewQueue()
	got := make(chan string, 1)

	go func() {
		task, err := q.Pop(context.Background())
		if err == nil {
			got <- task.TaskID
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(&domain.Task{TaskID: "late"}))

	select {
	case id := <-got:
		assert.Equal(t, "late", id)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after push")
	}
}

func TestQueue_PopCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Push(&domain.Task{TaskID: "left"}))
	q.Close()

	assert.ErrorIs(t, q.Push(&domain.Task{TaskID: "x"}), ErrQueueClosed)

	task, err := q.Pop(context.Background())
	require.NoError(t, err, "remaining task should still be popped")
	assert.Equal(t, "left", task.TaskID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}
