package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution_Lifecycle(t *testing.T) {
	allocated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewExecution(&Task{TaskID: "t1", RecordingID: "r1", AllocatedAt: allocated}, 3)

	require.Equal(t, TaskStatusQueued, e.Status)
	assert.True(t, e.QueuedAt.Equal(allocated), "queued_at should come from allocated_at, got %v", e.QueuedAt)
	assert.Equal(t, int64(3), e.ChildProcessID)

	start := allocated.Add(time.Second)
	e.MarkRunning(start)
	e.MarkExited(0, start.Add(2*time.Second))

	assert.Equal(t, TaskStatusSuccess, e.Status)
	assert.False(t, e.TimedOut)
	assert.Equal(t, 2*time.Second, e.Duration())
}

func TestExecution_Timeout(t *testing.T) {
	e := NewExecution(&Task{TaskID: "t1"}, 0)
	e.MarkRunning(time.Now())
	e.MarkExited(ExitCodeTimeout, time.Now())

	assert.Equal(t, TaskStatusFailed, e.Status)
	assert.True(t, e.TimedOut, "exit -1 should be marked as timeout")
	require.NotNil(t, e.ExitCode)
	assert.Equal(t, -1, *e.ExitCode)
}
