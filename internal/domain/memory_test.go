package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	task := &Task{
		TaskID:          "task-42",
		RecordingID:     "rec-1",
		InputParameters: map[string][]string{"user": {"alice", "bob"}},
	}
	m, err := NewMemory(task, t.TempDir(), "arn:child:1")
	require.NoError(t, err)
	return m
}

func TestNewMemory_CreatesDirectories(t *testing.T) {
	m := newTestMemory(t)

	for _, dir := range []string{m.Dirs.Logs, m.Dirs.Downloads, m.Dirs.Screenshots} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(m.Dirs.Logs, LogFileName), m.Dirs.LogFile)
	assert.Equal(t, -1, m.AutomationState.StepIndex)
	assert.Equal(t, -1, m.AutomationState.TryIndex)
	assert.Equal(t, TaskStatusQueued, m.Status)
}

func TestMemory_TerminalStatusIsSticky(t *testing.T) {
	m := newTestMemory(t)

	m.MarkRunning()
	require.Equal(t, TaskStatusRunning, m.Status)
	require.NotNil(t, m.StartedAt)

	m.MarkFailed("boom")
	assert.Equal(t, TaskStatusFailed, m.Status)
	assert.Equal(t, "boom", m.Error)

	m.MarkSucceeded()
	m.AddOutput(OutputData{Text: "late"})
	m.AddDownload("/tmp/x")
	m.AddTokenUsage(TokenUsage{InputTokens: 10})

	assert.Equal(t, TaskStatusFailed, m.Status)
	assert.Empty(t, m.Variables.OutputData)
	assert.Empty(t, m.Downloads)
	assert.True(t, m.TokenUsage.IsZero())
}

func TestMemory_FinalScreenshotAfterFinish(t *testing.T) {
	m := newTestMemory(t)
	m.MarkRunning()
	m.MarkSucceeded()

	m.SetFinalScreenshot("aGVsbG8=")

	assert.Equal(t, "aGVsbG8=", m.FinalScreenshot)
	assert.Equal(t, TaskStatusSuccess, m.Status)
}

func TestMemory_LookupPrefersInputs(t *testing.T) {
	m := newTestMemory(t)
	m.SetGenerated("user", "generated")
	m.SetGenerated("otp", "123456")

	v, ok := m.Lookup("user")
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob"}, v)

	v, ok = m.Lookup("otp")
	require.True(t, ok)
	assert.Equal(t, []string{"123456"}, v)

	_, ok = m.Lookup("missing")
	assert.False(t, ok)
}

func TestMemory_2FATimer(t *testing.T) {
	m := newTestMemory(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	m.Arm2FATimer(at)
	require.NotNil(t, m.AutomationState.Start2FATime)
	assert.Equal(t, at, *m.AutomationState.Start2FATime)

	m.Clear2FATimer()
	assert.Nil(t, m.AutomationState.Start2FATime)
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
	sum := u.Add(TokenUsage{InputTokens: 10, OutputTokens: 5})

	assert.Equal(t, int64(11), sum.InputTokens)
	assert.Equal(t, int64(7), sum.OutputTokens)
	assert.Equal(t, int64(18), sum.TotalTokens)
}
