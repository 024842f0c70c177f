package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Replay/internal/config"
	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/worker"
)

const recordingYAML = `
url: https://example.com/login
parameters:
  input_parameters:
    username: []
nodes:
  - before_sleep_time: 1
    interaction_action:
      max_tries: 3
      click_element:
        command: "#submit"
        prompt_instructions: Click the submit button
  - sleep_action:
      sleep_time: 0.5
  - state_jump_action:
      next_state_index: -1
`

func writeRecording(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "login.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRecording(t *testing.T) {
	a, err := LoadRecording(writeRecording(t, recordingYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/login", a.URL)
	require.Len(t, a.Nodes, 3)
	assert.Equal(t, 1.0, a.Nodes[0].BeforeSleepTime)

	click, ok := a.Nodes[0].Action.(*domain.InteractionAction)
	require.True(t, ok)
	require.NotNil(t, click.ClickElement)
	assert.Equal(t, "#submit", click.ClickElement.Command)

	_, ok = a.Nodes[1].Action.(*domain.SleepAction)
	assert.True(t, ok)
	jump, ok := a.Nodes[2].Action.(*domain.StateJumpAction)
	require.True(t, ok)
	assert.Equal(t, -1, jump.NextStateIndex)
}

func TestLoadRecording_Invalid(t *testing.T) {
	_, err := LoadRecording(writeRecording(t, "nodes: []\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidAutomation)

	_, err = LoadRecording(writeRecording(t, "url: [unclosed"))
	assert.Error(t, err)

	_, err = LoadRecording(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams([]string{"user=alice", "code=1", "code=2", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"user":  {"alice"},
		"code":  {"1", "2"},
		"empty": {""},
	}, params)

	_, err = ParseParams([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestChildCommand(t *testing.T) {
	factory := childCommand("/usr/local/bin/replay-worker", "/etc/replay.yaml")

	cmd, err := factory(worker.RunSpec{ChildID: 2, UniqueChildARN: "arn:x", CDPPort: 9224})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/usr/local/bin/replay-worker", "exec",
		"--child-process-id", "2",
		"--unique-child-arn", "arn:x",
		"--cdp-port", "9224",
		"--config", "/etc/replay.yaml",
	}, cmd.Args)
	assert.Same(t, os.Stdout, cmd.Stdout)
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 1}
	assert.Equal(t, "exit status 1", err.Error())
}

func TestOutput(t *testing.T) {
	mem := &domain.Memory{TaskID: "t1", Status: domain.TaskStatusFailed, Error: "boom"}

	var table, msgs bytes.Buffer
	printMemory(newOutputTo(false, &table, &msgs), mem)
	assert.Contains(t, table.String(), "TASK_ID")
	assert.Contains(t, table.String(), "failed")
	assert.Contains(t, table.String(), "boom")

	var js bytes.Buffer
	printMemory(newOutputTo(true, &js, &msgs), mem)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "t1", decoded["task_id"])
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd("test")

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["exec"])
	assert.True(t, names["run"])
}

func TestRegisterLocalTask(t *testing.T) {
	var gotPath, gotKey string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := &config.Config{Server: config.Server{
		URL:                srv.URL,
		APIKey:             "local-key",
		CreateTaskEndpoint: "/api/v1/create_task",
	}}
	task := &domain.Task{
		TaskID:          "local-1",
		RecordingID:     "login",
		InputParameters: map[string][]string{"username": {"alice"}},
	}

	client, err := registerLocalTask(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), task)
	require.NoError(t, err)
	assert.NotNil(t, client)

	assert.Equal(t, "/api/v1/create_task", gotPath)
	assert.Equal(t, "local-key", gotKey)
	assert.Equal(t, "local-1", body["task_id"])
	assert.Equal(t, "login", body["recording_id"])
}

func TestRegisterLocalTask_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"recording not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &config.Config{Server: config.Server{URL: srv.URL, CreateTaskEndpoint: "/create"}}
	_, err := registerLocalTask(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), &domain.Task{TaskID: "x"})
	assert.Error(t, err)
}
