package orchestrator

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Replay/internal/domain"
)

var testEndpoints = Endpoints{
	CreateTask:     "/api/create_task",
	StartTask:      "/api/start_task",
	CompleteTask:   "/api/complete_task",
	SaveOutputData: "/api/save_output_data",
	SaveDownloads:  "/api/save_downloads",
	SaveTrajectory: "/api/save_trajectory",
	Inference:      "/api/inference",
	HumanInLoop:    "/api/human_in_loop",
	RegisterChild:  "/register_child",
}

type recorded struct {
	path   string
	apiKey string
	body   map[string]any
	form   map[string]string
	file   []byte
}

// newTestServer записывает запросы и отвечает handler'ом (или 200 {}).
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{path: r.URL.Path, apiKey: r.Header.Get("x-api-key")}

		if ct := r.Header.Get("Content-Type"); ct == "application/json" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rec.body))
		} else if r.Method == http.MethodPost {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			rec.form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				rec.form[k] = v[0]
			}
			for field, files := range r.MultipartForm.File {
				rec.form["file_field"] = field
				rec.form["filename"] = files[0].Filename
				rec.form["file_type"] = files[0].Header.Get("Content-Type")
				f, err := files[0].Open()
				require.NoError(t, err)
				rec.file, _ = io.ReadAll(f)
				f.Close()
			}
		}
		calls = append(calls, rec)

		if handler != nil {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: "default-key", Endpoints: testEndpoints})
	require.NoError(t, err)
	return c, &calls
}

func newMemory(t *testing.T) *domain.Memory {
	t.Helper()
	task := &domain.Task{TaskID: "task-42", RecordingID: "rec-1", APIKey: "task-key"}
	mem, err := domain.NewMemory(task, t.TempDir(), "arn:child")
	require.NoError(t, err)
	return mem
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(Config{BaseURL: "localhost:8080"})
	assert.Error(t, err)
}

func TestClient_TaskLifecycle(t *testing.T) {
	c, calls := newTestServer(t, nil)
	mem := newMemory(t)
	mem.MarkRunning()
	mem.AddTokenUsage(domain.TokenUsage{InputTokens: 7, OutputTokens: 3})
	mem.MarkFailed("node 2 (assertion_action): assertion failed")

	ctx := context.Background()
	require.NoError(t, c.StartTask(ctx, "task-key", mem))
	require.NoError(t, c.CompleteTask(ctx, "", mem))

	require.Len(t, *calls, 2)

	start := (*calls)[0]
	assert.Equal(t, "/api/start_task", start.path)
	assert.Equal(t, "task-key", start.apiKey)
	assert.Equal(t, "task-42", start.body["task_id"])
	assert.NotEmpty(t, start.body["started_at"])

	complete := (*calls)[1]
	assert.Equal(t, "/api/complete_task", complete.path)
	assert.Equal(t, "default-key", complete.apiKey)
	assert.Equal(t, "failed", complete.body["status"])
	assert.Equal(t, "node 2 (assertion_action): assertion failed", complete.body["error"])
	usage := complete.body["token_usage"].(map[string]any)
	assert.Equal(t, float64(10), usage["total_tokens"])
}

func TestClient_CreateTask(t *testing.T) {
	c, calls := newTestServer(t, nil)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	task := &domain.Task{
		TaskID:               "local-1",
		RecordingID:          "login",
		APIKey:               "task-key",
		InputParameters:      map[string][]string{"user": {"alice"}, "region": {"eu", "us"}},
		UniqueParameterNames: []string{"region"},
		CreatedAt:            &created,
	}

	require.NoError(t, c.CreateTask(context.Background(), task))

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/api/create_task", call.path)
	assert.Equal(t, "task-key", call.apiKey)
	assert.Equal(t, "local-1", call.body["task_id"])
	assert.Equal(t, "login", call.body["recording_id"])
	assert.Equal(t, "2024-05-01T12:00:00Z", call.body["created_at"])
	assert.Equal(t, []any{"eu", "us"}, call.body["unique_parameters"])
	params := call.body["input_parameters"].(map[string]any)
	assert.Equal(t, []any{"alice"}, params["user"])
}

func TestClient_CompleteTaskCancelledReportsFailed(t *testing.T) {
	c, calls := newTestServer(t, nil)
	mem := newMemory(t)
	mem.MarkCancelled("context canceled")

	require.NoError(t, c.CompleteTask(context.Background(), "", mem))
	assert.Equal(t, "failed", (*calls)[0].body["status"])
}

func TestClient_CompleteTaskSuccessHasNullError(t *testing.T) {
	c, calls := newTestServer(t, nil)
	mem := newMemory(t)
	mem.MarkSucceeded()

	require.NoError(t, c.CompleteTask(context.Background(), "", mem))
	body := (*calls)[0].body
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body, "error")
	assert.Nil(t, body["error"])
}

func TestClient_SaveOutputData(t *testing.T) {
	c, calls := newTestServer(t, nil)
	mem := newMemory(t)

	// Без данных запрос не отправляется.
	require.NoError(t, c.SaveOutputData(context.Background(), "", mem))
	assert.Empty(t, *calls)

	mem.AddOutput(domain.OutputData{UniqueIdentifier: "profile", JSONData: map[string]any{"name": "Ada"}})
	mem.AddOutput(domain.OutputData{Screenshot: &domain.ScreenshotData{Filename: "a.png", Base64: "AAAA"}})
	require.NoError(t, c.SaveOutputData(context.Background(), "", mem))

	require.Len(t, *calls, 1)
	body := (*calls)[0].body
	items := body["output_data"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "profile", items[0].(map[string]any)["unique_identifier"])
	assert.NotContains(t, items[1].(map[string]any), "screenshot")
	assert.Nil(t, body["final_screenshot"])
}

func TestClient_SaveDownloads(t *testing.T) {
	c, calls := newTestServer(t, nil)
	mem := newMemory(t)

	require.NoError(t, c.SaveDownloads(context.Background(), "", mem))
	assert.Empty(t, *calls, "no downloads, no request")

	path := filepath.Join(mem.Dirs.Downloads, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))
	mem.AddDownload(path)

	require.NoError(t, c.SaveDownloads(context.Background(), "task-key", mem))

	require.Len(t, *calls, 1)
	rec := (*calls)[0]
	assert.Equal(t, "/api/save_downloads", rec.path)
	assert.Equal(t, "task-key", rec.apiKey)
	assert.Equal(t, "task-42", rec.form["task_id"])
	assert.Equal(t, "compressed_downloads", rec.form["file_field"])
	assert.Equal(t, "task-42.tar.gz", rec.form["filename"])
	assert.Equal(t, "application/gzip", rec.form["file_type"])

	assert.Contains(t, tarNames(t, rec.file), "task-42/report.csv")
}

func TestClient_SaveTrajectory(t *testing.T) {
	c, calls := newTestServer(t, nil)
	mem := newMemory(t)
	require.NoError(t, os.WriteFile(mem.Dirs.LogFile, []byte("{}\n"), 0o644))

	require.NoError(t, c.SaveTrajectory(context.Background(), "", mem))

	rec := (*calls)[0]
	assert.Equal(t, "compressed_trajectory", rec.form["file_field"])
	names := tarNames(t, rec.file)
	assert.Contains(t, names, "task-42/logs/replay.log")
	assert.Contains(t, names, "task-42/downloads/")
}

func TestClient_HTTPError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": "recording not found"}`))
	})

	_, err := c.Inference(context.Background(), domain.InferenceRequest{EndpointName: "missing"})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Status)
	assert.Contains(t, httpErr.Body, "recording not found")

	msg, ok := ServerMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "recording not found", msg)

	_, ok = ServerMessage(errors.New("plain"))
	assert.False(t, ok)
}

func TestClient_Inference(t *testing.T) {
	taskJSON := `{"task_id":"t-9","recording_id":"r","api_key":"k","automation":{"url":"https://example.com","nodes":[]},"input_parameters":{"q":["x"]}}`

	tests := []struct {
		name string
		resp any
	}{
		{"task as object", map[string]any{"task": json.RawMessage(taskJSON)}},
		{"task as string", map[string]any{"task": taskJSON}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(tt.resp)
			})

			task, err := c.Inference(context.Background(), domain.InferenceRequest{
				EndpointName:         "search",
				InputParameters:      map[string][]string{"q": {"x"}},
				UniqueParameterNames: []string{"q"},
				IsDedicated:          true,
			})

			require.NoError(t, err)
			assert.Equal(t, "t-9", task.TaskID)
			assert.Equal(t, "search", (*calls)[0].body["endpoint_name"])
			assert.NotContains(t, (*calls)[0].body, "is_dedicated")
		})
	}
}

func TestClient_InferenceWithoutTask(t *testing.T) {
	c, _ := newTestServer(t, nil)

	_, err := c.Inference(context.Background(), domain.InferenceRequest{EndpointName: "x"})
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestClient_Registration(t *testing.T) {
	meta := `{
		"TaskARN": "arn:aws:ecs:task/abc",
		"Containers": [{
			"Networks": [{"IPv4Addresses": ["10.0.1.7"]}],
			"NetworkBindings": [
				{"containerPort": 9222, "hostPort": 32001},
				{"containerPort": 8000, "hostPort": 32002}
			]
		}]
	}`
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(meta))
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	reg, err := c.FetchRegistration(context.Background(), c.resolve("/v3/task"), 8000)
	require.NoError(t, err)
	assert.Equal(t, &Registration{TaskARN: "arn:aws:ecs:task/abc", PrivateIP: "10.0.1.7", Port: 32002}, reg)

	require.NoError(t, c.RegisterChild(context.Background(), reg))
	last := (*calls)[len(*calls)-1]
	assert.Equal(t, "/register_child", last.path)
	assert.Equal(t, float64(32002), last.body["port"])

	_, err = c.FetchRegistration(context.Background(), c.resolve("/v3/task"), 1234)
	assert.ErrorIs(t, err, ErrHostPortNotFound)
}

func TestHumanInLoop(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assert.Equal(t, "arn:child", r.URL.Query().Get("unique_child_arn"))
			assert.Equal(t, "task-42", r.URL.Query().Get("task_id"))
			_, _ = w.Write([]byte(`{"completed": true}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	h := &HumanInLoop{
		Client:         c,
		StatusURL:      c.resolve("/human_in_loop_status"),
		APIKey:         "task-key",
		UniqueChildARN: "arn:child",
	}

	require.NoError(t, h.Notify(context.Background(), "task-42"))
	done, err := h.IsCompleted(context.Background(), "task-42")
	require.NoError(t, err)
	assert.True(t, done)

	notify := (*calls)[0]
	assert.Equal(t, "/api/human_in_loop", notify.path)
	assert.Equal(t, "task-key", notify.apiKey)
	assert.Equal(t, "arn:child", notify.body["unique_child_arn"])
	assert.Empty(t, (*calls)[1].apiKey, "status poll goes without api key")
}

func tarNames(t *testing.T, data []byte) []string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	sort.Strings(names)
	return names
}
