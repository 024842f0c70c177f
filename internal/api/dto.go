package api

import "encoding/json"

// HealthResponse — ответ /health.
type HealthResponse struct {
	Status      string `json:"status"`
	TaskRunning bool   `json:"task_running"`
	QueuedTasks int    `json:"queued_tasks"`
	Message     string `json:"message,omitempty"`
}

// Значения HealthResponse.Status.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// SetChildProcessIDRequest — тело /set_child_process_id.
// Номер приходит и строкой, и числом.
type SetChildProcessIDRequest struct {
	NewChildProcessID json.Number `json:"new_child_process_id"`
}
