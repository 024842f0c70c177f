package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Health сообщает, не завис ли воркер.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.worker.Health(h.now())
	resp := HealthResponse{
		Status:      StatusHealthy,
		TaskRunning: state.TaskRunning,
		QueuedTasks: state.QueuedTasks,
	}
	if !state.Healthy {
		resp.Status = StatusUnhealthy
		resp.Message = state.Message
		h.logger.Warn("health check failed", "message", state.Message)
		JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// IsTaskRunning возвращает true, пока выполняется task.
// GET /is_task_running
func (h *Handler) IsTaskRunning(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.worker.IsTaskRunning())
}

// SetChildProcessID меняет номер дочернего процесса воркера.
// POST /set_child_process_id
func (h *Handler) SetChildProcessID(w http.ResponseWriter, r *http.Request) {
	var req SetChildProcessIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	id, err := strconv.ParseInt(req.NewChildProcessID.String(), 10, 64)
	if err != nil || id < 0 {
		BadRequest(w, fmt.Sprintf("invalid child process id %q", req.NewChildProcessID))
		return
	}

	h.worker.SetChildID(id)
	Success(w, http.StatusOK, fmt.Sprintf("Child process ID set to %d", id))
}
