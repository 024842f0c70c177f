package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/orchestrator"
)

// AllocateTask ставит task в очередь воркера.
// POST /allocate_task
func (h *Handler) AllocateTask(w http.ResponseWriter, r *http.Request) {
	var task domain.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		h.logger.Warn("allocate task: invalid body", "error", err)
		Failure(w, http.StatusInternalServerError, "invalid task: "+err.Error())
		return
	}
	if task.AllocatedAt.IsZero() {
		task.AllocatedAt = h.now().UTC()
	}

	if err := h.worker.Enqueue(&task); err != nil {
		h.logger.Warn("allocate task rejected", "task_id", task.TaskID, "error", err)
		Failure(w, http.StatusInternalServerError, err.Error())
		return
	}

	Success(w, http.StatusAccepted, "Task allocated")
}

// Inference получает task у сервера оркестрации по имени endpoint'а и ставит его в очередь.
// POST /inference
func (h *Handler) Inference(w http.ResponseWriter, r *http.Request) {
	var req domain.InferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSON(w, http.StatusInternalServerError, Result{Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		JSON(w, http.StatusInternalServerError, Result{Error: err.Error()})
		return
	}

	task, err := h.inference.Inference(r.Context(), req)
	if err != nil {
		h.logger.Error("inference failed", "endpoint_name", req.EndpointName, "error", err)
		msg, ok := orchestrator.ServerMessage(err)
		if !ok {
			msg = err.Error()
		}
		JSON(w, http.StatusInternalServerError, Result{Error: msg})
		return
	}

	task.IsDedicated = req.IsDedicated
	task.AllocatedAt = h.now().UTC()

	if err := h.worker.Enqueue(task); err != nil {
		h.logger.Warn("inference task rejected", "task_id", task.TaskID, "error", err)
		JSON(w, http.StatusInternalServerError, Result{Error: err.Error()})
		return
	}

	JSON(w, http.StatusAccepted, Result{
		Success: true,
		Message: "Task allocated",
		TaskID:  task.TaskID,
	})
}
