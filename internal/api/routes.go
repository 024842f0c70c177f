package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		Metrics(h.metrics),
	)

	// Состояние
	mux.Handle("GET /health", chain(http.HandlerFunc(h.Health)))
	mux.Handle("GET /is_task_running", chain(http.HandlerFunc(h.IsTaskRunning)))
	mux.Handle("POST /set_child_process_id", chain(http.HandlerFunc(h.SetChildProcessID)))

	// Task'и
	mux.Handle("POST /allocate_task", chain(http.HandlerFunc(h.AllocateTask)))
	if h.inference != nil {
		mux.Handle("POST /inference", chain(http.HandlerFunc(h.Inference)))
	}

	if h.exporter != nil {
		mux.Handle("GET /metrics", h.exporter)
	}
}
