package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/telemetry"
	"github.com/shaiso/Replay/internal/worker"
)

// TaskWorker — то, что API нужно от воркера (worker.Worker).
type TaskWorker interface {
	Health(now time.Time) worker.Health
	IsTaskRunning() bool
	SetChildID(id int64)
	Enqueue(task *domain.Task) error
}

// InferenceResolver превращает запрос по имени endpoint'а в task (orchestrator.Client).
type InferenceResolver interface {
	Inference(ctx context.Context, req domain.InferenceRequest) (*domain.Task, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	worker    TaskWorker
	inference InferenceResolver
	metrics   *telemetry.Metrics
	exporter  http.Handler
	now       func() time.Time
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Worker TaskWorker

	// Inference — nil, если воркер управляется сервером: /inference не регистрируется.
	Inference InferenceResolver

	// Metrics — счётчик HTTP-запросов (опционально).
	Metrics *telemetry.Metrics

	// MetricsHandler отдаёт /metrics (опционально).
	MetricsHandler http.Handler

	Now    func() time.Time
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		worker:    cfg.Worker,
		inference: cfg.Inference,
		metrics:   cfg.Metrics,
		exporter:  cfg.MetricsHandler,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}
