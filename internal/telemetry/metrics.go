package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы task для replay_tasks_total.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

// Metrics — метрики воркера.
type Metrics struct {
	TasksTotal      *prometheus.CounterVec
	TaskDuration    prometheus.Histogram
	QueueDepth      prometheus.Gauge
	TaskRunning     prometheus.Gauge
	SessionsStarted prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg. nil — prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		TasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_tasks_total",
			Help: "Tasks processed by the worker, by outcome.",
		}, []string{"outcome"}),
		TaskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "replay_task_duration_seconds",
			Help:    "Wall time of a task child process.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "replay_queue_depth",
			Help: "Tasks waiting in the local queue.",
		}),
		TaskRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "replay_task_running",
			Help: "1 while a task is executing.",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "replay_browser_sessions_started_total",
			Help: "Browser sessions launched.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),
	}
}
