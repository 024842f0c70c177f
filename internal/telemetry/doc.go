// Package telemetry обеспечивает наблюдаемость воркера.
//
// Включает:
//   - logging.go — structured logging через slog, лог task в файл через slog-multi
//   - metrics.go — Prometheus метрики
//
// Родительский процесс экспортирует метрики на /metrics.
package telemetry
