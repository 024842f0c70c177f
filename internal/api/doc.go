// Package api содержит HTTP-интерфейс воркера.
//
// Структура:
//   - handler.go        — Handler с зависимостями (воркер, сервер оркестрации, метрики)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery, metrics)
//   - response.go       — JSON-ответы
//   - dto.go            — тела запросов и ответов
//   - task_handler.go   — приём task'ов: /allocate_task, /inference
//   - status_handler.go — /health, /is_task_running, /set_child_process_id
//
// Через этот интерфейс сервер оркестрации назначает task'и и следит за воркером.
package api
