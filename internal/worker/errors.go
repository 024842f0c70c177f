package worker

import "errors"

// Ошибки воркера.
var (
	// ErrQueueClosed — очередь закрыта, новые task'и не принимаются.
	ErrQueueClosed = errors.New("task queue closed")

	// ErrProxyUnavailable — task требует прокси, а PROXY_URL не задан.
	ErrProxyUnavailable = errors.New("PROXY_URL is not set and is required when use_proxy is true")

	// ErrNoLauncher — SessionManager создан без SessionLauncher.
	ErrNoLauncher = errors.New("browser session launcher is not configured")

	// ErrExecutionTimeout — дочерний процесс не уложился в таймаут и был убит.
	ErrExecutionTimeout = errors.New("execution timeout")
)
