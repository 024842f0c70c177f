package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/telemetry"
)

// BrowserSession — запущенный браузер, доступный дочерним процессам по CDP.
type BrowserSession interface {
	CDPURL() string
	Stop(ctx context.Context, graceful bool) error
}

// SessionLauncher запускает браузер на заданном порту. Пустой proxy — без прокси.
type SessionLauncher interface {
	Launch(ctx context.Context, port int, proxy string) (BrowserSession, error)
}

// LauncherFunc — адаптер функции к SessionLauncher.
type LauncherFunc func(ctx context.Context, port int, proxy string) (BrowserSession, error)

// Launch вызывает f.
func (f LauncherFunc) Launch(ctx context.Context, port int, proxy string) (BrowserSession, error) {
	return f(ctx, port, proxy)
}

// SessionManager владеет единственной живой сессией браузера воркера.
//
// Выделенный (is_dedicated) task переиспользует живую сессию и оставляет
// её после себя. Невыделенный получает свежий браузер, который
// останавливается после task. Живая сессия с другим прокси не
// переиспользуется.
//
// Методы вызываются только потребителем очереди, синхронизация не нужна.
type SessionManager struct {
	launcher SessionLauncher
	current  BrowserSession
	proxy    string // прокси живой сессии
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewSessionManager создаёт менеджер. metrics может быть nil.
func NewSessionManager(launcher SessionLauncher, metrics *telemetry.Metrics, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{launcher: launcher, metrics: metrics, logger: logger}
}

// Acquire готовит браузер для task. proxy — прокси, который нужен task
// (пусто, если use_proxy не задан).
func (m *SessionManager) Acquire(ctx context.Context, task *domain.Task, port int, proxy string) (BrowserSession, error) {
	if m.current != nil && (!task.IsDedicated || m.proxy != proxy) {
		m.logger.Debug("stopping browser before task",
			"task_id", task.TaskID,
			"is_dedicated", task.IsDedicated,
			"proxy_changed", m.proxy != proxy,
		)
		if err := m.current.Stop(ctx, false); err != nil {
			m.logger.Warn("browser stop failed", "task_id", task.TaskID, "error", err)
		}
		m.current = nil
		m.proxy = ""
	}

	if m.current != nil {
		m.logger.Debug("reusing browser session", "task_id", task.TaskID, "cdp_url", m.current.CDPURL())
		return m.current, nil
	}

	if m.launcher == nil {
		return nil, ErrNoLauncher
	}
	session, err := m.launcher.Launch(ctx, port, proxy)
	if err != nil {
		return nil, fmt.Errorf("launch browser on port %d: %w", port, err)
	}
	if m.metrics != nil {
		m.metrics.SessionsStarted.Inc()
	}
	m.current = session
	m.proxy = proxy
	return session, nil
}

// Release останавливает браузер невыделенного task. Ошибки только логируются.
func (m *SessionManager) Release(ctx context.Context, task *domain.Task) {
	if task.IsDedicated || m.current == nil {
		return
	}
	m.logger.Debug("stopping browser as task is not dedicated", "task_id", task.TaskID)
	if err := m.current.Stop(ctx, true); err != nil {
		m.logger.Error("error stopping browser", "task_id", task.TaskID, "error", err)
	}
	m.current = nil
	m.proxy = ""
}

// Close останавливает живую сессию при завершении воркера.
func (m *SessionManager) Close(ctx context.Context) error {
	if m.current == nil {
		return nil
	}
	err := m.current.Stop(ctx, true)
	m.current = nil
	m.proxy = ""
	if err != nil {
		return fmt.Errorf("stop browser: %w", err)
	}
	return nil
}

// Active сообщает, есть ли живая сессия.
func (m *SessionManager) Active() bool {
	return m.current != nil
}
