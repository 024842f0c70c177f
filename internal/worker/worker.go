package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/mq"
	"github.com/shaiso/Replay/internal/telemetry"
)

// Default configuration values.
const (
	defaultUnhealthyAfter  = 15 * time.Minute
	defaultBrowserBasePort = 9222
	teardownTimeout        = 30 * time.Second
)

// Journal — журнал запусков (repo.ExecutionRepo).
type Journal interface {
	Create(ctx context.Context, e *domain.Execution) error
	Update(ctx context.Context, e *domain.Execution) error
}

// CompletionPublisher публикует событие о завершении task (mq.Publisher).
type CompletionPublisher interface {
	PublishTaskCompleted(ctx context.Context, payload mq.TaskCompletedPayload) error
}

// Worker принимает task'и и выполняет их по одному в дочерних процессах.
//
// Worker — явный контекст процесса воркера: номер дочернего процесса,
// уникальный ARN, флаг выполнения, время старта текущего task и
// менеджер сессии браузера. Очередь потребляет одна горутина (Run),
// поэтому task'и выполняются строго в порядке поступления.
type Worker struct {
	queue    *Queue
	runner   TaskRunner
	sessions *SessionManager
	sysinfo  *SysInfoRecorder

	journal   Journal
	publisher CompletionPublisher
	metrics   *telemetry.Metrics

	childID         atomic.Int64
	uniqueChildARN  atomic.Value // string
	running         atomic.Bool
	lastStart       atomic.Int64 // unix nano
	browserBasePort int
	unhealthyAfter  time.Duration
	proxyURL        string

	now    func() time.Time
	logger *slog.Logger
}

// Config — конфигурация Worker.
type Config struct {
	// Runner запускает task в дочернем процессе (обязательно).
	Runner TaskRunner

	// Sessions — менеджер браузера (обязательно).
	Sessions *SessionManager

	// SysInfo — снимки памяти (опционально).
	SysInfo *SysInfoRecorder

	// Journal — журнал в БД (опционально).
	Journal Journal

	// Publisher — события task.completed (опционально).
	Publisher CompletionPublisher

	// Metrics (опционально).
	Metrics *telemetry.Metrics

	// ChildID — номер дочернего процесса, задаёт порт браузера.
	ChildID int64

	// UniqueChildARN — идентификатор воркера; пусто — случайный UUID.
	UniqueChildARN string

	// BrowserBasePort — порт CDP для ChildID 0 (default: 9222).
	BrowserBasePort int

	// UnhealthyAfter — сколько может длиться task до статуса unhealthy (default: 15m).
	UnhealthyAfter time.Duration

	// ProxyURL — прокси для task'ов с use_proxy.
	ProxyURL string

	// Now — источник времени (для тестов).
	Now func() time.Time

	Logger *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	w := &Worker{
		queue:           NewQueue(),
		runner:          cfg.Runner,
		sessions:        cfg.Sessions,
		sysinfo:         cfg.SysInfo,
		journal:         cfg.Journal,
		publisher:       cfg.Publisher,
		metrics:         cfg.Metrics,
		browserBasePort: cfg.BrowserBasePort,
		unhealthyAfter:  cfg.UnhealthyAfter,
		proxyURL:        cfg.ProxyURL,
		now:             cfg.Now,
		logger:          cfg.Logger,
	}
	if w.browserBasePort <= 0 {
		w.browserBasePort = defaultBrowserBasePort
	}
	if w.unhealthyAfter <= 0 {
		w.unhealthyAfter = defaultUnhealthyAfter
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.sessions == nil {
		w.sessions = NewSessionManager(nil, cfg.Metrics, w.logger)
	}

	arn := cfg.UniqueChildARN
	if arn == "" {
		arn = uuid.NewString()
	}
	w.uniqueChildARN.Store(arn)
	w.childID.Store(cfg.ChildID)
	return w
}

// ChildID возвращает номер дочернего процесса.
func (w *Worker) ChildID() int64 {
	return w.childID.Load()
}

// SetChildID меняет номер дочернего процесса. Действует со следующего task.
func (w *Worker) SetChildID(id int64) {
	w.childID.Store(id)
	w.logger.Info("child process id set", "child_process_id", id)
}

// UniqueChildARN возвращает идентификатор воркера.
func (w *Worker) UniqueChildARN() string {
	return w.uniqueChildARN.Load().(string)
}

// SetUniqueChildARN задаёт идентификатор после регистрации в ECS.
func (w *Worker) SetUniqueChildARN(arn string) {
	w.uniqueChildARN.Store(arn)
}

// IsTaskRunning сообщает, выполняется ли сейчас task.
func (w *Worker) IsTaskRunning() bool {
	return w.running.Load()
}

// QueueLen возвращает число task'ов в очереди.
func (w *Worker) QueueLen() int {
	return w.queue.Len()
}

// Enqueue проверяет task и ставит его в очередь.
func (w *Worker) Enqueue(task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.UseProxy && w.proxyURL == "" {
		return ErrProxyUnavailable
	}
	if err := w.queue.Push(task); err != nil {
		return err
	}
	w.setQueueDepth()
	w.logger.Info("task queued",
		"task_id", task.TaskID,
		"recording_id", task.RecordingID,
		"is_dedicated", task.IsDedicated,
		"queued_tasks", w.queue.Len(),
	)
	return nil
}

// Health описывает состояние воркера.
type Health struct {
	Healthy     bool
	TaskRunning bool
	QueuedTasks int
	Message     string
}

// Health возвращает unhealthy, если task выполняется дольше UnhealthyAfter.
func (w *Worker) Health(now time.Time) Health {
	h := Health{
		Healthy:     true,
		TaskRunning: w.running.Load(),
		QueuedTasks: w.queue.Len(),
	}
	if !h.TaskRunning {
		return h
	}
	started := w.lastStart.Load()
	if started == 0 {
		return h
	}
	if now.Sub(time.Unix(0, started)) > w.unhealthyAfter {
		h.Healthy = false
		h.Message = fmt.Sprintf("Task not finished in the last %s", w.unhealthyAfter)
	}
	return h
}

// Run потребляет очередь, пока ctx не отменён, затем останавливает браузер.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("task processor started",
		"child_process_id", w.ChildID(),
		"unique_child_arn", w.UniqueChildARN(),
	)

	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := w.sessions.Close(teardownCtx); err != nil {
			w.logger.Error("stop browser on shutdown failed", "error", err)
		}
		w.logger.Info("task processor stopped")
	}()

	for {
		task, err := w.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrQueueClosed) {
				return nil
			}
			return err
		}
		w.setQueueDepth()
		w.processTask(ctx, task)
	}
}

// Close закрывает очередь: Run завершится, когда она опустеет.
func (w *Worker) Close() {
	w.queue.Close()
}

// processTask выполняет один task. Флаг running сбрасывается в любом случае.
func (w *Worker) processTask(ctx context.Context, task *domain.Task) {
	start := w.now()
	// Health читает running, затем lastStart: время старта публикуется первым.
	w.lastStart.Store(start.UnixNano())
	w.running.Store(true)
	if w.metrics != nil {
		w.metrics.TaskRunning.Set(1)
	}
	defer func() {
		w.running.Store(false)
		if w.metrics != nil {
			w.metrics.TaskRunning.Set(0)
		}
	}()

	childID := w.ChildID()
	logger := telemetry.WithChildID(telemetry.WithTaskID(w.logger, task.TaskID, task.RecordingID), childID)

	rec := domain.NewExecution(task, childID)
	rec.MarkRunning(start)
	w.journalCreate(ctx, rec, logger)

	code, err := w.runIsolated(ctx, task, childID, logger)
	finished := w.now()
	if err != nil {
		logger.Error("task run failed", "error", err)
		if code == 0 {
			code = 1
		}
	}

	rec.MarkExited(code, finished)
	w.journalUpdate(ctx, rec, logger)
	w.observe(rec)
	w.publishCompleted(ctx, rec, logger)

	logger.Info("task processed",
		"exit_code", code,
		"timed_out", rec.TimedOut,
		"duration", rec.Duration(),
	)
}

// runIsolated готовит браузер, запускает дочерний процесс и снимает
// состояние системы до и после.
func (w *Worker) runIsolated(ctx context.Context, task *domain.Task, childID int64, logger *slog.Logger) (int, error) {
	w.recordSysInfo(ctx, StageBeforeBrowserStart, task.TaskID)

	port := w.browserBasePort + int(childID)
	var proxy string
	if task.UseProxy {
		proxy = w.proxyURL
	}
	session, err := w.sessions.Acquire(ctx, task, port, proxy)
	if err != nil {
		return 1, err
	}
	w.recordSysInfo(ctx, StageAfterBrowserStart, task.TaskID)

	defer func() {
		w.recordSysInfo(ctx, StageAfterAutomation, task.TaskID)
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		w.sessions.Release(releaseCtx, task)
		cancel()
		w.recordSysInfo(ctx, StageAfterBrowserStop, task.TaskID)
	}()

	logger.Debug("running automation in process", "cdp_url", session.CDPURL())
	code, err := w.runner.Run(ctx, RunSpec{
		Task:           task,
		ChildID:        childID,
		UniqueChildARN: w.UniqueChildARN(),
		CDPPort:        port,
		CDPURL:         session.CDPURL(),
	})
	if code == domain.ExitCodeTimeout && err == nil {
		logger.Error("task killed", "error", ErrExecutionTimeout)
	}
	return code, err
}

func (w *Worker) recordSysInfo(ctx context.Context, stage, taskID string) {
	if w.sysinfo != nil {
		w.sysinfo.Record(ctx, stage, taskID)
	}
}

func (w *Worker) journalCreate(ctx context.Context, e *domain.Execution, logger *slog.Logger) {
	if w.journal == nil {
		return
	}
	if err := w.journal.Create(ctx, e); err != nil {
		logger.Warn("journal create failed", "error", err)
	}
}

func (w *Worker) journalUpdate(ctx context.Context, e *domain.Execution, logger *slog.Logger) {
	if w.journal == nil {
		return
	}
	if err := w.journal.Update(context.WithoutCancel(ctx), e); err != nil {
		logger.Warn("journal update failed", "error", err)
	}
}

func (w *Worker) observe(e *domain.Execution) {
	if w.metrics == nil {
		return
	}
	outcome := telemetry.OutcomeFailed
	switch {
	case e.TimedOut:
		outcome = telemetry.OutcomeTimeout
	case e.Status == domain.TaskStatusSuccess:
		outcome = telemetry.OutcomeSuccess
	}
	w.metrics.TasksTotal.WithLabelValues(outcome).Inc()
	w.metrics.TaskDuration.Observe(e.Duration().Seconds())
}

func (w *Worker) publishCompleted(ctx context.Context, e *domain.Execution, logger *slog.Logger) {
	if w.publisher == nil {
		return
	}
	payload := mq.TaskCompletedPayload{
		TaskID:         e.TaskID,
		RecordingID:    e.RecordingID,
		ChildProcessID: e.ChildProcessID,
		ExitCode:       *e.ExitCode,
		TimedOut:       e.TimedOut,
		DurationMs:     e.Duration().Milliseconds(),
	}
	if err := w.publisher.PublishTaskCompleted(context.WithoutCancel(ctx), payload); err != nil {
		logger.Warn("failed to publish task.completed", "error", err)
	}
}

func (w *Worker) setQueueDepth() {
	if w.metrics != nil {
		w.metrics.QueueDepth.Set(float64(w.queue.Len()))
	}
}
