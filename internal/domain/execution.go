package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExitCodeTimeout — код завершения дочернего процесса, убитого по таймауту.
const ExitCodeTimeout = -1

// Execution — запись журнала о запуске task в дочернем процессе.
// Ведётся родительским процессом, который знает только код завершения.
type Execution struct {
	ID             uuid.UUID  `json:"id"`
	TaskID         string     `json:"task_id"`
	RecordingID    string     `json:"recording_id"`
	ChildProcessID int64      `json:"child_process_id"`
	Status         TaskStatus `json:"status"`
	ExitCode       *int       `json:"exit_code,omitempty"`
	TimedOut       bool       `json:"timed_out"`
	QueuedAt       time.Time  `json:"queued_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// NewExecution создаёт запись для task, поставленного в очередь.
func NewExecution(task *Task, childID int64) *Execution {
	queuedAt := time.Now().UTC()
	if !task.AllocatedAt.IsZero() {
		queuedAt = task.AllocatedAt
	}
	return &Execution{
		ID:             uuid.New(),
		TaskID:         task.TaskID,
		RecordingID:    task.RecordingID,
		ChildProcessID: childID,
		Status:         TaskStatusQueued,
		QueuedAt:       queuedAt,
	}
}

// MarkRunning отмечает запуск дочернего процесса.
func (e *Execution) MarkRunning(at time.Time) {
	e.Status = TaskStatusRunning
	e.StartedAt = &at
}

// MarkExited фиксирует код завершения. 0 — успех, остальное — ошибка.
func (e *Execution) MarkExited(code int, at time.Time) {
	e.ExitCode = &code
	e.TimedOut = code == ExitCodeTimeout
	e.FinishedAt = &at
	if code == 0 {
		e.Status = TaskStatusSuccess
	} else {
		e.Status = TaskStatusFailed
	}
}

// Duration возвращает время выполнения.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}
