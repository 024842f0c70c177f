package domain

// TaskStatus — статус выполнения task.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → SUCCESS
//	                 ↘ FAILED
//	                 ↘ CANCELLED (таймаут процесса или остановка воркера)
//
// Значения совпадают с тем, что ожидает сервер оркестрации.
type TaskStatus string

const (
	// TaskStatusQueued — task принят воркером и ждёт в очереди.
	TaskStatusQueued TaskStatus = "queued"

	// TaskStatusRunning — task выполняется в дочернем процессе.
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusSuccess — все узлы automation выполнены.
	TaskStatusSuccess TaskStatus = "success"

	// TaskStatusFailed — выполнение остановлено фатальной ошибкой.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusCancelled — task прерван извне.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSuccess, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}
