package orchestrator

import (
	"errors"
	"fmt"
)

// Ошибки клиента сервера оркестрации.
var (
	// ErrNoTask — ответ inference не содержит task.
	ErrNoTask = errors.New("inference response has no task")

	// ErrHostPortNotFound — в метаданных ECS нет привязки порта воркера.
	ErrHostPortNotFound = errors.New("host port not found in task metadata")

	// ErrBadMetadata — метаданные ECS не содержат ожидаемых полей.
	ErrBadMetadata = errors.New("malformed task metadata")
)

// HTTPError — сервер ответил кодом вне 2xx.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}
