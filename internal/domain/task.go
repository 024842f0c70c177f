package domain

import (
	"fmt"
	"strings"
	"time"
)

// Task — задание на выполнение automation, выданное сервером оркестрации.
//
// Task приходит в /allocate_task (или из очереди RabbitMQ) и передаётся
// дочернему процессу через stdin. Внутри движка task только читается.
type Task struct {
	// TaskID — идентификатор task на сервере.
	TaskID string `json:"task_id"`

	// RecordingID — идентификатор записи, из которой построена automation.
	RecordingID string `json:"recording_id"`

	// EndpointName — имя endpoint'а, через который task был создан (если есть).
	EndpointName string `json:"endpoint_name,omitempty"`

	// Automation — сценарий для выполнения.
	Automation Automation `json:"automation"`

	// InputParameters — значения входных параметров.
	// Каждый параметр — список значений, обращение {name[i]}.
	InputParameters map[string][]string `json:"input_parameters"`

	// UniqueParameterNames — параметры, идентифицирующие task для дедупликации.
	UniqueParameterNames []string `json:"unique_parameter_names,omitempty"`

	// APIKey — ключ для обратных вызовов сервера оркестрации.
	APIKey string `json:"api_key"`

	// IsDedicated — сессия браузера переживает task и используется повторно.
	IsDedicated bool `json:"is_dedicated"`

	// UseProxy — запускать браузер через прокси PROXY_URL.
	UseProxy bool `json:"use_proxy"`

	// AllocatedAt — момент назначения task воркеру.
	AllocatedAt time.Time `json:"allocated_at"`

	// CreatedAt — момент создания task на сервере.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Validate проверяет task перед постановкой в очередь.
func (t *Task) Validate() error {
	if t.TaskID == "" {
		return fmt.Errorf("%w: task_id is required", ErrInvalidTask)
	}
	// task_id становится именем каталога под SAVE_DIRECTORY.
	if strings.ContainsAny(t.TaskID, "/\\\x00") || strings.Contains(t.TaskID, "..") {
		return fmt.Errorf("%w: task_id %q is not a valid directory name", ErrInvalidTask, t.TaskID)
	}
	for _, name := range t.UniqueParameterNames {
		if _, ok := t.InputParameters[name]; !ok {
			return fmt.Errorf("%w: unique parameter %q not found in input_parameters", ErrInvalidTask, name)
		}
	}
	if err := t.Automation.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	return nil
}

// UniqueParameters возвращает значения уникальных параметров в порядке объявления.
func (t *Task) UniqueParameters() []string {
	var out []string
	for _, name := range t.UniqueParameterNames {
		out = append(out, t.InputParameters[name]...)
	}
	return out
}
