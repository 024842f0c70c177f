package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultSaveDirectory — корень рабочих каталогов task'ов.
const DefaultSaveDirectory = "/tmp/replay"

// LogFileName — имя файла лога внутри каталога logs.
const LogFileName = "replay.log"

// Directories — раскладка рабочего каталога одного task.
//
//	<save_dir>/<task_id>/
//	├── logs/replay.log
//	├── downloads/
//	└── screenshots/
type Directories struct {
	Task        string `json:"task_directory"`
	Logs        string `json:"logs_directory"`
	Downloads   string `json:"downloads_directory"`
	Screenshots string `json:"screenshots_directory"`
	LogFile     string `json:"log_file_path"`
}

// NewDirectories вычисляет пути без обращения к файловой системе.
func NewDirectories(saveDir, taskID string) Directories {
	if saveDir == "" {
		saveDir = DefaultSaveDirectory
	}
	task := filepath.Join(saveDir, taskID)
	logs := filepath.Join(task, "logs")
	return Directories{
		Task:        task,
		Logs:        logs,
		Downloads:   filepath.Join(task, "downloads"),
		Screenshots: filepath.Join(task, "screenshots"),
		LogFile:     filepath.Join(logs, LogFileName),
	}
}

// Create создаёт каталоги.
func (d Directories) Create() error {
	for _, dir := range []string{d.Logs, d.Downloads, d.Screenshots} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// AutomationState — курсор выполнения.
type AutomationState struct {
	// StepIndex — индекс текущего узла, -1 до старта.
	StepIndex int `json:"step_index"`

	// TryIndex — счётчик обращений к LLM-fallback, -1 до первого.
	TryIndex int `json:"try_index"`

	// Start2FATime — момент, с которого ожидается 2FA-код.
	Start2FATime *time.Time `json:"start_2fa_time,omitempty"`
}

// BrowserState — снимок страницы, сделанный для LLM.
type BrowserState struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"`
	HTML        string `json:"html,omitempty"`
	Axtree      string `json:"axtree,omitempty"`
	FinalPrompt string `json:"final_prompt,omitempty"`
	LLMResponse any    `json:"llm_response,omitempty"`
}

// ScreenshotData — скриншот в выходных данных.
type ScreenshotData struct {
	Filename string `json:"filename"`
	Base64   string `json:"base64"`
}

// OutputData — одна запись выходных данных task.
type OutputData struct {
	UniqueIdentifier string          `json:"unique_identifier,omitempty"`
	JSONData         map[string]any  `json:"json_data,omitempty"`
	Screenshot       *ScreenshotData `json:"screenshot,omitempty"`
	Text             string          `json:"text,omitempty"`
}

// Variables — переменные task.
type Variables struct {
	InputVariables     map[string][]string `json:"input_variables"`
	GeneratedVariables map[string][]string `json:"generated_variables"`
	OutputData         []OutputData        `json:"output_data"`
	UniqueParameters   []string            `json:"unique_parameters,omitempty"`
}

// Memory — изменяемое состояние одного выполнения task.
//
// Memory принадлежит дочернему процессу и меняется только циклом
// интерпретатора. После перехода в финальный статус мутаторы игнорируются.
type Memory struct {
	TaskID         string `json:"task_id"`
	RecordingID    string `json:"recording_id"`
	UniqueChildARN string `json:"unique_child_arn,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error,omitempty"`

	Dirs Directories `json:"directories"`

	Variables       Variables       `json:"variables"`
	AutomationState AutomationState `json:"automation_state"`
	BrowserStates   []BrowserState  `json:"browser_states,omitempty"`
	TokenUsage      TokenUsage      `json:"token_usage"`
	Downloads       []string        `json:"downloads,omitempty"`
	FinalScreenshot string          `json:"final_screenshot,omitempty"`
}

// NewMemory создаёт Memory для task и рабочие каталоги под saveDir.
func NewMemory(task *Task, saveDir, uniqueChildARN string) (*Memory, error) {
	dirs := NewDirectories(saveDir, task.TaskID)
	if err := dirs.Create(); err != nil {
		return nil, err
	}

	inputs := make(map[string][]string, len(task.InputParameters))
	for k, v := range task.InputParameters {
		inputs[k] = append([]string(nil), v...)
	}

	return &Memory{
		TaskID:         task.TaskID,
		RecordingID:    task.RecordingID,
		UniqueChildARN: uniqueChildARN,
		CreatedAt:      time.Now().UTC(),
		Status:         TaskStatusQueued,
		Dirs:           dirs,
		Variables: Variables{
			InputVariables:     inputs,
			GeneratedVariables: make(map[string][]string),
			UniqueParameters:   task.UniqueParameters(),
		},
		AutomationState: AutomationState{StepIndex: -1, TryIndex: -1},
	}, nil
}

// IsFinished возвращает true, если выполнение завершено.
func (m *Memory) IsFinished() bool {
	return m.Status.IsTerminal()
}

// MarkRunning переводит выполнение в RUNNING.
func (m *Memory) MarkRunning() {
	if m.IsFinished() {
		return
	}
	now := time.Now().UTC()
	m.Status = TaskStatusRunning
	m.StartedAt = &now
}

// MarkSucceeded завершает выполнение успешно.
func (m *Memory) MarkSucceeded() {
	m.finish(TaskStatusSuccess, "")
}

// MarkFailed завершает выполнение с ошибкой.
func (m *Memory) MarkFailed(err string) {
	m.finish(TaskStatusFailed, err)
}

// MarkCancelled завершает выполнение как отменённое.
func (m *Memory) MarkCancelled(reason string) {
	m.finish(TaskStatusCancelled, reason)
}

func (m *Memory) finish(status TaskStatus, err string) {
	if m.IsFinished() {
		return
	}
	now := time.Now().UTC()
	m.Status = status
	m.Error = err
	m.CompletedAt = &now
}

// Duration возвращает продолжительность выполнения.
func (m *Memory) Duration() time.Duration {
	if m.StartedAt == nil || m.CompletedAt == nil {
		return 0
	}
	return m.CompletedAt.Sub(*m.StartedAt)
}

// AddBrowserState добавляет снимок страницы в историю.
func (m *Memory) AddBrowserState(s BrowserState) {
	if m.IsFinished() {
		return
	}
	m.BrowserStates = append(m.BrowserStates, s)
}

// LastBrowserState возвращает последний снимок или nil.
func (m *Memory) LastBrowserState() *BrowserState {
	if len(m.BrowserStates) == 0 {
		return nil
	}
	return &m.BrowserStates[len(m.BrowserStates)-1]
}

// AddOutput добавляет запись выходных данных.
func (m *Memory) AddOutput(o OutputData) {
	if m.IsFinished() {
		return
	}
	m.Variables.OutputData = append(m.Variables.OutputData, o)
}

// AddDownload регистрирует скачанный файл.
func (m *Memory) AddDownload(path string) {
	if m.IsFinished() {
		return
	}
	m.Downloads = append(m.Downloads, path)
}

// AddTokenUsage суммирует расход токенов.
func (m *Memory) AddTokenUsage(u TokenUsage) {
	if m.IsFinished() {
		return
	}
	m.TokenUsage = m.TokenUsage.Add(u)
}

// SetGenerated сохраняет значения сгенерированной переменной.
func (m *Memory) SetGenerated(name string, values ...string) {
	if m.IsFinished() {
		return
	}
	m.Variables.GeneratedVariables[name] = values
}

// Lookup ищет переменную: сначала входные, затем сгенерированные.
func (m *Memory) Lookup(name string) ([]string, bool) {
	if v, ok := m.Variables.InputVariables[name]; ok {
		return v, true
	}
	v, ok := m.Variables.GeneratedVariables[name]
	return v, ok
}

// SetFinalScreenshot сохраняет итоговый скриншот (base64). Единственный
// мутатор, который работает и после завершения: снимок делается, когда
// статус уже выставлен.
func (m *Memory) SetFinalScreenshot(encoded string) {
	m.FinalScreenshot = encoded
}

// Arm2FATimer запоминает момент начала ожидания 2FA-кода.
func (m *Memory) Arm2FATimer(at time.Time) {
	m.AutomationState.Start2FATime = &at
}

// Clear2FATimer сбрасывает таймер 2FA.
func (m *Memory) Clear2FATimer() {
	m.AutomationState.Start2FATime = nil
}
