package engine

import (
	"context"
	"time"

	"github.com/shaiso/Replay/internal/domain"
)

// Browser — абстракция управляемой страницы.
//
// Таймаут каждой операции задаётся дедлайном ctx: адаптер переводит его
// в таймаут драйвера. Команды (command) — строки локаторов, их синтаксис
// разбирает адаптер.
type Browser interface {
	// HasPage сообщает, есть ли открытая страница.
	HasPage() bool

	// Navigate открывает URL.
	Navigate(ctx context.Context, url string) error

	// Click кликает по элементу, найденному командой.
	Click(ctx context.Context, command string, double bool) error

	// Input вводит текст в элемент.
	Input(ctx context.Context, command, text string, mode domain.InputMode) error

	// SelectOption выбирает значения в select.
	SelectOption(ctx context.Context, command string, values []string) error

	// Check отмечает (или снимает отметку) checkbox.
	Check(ctx context.Context, command string, uncheck bool) error

	// GoBack переходит назад по истории.
	GoBack(ctx context.Context) error

	// Snapshot снимает состояние страницы: URL, заголовок, пронумерованный
	// список интерактивных элементов (Axtree) и, по запросу, скриншот.
	Snapshot(ctx context.Context, withScreenshot bool) (*domain.BrowserState, error)

	// PerformIndexed выполняет примитив над элементом по номеру из последнего Snapshot.
	PerformIndexed(ctx context.Context, op IndexedOp) error

	// Screenshot возвращает PNG страницы.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// CaptureDownload выполняет trigger и ждёт начатую им загрузку.
	CaptureDownload(ctx context.Context, trigger func(ctx context.Context) error) (Download, error)
}

// Download — загрузка, пойманная CaptureDownload.
type Download interface {
	SuggestedFilename() string
	SaveAs(path string) error
}

// IndexedOpKind — примитив над элементом по номеру.
type IndexedOpKind string

const (
	OpClick       IndexedOpKind = "click"
	OpDoubleClick IndexedOpKind = "double_click"
	OpInput       IndexedOpKind = "input"
	OpSelect      IndexedOpKind = "select"
)

// IndexedOp — операция над элементом по номеру.
type IndexedOp struct {
	Kind   IndexedOpKind
	Index  int
	Text   string
	Mode   domain.InputMode
	Values []string
}

// LanguageModel — абстракция языковой модели со структурированным ответом.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest — запрос к модели.
type CompletionRequest struct {
	System     string
	Prompt     string
	Screenshot string         // base64 PNG, может быть пустым
	SchemaName string         // имя схемы ответа
	Schema     map[string]any // JSON Schema ответа
}

// Completion — ответ модели: JSON-текст и расход токенов.
type Completion struct {
	Content string
	Usage   domain.TokenUsage
}

// CodeSource — источник 2FA-кода одного вида.
type CodeSource interface {
	FetchCode(ctx context.Context, req CodeRequest) (string, error)
}

// CodeRequest — параметры запроса 2FA-кода.
type CodeRequest struct {
	Action *domain.Fetch2FAAction

	// Since — момент, когда был запущен таймер 2FA. nil, если таймер не взводился.
	Since *time.Time

	// MaxWait — сколько источник может ждать код.
	MaxWait time.Duration
}

// CodeSourceFunc — адаптер функции к CodeSource.
type CodeSourceFunc func(ctx context.Context, req CodeRequest) (string, error)

// FetchCode вызывает f.
func (f CodeSourceFunc) FetchCode(ctx context.Context, req CodeRequest) (string, error) {
	return f(ctx, req)
}

// HumanInLoop — связь с оператором: уведомление и опрос статуса.
type HumanInLoop interface {
	Notify(ctx context.Context, taskID string) error
	IsCompleted(ctx context.Context, taskID string) (bool, error)
}
