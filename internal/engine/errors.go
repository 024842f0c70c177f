package engine

import (
	"errors"
	"fmt"

	"github.com/shaiso/Replay/internal/domain"
)

// Фатальные ошибки выполнения automation.
var (
	// ErrInvalidJump — state_jump указывает за пределы automation.
	ErrInvalidJump = errors.New("invalid state jump")

	// ErrTooManyNodeExecutions — сработал предохранитель от бесконечных переходов.
	ErrTooManyNodeExecutions = errors.New("too many node executions")

	// ErrAssertionFailed — LLM-проверка вернула ложный вердикт.
	ErrAssertionFailed = errors.New("assertion failed")

	// ErrNo2FACode — источник 2FA не вернул код.
	ErrNo2FACode = errors.New("no 2FA code found")

	// ErrNotSupported — вид действия или источника не поддерживается.
	ErrNotSupported = errors.New("not supported")

	// ErrHumanInLoopTimeout — оператор не завершил ручной шаг за отведённое время.
	ErrHumanInLoopTimeout = errors.New("human in loop timed out")

	// ErrNoLanguageModel — действию нужна LLM, но она не настроена.
	ErrNoLanguageModel = errors.New("language model not configured")

	// ErrNoPage — в браузере нет открытой страницы.
	ErrNoPage = errors.New("no page open")
)

// Ошибки разрешения элемента через LLM.
var (
	// ErrNoIndex — модель не нашла подходящий элемент.
	ErrNoIndex = errors.New("model returned no element index")

	// ErrBadModelResponse — ответ модели не соответствует ожидаемой схеме.
	ErrBadModelResponse = errors.New("malformed model response")
)

// ActionError — фатальная ошибка узла с контекстом.
type ActionError struct {
	StepIndex int               // индекс узла
	Kind      domain.ActionKind // семейство действия
	Err       error             // исходная ошибка
}

// Error реализует интерфейс error.
func (e *ActionError) Error() string {
	return fmt.Sprintf("node %d (%s): %v", e.StepIndex, e.Kind, e.Err)
}

// Unwrap возвращает исходную ошибку.
func (e *ActionError) Unwrap() error {
	return e.Err
}

// AssertionError — ложный вердикт проверки.
type AssertionError struct {
	StepIndex int    // индекс узла
	Reason    string // объяснение модели
}

// Error реализует интерфейс error.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed on node %d: %s", e.StepIndex, e.Reason)
}

// Unwrap позволяет сравнивать с ErrAssertionFailed.
func (e *AssertionError) Unwrap() error {
	return ErrAssertionFailed
}
