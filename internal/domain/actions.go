package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Значения по умолчанию для interaction-действий.
const (
	DefaultMaxTries                = 10
	DefaultMaxTimeoutSecondsPerTry = 1.0
	DefaultTOTPDigits              = 6
	DefaultTwoFAMaxWaitSeconds     = 300.0
)

// ActionKind — семейство действия узла.
type ActionKind string

const (
	ActionKindInteraction ActionKind = "interaction_action"
	ActionKindExtraction  ActionKind = "extraction_action"
	ActionKindAssertion   ActionKind = "assertion_action"
	ActionKindFetch2FA    ActionKind = "fetch_2fa_action"
	ActionKindSleep       ActionKind = "sleep_action"
	ActionKindHumanInLoop ActionKind = "human_in_loop_action"
	ActionKindStateJump   ActionKind = "state_jump_action"
)

// Action — закрытое множество семейств действий.
// Реализации есть только в этом пакете.
type Action interface {
	Kind() ActionKind
	Validate() error
	isAction()
}

// --- Interaction ---

// InputMode — способ ввода текста.
type InputMode string

const (
	// InputModeFill — заменить значение поля целиком.
	InputModeFill InputMode = "fill"

	// InputModeType — посимвольный ввод с клавиатуры.
	InputModeType InputMode = "type"
)

// InteractionAction — действие над элементом страницы.
//
// Выполняется в две фазы: детерминированная команда (локатор) с retry,
// затем, если команда не сработала, единичная попытка через LLM по prompt_instructions.
type InteractionAction struct {
	MaxTries                int     `json:"max_tries"`
	MaxTimeoutSecondsPerTry float64 `json:"max_timeout_seconds_per_try"`

	// Start2FATimer — запомнить момент выполнения для последующего fetch_2fa_action.
	Start2FATimer bool `json:"start_2fa_timer,omitempty"`

	ClickElement *ClickElementAction `json:"click_element,omitempty"`
	InputText    *InputTextAction    `json:"input_text,omitempty"`
	SelectOption *SelectOptionAction `json:"select_option,omitempty"`
	Check        *CheckAction        `json:"check,omitempty"`
	GoBack       *GoBackAction       `json:"go_back,omitempty"`
}

// ClickElementAction — клик (одинарный или двойной).
type ClickElementAction struct {
	Command               string `json:"command,omitempty"`
	PromptInstructions    string `json:"prompt_instructions,omitempty"`
	SkipPrompt            bool   `json:"skip_prompt,omitempty"`
	AssertLocatorPresence bool   `json:"assert_locator_presence,omitempty"`
	DoubleClick           bool   `json:"double_click,omitempty"`
	ExpectDownload        bool   `json:"expect_download,omitempty"`
	DownloadFilename      string `json:"download_filename,omitempty"`
}

// InputTextAction — ввод текста в поле.
type InputTextAction struct {
	Command               string    `json:"command,omitempty"`
	InputText             string    `json:"input_text"`
	PromptInstructions    string    `json:"prompt_instructions,omitempty"`
	SkipPrompt            bool      `json:"skip_prompt,omitempty"`
	AssertLocatorPresence bool      `json:"assert_locator_presence,omitempty"`
	FillOrType            InputMode `json:"fill_or_type,omitempty"`
}

// SelectOptionAction — выбор значений в select.
type SelectOptionAction struct {
	Command               string   `json:"command,omitempty"`
	SelectValues          []string `json:"select_values"`
	PromptInstructions    string   `json:"prompt_instructions,omitempty"`
	SkipPrompt            bool     `json:"skip_prompt,omitempty"`
	AssertLocatorPresence bool     `json:"assert_locator_presence,omitempty"`
	ExpectDownload        bool     `json:"expect_download,omitempty"`
	DownloadFilename      string   `json:"download_filename,omitempty"`
}

// CheckAction — отметить или снять checkbox. Только командная фаза.
type CheckAction struct {
	Command               string `json:"command"`
	AssertLocatorPresence bool   `json:"assert_locator_presence,omitempty"`
	Uncheck               bool   `json:"uncheck,omitempty"`
}

// GoBackAction — навигация назад по истории.
type GoBackAction struct{}

func (*InteractionAction) isAction()        {}
func (*InteractionAction) Kind() ActionKind { return ActionKindInteraction }

// UnmarshalJSON декодирует действие с подстановкой значений по умолчанию и валидацией.
func (a *InteractionAction) UnmarshalJSON(data []byte) error {
	type alias InteractionAction
	v := alias{
		MaxTries:                DefaultMaxTries,
		MaxTimeoutSecondsPerTry: DefaultMaxTimeoutSecondsPerTry,
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = InteractionAction(v)
	if a.InputText != nil && a.InputText.FillOrType == "" {
		a.InputText.FillOrType = InputModeFill
	}
	return a.Validate()
}

// Validate проверяет инварианты действия.
func (a *InteractionAction) Validate() error {
	err := exactlyOne("interaction_action",
		[]string{"click_element", "input_text", "select_option", "check", "go_back"},
		[]bool{a.ClickElement != nil, a.InputText != nil, a.SelectOption != nil, a.Check != nil, a.GoBack != nil},
	)
	if err != nil {
		return err
	}
	if a.MaxTries < 1 {
		return fmt.Errorf("%w: max_tries must be >= 1, got %d", ErrInvalidAction, a.MaxTries)
	}
	if a.MaxTimeoutSecondsPerTry <= 0 {
		return fmt.Errorf("%w: max_timeout_seconds_per_try must be > 0", ErrInvalidAction)
	}

	switch {
	case a.InputText != nil:
		if a.InputText.FillOrType != InputModeFill && a.InputText.FillOrType != InputModeType {
			return fmt.Errorf("%w: fill_or_type must be %q or %q, got %q",
				ErrInvalidAction, InputModeFill, InputModeType, a.InputText.FillOrType)
		}
	case a.SelectOption != nil:
		if len(a.SelectOption.SelectValues) == 0 {
			return fmt.Errorf("%w: select_option requires at least one select value", ErrInvalidAction)
		}
	case a.Check != nil:
		if a.Check.Command == "" {
			return fmt.Errorf("%w: check requires a command", ErrInvalidAction)
		}
	}
	return nil
}

// Variant возвращает имя выбранного варианта (для логов).
func (a *InteractionAction) Variant() string {
	switch {
	case a.ClickElement != nil:
		return "click_element"
	case a.InputText != nil:
		return "input_text"
	case a.SelectOption != nil:
		return "select_option"
	case a.Check != nil:
		return "check"
	case a.GoBack != nil:
		return "go_back"
	default:
		return ""
	}
}

// PerTryTimeout возвращает таймаут одной попытки.
func (a *InteractionAction) PerTryTimeout() time.Duration {
	return Seconds(a.MaxTimeoutSecondsPerTry)
}

// --- Extraction ---

// ExtractionSource — что отправляется модели при LLM extraction.
type ExtractionSource string

const (
	SourceAxtree     ExtractionSource = "axtree"
	SourceScreenshot ExtractionSource = "screenshot"
)

// ExtractionAction — извлечение данных со страницы.
type ExtractionAction struct {
	UniqueIdentifier string `json:"unique_identifier,omitempty"`

	LLM          *LLMExtraction          `json:"llm,omitempty"`
	Screenshot   *ScreenshotExtraction   `json:"screenshot,omitempty"`
	State        *StateExtraction        `json:"state,omitempty"`
	NetworkCall  *NetworkCallExtraction  `json:"network_call,omitempty"`
	PythonScript *PythonScriptExtraction `json:"python_script,omitempty"`
	PDF          *PDFExtraction          `json:"pdf,omitempty"`
}

// LLMExtraction — извлечение через языковую модель.
type LLMExtraction struct {
	Source                 []ExtractionSource `json:"source,omitempty"`
	ExtractionFormat       ExtractionFormat   `json:"extraction_format,omitempty"`
	ExtractionInstructions string             `json:"extraction_instructions"`
	OutputVariableNames    []string           `json:"output_variable_names,omitempty"`
}

// ScreenshotExtraction — снимок страницы в файл.
type ScreenshotExtraction struct {
	Filename string `json:"filename"`
	FullPage bool   `json:"full_page"`
}

// StateExtraction — URL и заголовок текущей страницы.
type StateExtraction struct{}

// NetworkCallExtraction — извлечение из сетевого трафика. Не поддерживается.
type NetworkCallExtraction struct {
	URLPattern       string `json:"url_pattern,omitempty"`
	ExtractFrom      string `json:"extract_from,omitempty"`
	DownloadFrom     string `json:"download_from,omitempty"`
	DownloadFilename string `json:"download_filename,omitempty"`
}

// PythonScriptExtraction — пользовательский скрипт. Не поддерживается.
type PythonScriptExtraction struct {
	Script string `json:"script"`
}

// PDFExtraction — извлечение из скачанного PDF. Не поддерживается.
type PDFExtraction struct {
	Filename               string           `json:"filename"`
	ExtractionFormat       ExtractionFormat `json:"extraction_format,omitempty"`
	ExtractionInstructions string           `json:"extraction_instructions"`
}

func (*ExtractionAction) isAction()        {}
func (*ExtractionAction) Kind() ActionKind { return ActionKindExtraction }

// UnmarshalJSON декодирует и валидирует extraction.
func (a *ExtractionAction) UnmarshalJSON(data []byte) error {
	type alias ExtractionAction
	var v alias
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = ExtractionAction(v)
	if a.LLM != nil && len(a.LLM.Source) == 0 {
		a.LLM.Source = []ExtractionSource{SourceAxtree}
	}
	return a.Validate()
}

// UnmarshalJSON выставляет full_page=true по умолчанию.
func (s *ScreenshotExtraction) UnmarshalJSON(data []byte) error {
	type alias ScreenshotExtraction
	v := alias{FullPage: true}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ScreenshotExtraction(v)
	return nil
}

// Validate проверяет инварианты extraction.
func (a *ExtractionAction) Validate() error {
	err := exactlyOne("extraction_action",
		[]string{"llm", "screenshot", "state", "network_call", "python_script", "pdf"},
		[]bool{a.LLM != nil, a.Screenshot != nil, a.State != nil, a.NetworkCall != nil, a.PythonScript != nil, a.PDF != nil},
	)
	if err != nil {
		return err
	}

	switch {
	case a.LLM != nil:
		return a.LLM.validate(true)
	case a.Screenshot != nil:
		if a.Screenshot.Filename == "" {
			return fmt.Errorf("%w: screenshot extraction requires a filename", ErrInvalidAction)
		}
	case a.PythonScript != nil:
		if a.PythonScript.Script == "" {
			return fmt.Errorf("%w: python_script extraction requires a script", ErrInvalidAction)
		}
	}
	return nil
}

// Variant возвращает имя выбранного варианта.
func (a *ExtractionAction) Variant() string {
	switch {
	case a.LLM != nil:
		return "llm"
	case a.Screenshot != nil:
		return "screenshot"
	case a.State != nil:
		return "state"
	case a.NetworkCall != nil:
		return "network_call"
	case a.PythonScript != nil:
		return "python_script"
	case a.PDF != nil:
		return "pdf"
	default:
		return ""
	}
}

func (e *LLMExtraction) validate(requireFormat bool) error {
	for _, src := range e.Source {
		if src != SourceAxtree && src != SourceScreenshot {
			return fmt.Errorf("%w: unknown llm source %q", ErrInvalidAction, src)
		}
	}
	if !requireFormat && len(e.ExtractionFormat) == 0 {
		return nil
	}
	if err := e.ExtractionFormat.Validate(); err != nil {
		return err
	}
	for _, name := range e.OutputVariableNames {
		if _, ok := e.ExtractionFormat[name]; !ok {
			return fmt.Errorf("%w: output variable %q not found in extraction_format", ErrInvalidAction, name)
		}
	}
	return nil
}

// UsesSource сообщает, нужен ли модели данный источник.
func (e *LLMExtraction) UsesSource(src ExtractionSource) bool {
	for _, s := range e.Source {
		if s == src {
			return true
		}
	}
	return false
}

// --- Assertion ---

// AssertionAction — проверка состояния страницы. Ложный вердикт останавливает task.
type AssertionAction struct {
	LLM          *LLMExtraction          `json:"llm,omitempty"`
	NetworkCall  *NetworkCallExtraction  `json:"network_call,omitempty"`
	PythonScript *PythonScriptExtraction `json:"python_script,omitempty"`
}

func (*AssertionAction) isAction()        {}
func (*AssertionAction) Kind() ActionKind { return ActionKindAssertion }

// UnmarshalJSON декодирует и валидирует assertion.
func (a *AssertionAction) UnmarshalJSON(data []byte) error {
	type alias AssertionAction
	var v alias
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = AssertionAction(v)
	if a.LLM != nil && len(a.LLM.Source) == 0 {
		a.LLM.Source = []ExtractionSource{SourceAxtree}
	}
	return a.Validate()
}

// Validate проверяет инварианты assertion.
func (a *AssertionAction) Validate() error {
	err := exactlyOne("assertion_action",
		[]string{"llm", "network_call", "python_script"},
		[]bool{a.LLM != nil, a.NetworkCall != nil, a.PythonScript != nil},
	)
	if err != nil {
		return err
	}
	if a.LLM != nil {
		if a.LLM.ExtractionInstructions == "" {
			return fmt.Errorf("%w: llm assertion requires extraction_instructions", ErrInvalidAction)
		}
		// Формат вердикта задаёт исполнитель, пользовательский формат не обязателен.
		return a.LLM.validate(false)
	}
	return nil
}

// --- 2FA ---

// TwoFAKind — тип источника 2FA-кода.
type TwoFAKind string

const (
	TwoFAKindEmail   TwoFAKind = "email"
	TwoFAKindTOTP    TwoFAKind = "totp"
	TwoFAKindAPICall TwoFAKind = "api_call"
)

// Fetch2FAAction — получить 2FA-код и сохранить его в сгенерированные переменные.
type Fetch2FAAction struct {
	OutputVariableName string  `json:"output_variable_name"`
	MaxWaitTime        float64 `json:"max_wait_time,omitempty"`

	Email   *Email2FASource   `json:"email,omitempty"`
	TOTP    *TOTP2FASource    `json:"totp,omitempty"`
	APICall *APICall2FASource `json:"api_call,omitempty"`
}

// Email2FASource — код приходит письмом.
type Email2FASource struct {
	Service      string `json:"service"`
	EmailAddress string `json:"email_address"`
	Subject      string `json:"subject,omitempty"`
}

// TOTP2FASource — код генерируется по секрету.
type TOTP2FASource struct {
	Secret string `json:"secret"`
	Digits int    `json:"digits,omitempty"`
}

// APICall2FASource — код выдаёт внешний сервис. Не поддерживается.
type APICall2FASource struct {
	URL string `json:"url"`
}

func (*Fetch2FAAction) isAction()        {}
func (*Fetch2FAAction) Kind() ActionKind { return ActionKindFetch2FA }

// UnmarshalJSON декодирует и валидирует fetch_2fa_action.
func (a *Fetch2FAAction) UnmarshalJSON(data []byte) error {
	type alias Fetch2FAAction
	v := alias{MaxWaitTime: DefaultTwoFAMaxWaitSeconds}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Fetch2FAAction(v)
	if a.TOTP != nil && a.TOTP.Digits == 0 {
		a.TOTP.Digits = DefaultTOTPDigits
	}
	return a.Validate()
}

// Validate проверяет инварианты fetch_2fa_action.
func (a *Fetch2FAAction) Validate() error {
	err := exactlyOne("fetch_2fa_action",
		[]string{"email", "totp", "api_call"},
		[]bool{a.Email != nil, a.TOTP != nil, a.APICall != nil},
	)
	if err != nil {
		return err
	}
	if a.OutputVariableName == "" {
		return fmt.Errorf("%w: fetch_2fa_action requires output_variable_name", ErrInvalidAction)
	}
	if a.TOTP != nil && a.TOTP.Secret == "" {
		return fmt.Errorf("%w: totp requires a secret", ErrInvalidAction)
	}
	return nil
}

// Source возвращает тип выбранного источника.
func (a *Fetch2FAAction) Source() TwoFAKind {
	switch {
	case a.Email != nil:
		return TwoFAKindEmail
	case a.TOTP != nil:
		return TwoFAKindTOTP
	case a.APICall != nil:
		return TwoFAKindAPICall
	default:
		return ""
	}
}

// --- Misc ---

// SleepAction — пауза.
type SleepAction struct {
	SleepTime float64 `json:"sleep_time"`
}

func (*SleepAction) isAction()        {}
func (*SleepAction) Kind() ActionKind { return ActionKindSleep }

// Validate проверяет, что пауза неотрицательная.
func (a *SleepAction) Validate() error {
	if a.SleepTime < 0 {
		return fmt.Errorf("%w: sleep_time must be >= 0", ErrInvalidAction)
	}
	return nil
}

// HumanInLoopAction — ожидание ручного вмешательства оператора.
type HumanInLoopAction struct {
	MaxWaitTime float64 `json:"max_wait_time"`
}

func (*HumanInLoopAction) isAction()        {}
func (*HumanInLoopAction) Kind() ActionKind { return ActionKindHumanInLoop }

// Validate проверяет, что время ожидания положительное.
func (a *HumanInLoopAction) Validate() error {
	if a.MaxWaitTime <= 0 {
		return fmt.Errorf("%w: max_wait_time must be > 0", ErrInvalidAction)
	}
	return nil
}

// StopStateIndex — специальное значение next_state_index: остановить выполнение.
const StopStateIndex = -1

// StateJumpAction — переход на другой узел automation.
// Диапазон индекса проверяется при выполнении.
type StateJumpAction struct {
	NextStateIndex int `json:"next_state_index"`
}

func (*StateJumpAction) isAction()        {}
func (*StateJumpAction) Kind() ActionKind { return ActionKindStateJump }

// Validate ничего не проверяет: число узлов известно только automation.
func (a *StateJumpAction) Validate() error { return nil }

// Seconds переводит дробные секунды из JSON в time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
