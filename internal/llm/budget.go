package llm

import (
	"context"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"github.com/shaiso/Replay/internal/engine"
)

const encodingName = "cl100k_base"

// truncationMarker дописывается к обрезанному промпту.
const truncationMarker = "\n...[truncated]"

// Tokenizer кодирует текст в токены и обратно.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Budgeted обрезает промпт до бюджета токенов перед вызовом модели.
// Снимок страницы стоит в конце промпта, поэтому режется хвост.
type Budgeted struct {
	next      engine.LanguageModel
	budget    int
	tokenizer Tokenizer
	logger    *slog.Logger
}

var _ engine.LanguageModel = (*Budgeted)(nil)

// NewBudgeted оборачивает модель. budget <= 0 отключает обрезку.
// Если кодировку tiktoken загрузить не удалось, модель возвращается без обёртки.
func NewBudgeted(next engine.LanguageModel, budget int, logger *slog.Logger) engine.LanguageModel {
	if logger == nil {
		logger = slog.Default()
	}
	if budget <= 0 {
		return next
	}

	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, prompt budget disabled", "error", err)
		return next
	}
	return NewBudgetedWithTokenizer(next, budget, tiktokenTokenizer{enc: enc}, logger)
}

// NewBudgetedWithTokenizer — то же с явным токенизатором.
func NewBudgetedWithTokenizer(next engine.LanguageModel, budget int, tok Tokenizer, logger *slog.Logger) *Budgeted {
	if logger == nil {
		logger = slog.Default()
	}
	return &Budgeted{next: next, budget: budget, tokenizer: tok, logger: logger}
}

// Complete обрезает промпт и передаёт запрос дальше.
func (b *Budgeted) Complete(ctx context.Context, req engine.CompletionRequest) (*engine.Completion, error) {
	prompt, trimmed := TrimToBudget(b.tokenizer, req.Prompt, b.budget)
	if trimmed {
		b.logger.Debug("prompt trimmed to token budget", "budget", b.budget)
	}
	req.Prompt = prompt
	return b.next.Complete(ctx, req)
}

// TrimToBudget оставляет первые budget токенов текста.
func TrimToBudget(tok Tokenizer, text string, budget int) (string, bool) {
	if budget <= 0 {
		return text, false
	}
	tokens := tok.Encode(text)
	if len(tokens) <= budget {
		return text, false
	}
	return tok.Decode(tokens[:budget]) + truncationMarker, true
}
