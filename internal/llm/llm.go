package llm

import (
	"fmt"
	"log/slog"

	"github.com/shaiso/Replay/internal/config"
	"github.com/shaiso/Replay/internal/engine"
)

// Провайдеры.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// New создаёт модель по конфигурации.
func New(cfg config.LLM, logger *slog.Logger) (engine.LanguageModel, error) {
	var (
		model engine.LanguageModel
		err   error
	)

	switch cfg.Provider {
	case ProviderOpenAI:
		model, err = NewOpenAI(cfg.OpenAIAPIKey, cfg.Model)
	case ProviderAnthropic, ProviderOllama:
		model, err = NewLangChain(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewBudgeted(model, cfg.SnapshotTokenBudget, logger), nil
}
