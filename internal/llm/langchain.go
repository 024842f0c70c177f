package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/shaiso/Replay/internal/config"
	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/engine"
)

// LangChain — модель через langchaingo. Схема ответа не навязывается
// провайдером, поэтому она добавляется в системный промпт, а вызов идёт в JSON-режиме.
type LangChain struct {
	llm llms.Model
}

var _ engine.LanguageModel = (*LangChain)(nil)

// NewLangChain создаёт модель anthropic или ollama.
func NewLangChain(cfg config.LLM) (*LangChain, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: anthropic", ErrMissingAPIKey)
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithFormat("json"),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}

	return NewLangChainModel(model), nil
}

// NewLangChainModel оборачивает готовую llms.Model.
func NewLangChainModel(model llms.Model) *LangChain {
	return &LangChain{llm: model}
}

// Complete выполняет запрос.
func (l *LangChain) Complete(ctx context.Context, req engine.CompletionRequest) (*engine.Completion, error) {
	system, err := systemWithSchema(req.System, req.Schema)
	if err != nil {
		return nil, err
	}

	parts := []llms.ContentPart{llms.TextContent{Text: req.Prompt}}
	if req.Screenshot != "" {
		png, err := base64.StdEncoding.DecodeString(req.Screenshot)
		if err != nil {
			return nil, fmt.Errorf("decode screenshot: %w", err)
		}
		parts = append(parts, llms.BinaryPart("image/png", png))
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	var opts []llms.CallOption
	if req.Schema != nil {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := l.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	return &engine.Completion{
		Content: choice.Content,
		Usage:   usageFromInfo(choice.GenerationInfo),
	}, nil
}

func systemWithSchema(system string, schema map[string]any) (string, error) {
	if schema == nil {
		return system, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nRespond with a single JSON object that conforms to this JSON Schema:\n")
	b.Write(raw)
	return b.String(), nil
}

// usageFromInfo читает счётчики токенов. Имена ключей зависят от провайдера.
func usageFromInfo(info map[string]any) domain.TokenUsage {
	u := domain.TokenUsage{
		InputTokens:    firstInt(info, "PromptTokens", "InputTokens"),
		OutputTokens:   firstInt(info, "CompletionTokens", "OutputTokens"),
		ThinkingTokens: firstInt(info, "ReasoningTokens", "ThinkingTokens"),
		TotalTokens:    firstInt(info, "TotalTokens"),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens + u.ThinkingTokens
	}
	return u
}

func firstInt(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
