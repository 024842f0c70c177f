package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaiso/Replay/internal/domain"
)

// indexSchema — ответ модели при выборе элемента.
var indexSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"index": map[string]any{"type": []string{"integer", "null"}},
	},
	"required":             []string{"index"},
	"additionalProperties": false,
}

const indexSystemPrompt = `You control a web browser. You receive a numbered list of interactive elements of the current page and an instruction.
Return the index of the single element the instruction refers to as {"index": N}.
If no element matches, return {"index": null}.`

// fallback выполняет одну попытку через LLM: снимок страницы, выбор элемента
// по инструкции, примитив по номеру. Ошибки логируются и не возвращаются.
func (it *Interpreter) fallback(ctx context.Context, node *nodeState, instructions string, perform func(ctx context.Context, index int) error) {
	node.mem.AutomationState.TryIndex++

	fctx, cancel := context.WithTimeout(ctx, it.fallbackTimeout)
	defer cancel()

	index, err := it.resolveIndex(fctx, node, instructions)
	if err == nil {
		err = perform(fctx, index)
	}
	if err != nil {
		node.logger.Warn("prompt fallback failed",
			"try_index", node.mem.AutomationState.TryIndex,
			"error", err,
		)
		return
	}
	node.logger.Info("prompt fallback succeeded", "index", index)
}

// resolveIndex снимает страницу и спрашивает модель номер элемента.
func (it *Interpreter) resolveIndex(ctx context.Context, node *nodeState, instructions string) (int, error) {
	if it.model == nil {
		return 0, ErrNoLanguageModel
	}

	state, err := it.browser.Snapshot(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	state = browserStateOrEmpty(state)

	prompt := buildIndexPrompt(instructions, state.Axtree)
	completion, err := it.model.Complete(ctx, CompletionRequest{
		System:     indexSystemPrompt,
		Prompt:     prompt,
		SchemaName: "element_index",
		Schema:     indexSchema,
	})
	if err != nil {
		node.mem.AddBrowserState(*state)
		return 0, fmt.Errorf("model: %w", err)
	}

	node.mem.AddTokenUsage(completion.Usage)
	state.FinalPrompt = prompt
	state.LLMResponse = completion.Content
	node.mem.AddBrowserState(*state)

	return parseIndex(completion.Content)
}

// parseIndex разбирает {"index": N | null}.
func parseIndex(content string) (int, error) {
	var resp struct {
		Index *int `json:"index"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadModelResponse, err)
	}
	if resp.Index == nil {
		return 0, ErrNoIndex
	}
	if *resp.Index < 0 {
		return 0, fmt.Errorf("%w: negative index %d", ErrBadModelResponse, *resp.Index)
	}
	return *resp.Index, nil
}

func buildIndexPrompt(instructions, axtree string) string {
	var b strings.Builder
	b.WriteString("Instruction:\n")
	b.WriteString(instructions)
	b.WriteString("\n\nInteractive elements:\n")
	b.WriteString(axtree)
	return b.String()
}

// stripFences убирает markdown-обёртку ```json ... ```, которую
// добавляют модели без строгого JSON-режима.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// browserStateOrEmpty возвращает пустое состояние вместо nil.
func browserStateOrEmpty(s *domain.BrowserState) *domain.BrowserState {
	if s == nil {
		return &domain.BrowserState{}
	}
	return s
}
