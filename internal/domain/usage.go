package domain

// TokenUsage — расход токенов LLM за выполнение task.
type TokenUsage struct {
	InputTokens    int64 `json:"input_tokens"`
	OutputTokens   int64 `json:"output_tokens"`
	ToolUseTokens  int64 `json:"tool_use_tokens"`
	ThinkingTokens int64 `json:"thinking_tokens"`
	TotalTokens    int64 `json:"total_tokens"`
}

// Add возвращает сумму двух счётчиков.
// Если TotalTokens не задан, он считается как сумма компонент.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	total := o.TotalTokens
	if total == 0 {
		total = o.InputTokens + o.OutputTokens + o.ToolUseTokens + o.ThinkingTokens
	}
	return TokenUsage{
		InputTokens:    u.InputTokens + o.InputTokens,
		OutputTokens:   u.OutputTokens + o.OutputTokens,
		ToolUseTokens:  u.ToolUseTokens + o.ToolUseTokens,
		ThinkingTokens: u.ThinkingTokens + o.ThinkingTokens,
		TotalTokens:    u.TotalTokens + total,
	}
}

// IsZero возвращает true, если токены не расходовались.
func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}
