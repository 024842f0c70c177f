package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/shaiso/Replay/internal/config"
	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/engine"
)

var testSchema = map[string]any{
	"type":                 "object",
	"properties":           map[string]any{"name": map[string]any{"type": []string{"string", "null"}}},
	"required":             []string{"name"},
	"additionalProperties": false,
}

func TestOpenAI_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"name\":\"Ada\"}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	model, err := NewOpenAI("sk-test", "gpt-4o-mini",
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)

	got, err := model.Complete(context.Background(), engine.CompletionRequest{
		System:     "system",
		Prompt:     "find the name",
		Screenshot: "iVBORw0KGgo=",
		SchemaName: "extraction",
		Schema:     testSchema,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"Ada"}`, got.Content)
	assert.Equal(t, domain.TokenUsage{InputTokens: 12, OutputTokens: 5, TotalTokens: 17}, got.Usage)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "extraction", format["json_schema"].(map[string]any)["name"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(image["url"].(string), "data:image/png;base64,"))
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

// fakeModel — llms.Model с заготовленным ответом.
type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChain_Complete(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        `{"name":"Ada"}`,
		GenerationInfo: map[string]any{"InputTokens": 30, "OutputTokens": 4},
	}}}}
	model := NewLangChainModel(fake)

	got, err := model.Complete(context.Background(), engine.CompletionRequest{
		System:     "system",
		Prompt:     "find the name",
		Screenshot: "aGVsbG8=",
		Schema:     testSchema,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"Ada"}`, got.Content)
	assert.Equal(t, domain.TokenUsage{InputTokens: 30, OutputTokens: 4, TotalTokens: 34}, got.Usage)
	assert.True(t, fake.opts.JSONMode)

	require.Len(t, fake.messages, 2)
	system := fake.messages[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, system, `"additionalProperties":false`)

	human := fake.messages[1].Parts
	require.Len(t, human, 2)
	image := human[1].(llms.BinaryContent)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.Equal(t, []byte("hello"), image.Data)
}

func TestLangChain_Errors(t *testing.T) {
	model := NewLangChainModel(&fakeModel{resp: &llms.ContentResponse{}})
	_, err := model.Complete(context.Background(), engine.CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	boom := errors.New("boom")
	model = NewLangChainModel(&fakeModel{err: boom})
	_, err = model.Complete(context.Background(), engine.CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, boom)

	_, err = model.Complete(context.Background(), engine.CompletionRequest{Prompt: "p", Screenshot: "%%%"})
	assert.Error(t, err)
}

func TestNew_Providers(t *testing.T) {
	_, err := New(config.LLM{Provider: "gemini"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = New(config.LLM{Provider: ProviderAnthropic}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	model, err := New(config.LLM{Provider: ProviderOllama, Model: "llama3", OllamaHost: "http://localhost:11434"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, model)
}

// wordTokenizer считает токеном каждое слово.
type wordTokenizer struct {
	words []string
}

func (w *wordTokenizer) Encode(text string) []int {
	w.words = strings.Fields(text)
	out := make([]int, len(w.words))
	for i := range out {
		out[i] = i
	}
	return out
}

func (w *wordTokenizer) Decode(tokens []int) string {
	parts := make([]string, 0, len(tokens))
	for _, i := range tokens {
		parts = append(parts, w.words[i])
	}
	return strings.Join(parts, " ")
}

type recordingModel struct {
	prompt string
}

func (r *recordingModel) Complete(_ context.Context, req engine.CompletionRequest) (*engine.Completion, error) {
	r.prompt = req.Prompt
	return &engine.Completion{Content: "{}"}, nil
}

func TestBudgeted_TrimsPrompt(t *testing.T) {
	next := &recordingModel{}
	model := NewBudgetedWithTokenizer(next, 3, &wordTokenizer{}, nil)

	_, err := model.Complete(context.Background(), engine.CompletionRequest{Prompt: "one two three four five"})
	require.NoError(t, err)
	assert.Equal(t, "one two three"+truncationMarker, next.prompt)

	_, err = model.Complete(context.Background(), engine.CompletionRequest{Prompt: "short prompt"})
	require.NoError(t, err)
	assert.Equal(t, "short prompt", next.prompt)
}

func TestTrimToBudget_Disabled(t *testing.T) {
	text, trimmed := TrimToBudget(&wordTokenizer{}, "a b c", 0)
	assert.False(t, trimmed)
	assert.Equal(t, "a b c", text)
}

func TestNewBudgeted_ZeroBudgetReturnsModel(t *testing.T) {
	next := &recordingModel{}
	assert.Same(t, next, NewBudgeted(next, 0, nil))
}
