package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/engine"
)

// OpenAI — модель OpenAI со structured outputs.
type OpenAI struct {
	client openai.Client
	model  string
}

var _ engine.LanguageModel = (*OpenAI)(nil)

// NewOpenAI создаёт клиента. opts позволяют задать base URL (Azure, локальные API, тесты).
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai", ErrMissingAPIKey)
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete отправляет промпт (и скриншот, если есть) и требует ответ по схеме.
func (o *OpenAI) Complete(ctx context.Context, req engine.CompletionRequest) (*engine.Completion, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.System),
		userMessage(req),
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: messages,
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName(req.SchemaName),
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return &engine.Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			InputTokens:    resp.Usage.PromptTokens,
			OutputTokens:   resp.Usage.CompletionTokens,
			ThinkingTokens: resp.Usage.CompletionTokensDetails.ReasoningTokens,
			TotalTokens:    resp.Usage.TotalTokens,
		},
	}, nil
}

func userMessage(req engine.CompletionRequest) openai.ChatCompletionMessageParamUnion {
	if req.Screenshot == "" {
		return openai.UserMessage(req.Prompt)
	}
	return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/png;base64," + req.Screenshot,
		}),
	})
}

func schemaName(name string) string {
	if name == "" {
		return "response"
	}
	return name
}
