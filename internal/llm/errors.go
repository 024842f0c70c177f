package llm

import "errors"

var (
	// ErrUnknownProvider возвращается для неизвестного LLM_PROVIDER.
	ErrUnknownProvider = errors.New("unknown llm provider")

	// ErrMissingAPIKey возвращается, если провайдеру нужен ключ, а он не задан.
	ErrMissingAPIKey = errors.New("llm api key is required")

	// ErrEmptyResponse возвращается, если модель не вернула ни одного варианта.
	ErrEmptyResponse = errors.New("llm returned no choices")
)
