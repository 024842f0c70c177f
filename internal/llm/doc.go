// Package llm содержит реализации engine.LanguageModel.
//
// Провайдеры:
//   - openai: официальный SDK openai-go, ответ ограничен JSON Schema (structured outputs)
//   - anthropic, ollama: langchaingo в JSON-режиме, схема передаётся в системном промпте
//
// New выбирает провайдера по конфигурации и оборачивает его в Budgeted,
// который обрезает слишком длинный промпт по числу токенов (tiktoken).
package llm
