// Package engine содержит интерпретатор automation.
//
// Включает:
//   - interpreter.go — цикл по узлам, state_jump, предохранитель от зацикливания
//   - interaction.go — click, input, select, check, go_back и загрузки
//   - retry.go       — Retrier: командная фаза с таймаутом на попытку
//   - fallback.go    — одноразовый выбор элемента через LLM
//   - extraction.go  — LLM extraction, скриншоты, состояние страницы
//   - assertion.go   — LLM-проверки
//   - twofa.go       — получение 2FA-кодов
//   - template.go    — подстановка {name} и {name[i]}
//
// Engine не знает о Playwright, OpenAI и сервере оркестрации: всё внешнее
// скрыто за интерфейсами из ports.go. Состояние выполнения живёт в
// domain.Memory.
package engine
