// Package browser реализует engine.Browser поверх playwright-go.
//
// Воркер запускает Chromium с --remote-debugging-port (Launcher), а дочерний
// процесс подключается к нему по CDP (Connect). Так сессия переживает
// отдельные task'и, если task выделенный.
//
// Команды действий — селекторы Playwright (css, text=, xpath=, role= и т.д.),
// берётся первый подходящий элемент.
//
// Snapshot помечает видимые интерактивные элементы атрибутом
// data-replay-index и строит по HTML страницы текстовый список элементов
// (goquery). LLM-fallback выбирает номер из этого списка, PerformIndexed
// находит элемент по атрибуту.
package browser
