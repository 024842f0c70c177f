package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Replay/internal/domain"
)

// Default configuration values.
const (
	defaultMaxNodeExecutions = 1000
	defaultPollInterval      = 2 * time.Second
	defaultFallbackTimeout   = 60 * time.Second
	defaultDownloadTimeout   = 30 * time.Second
	defaultNavigateTimeout   = 30 * time.Second
)

// Interpreter выполняет узлы automation над браузером.
//
// Interpreter не хранит состояние выполнения: всё, что меняется,
// лежит в domain.Memory. Один Interpreter можно использовать
// для нескольких task последовательно.
type Interpreter struct {
	browser Browser
	model   LanguageModel
	codes   map[domain.TwoFAKind]CodeSource
	human   HumanInLoop

	maxNodeExecutions int
	pollInterval      time.Duration
	fallbackTimeout   time.Duration
	downloadTimeout   time.Duration
	navigateTimeout   time.Duration

	now    func() time.Time
	logger *slog.Logger
}

// Config — конфигурация Interpreter.
type Config struct {
	// Browser — управляемая страница (обязательно).
	Browser Browser

	// Model — языковая модель для fallback, extraction и assertion (опционально).
	Model LanguageModel

	// CodeSources — источники 2FA-кодов по виду.
	CodeSources map[domain.TwoFAKind]CodeSource

	// HumanInLoop — связь с оператором (опционально).
	HumanInLoop HumanInLoop

	// MaxNodeExecutions — предохранитель от бесконечных state_jump (default: 1000).
	MaxNodeExecutions int

	// PollInterval — период опроса статуса human-in-loop (default: 2s).
	PollInterval time.Duration

	// FallbackTimeout — таймаут LLM-fallback целиком (default: 60s).
	FallbackTimeout time.Duration

	// DownloadTimeout — ожидание начала загрузки (default: 30s).
	DownloadTimeout time.Duration

	// NavigateTimeout — таймаут открытия стартового URL (default: 30s).
	NavigateTimeout time.Duration

	// Now — источник времени (для тестов).
	Now func() time.Time

	// Logger
	Logger *slog.Logger
}

// New создаёт Interpreter.
func New(cfg Config) *Interpreter {
	it := &Interpreter{
		browser:           cfg.Browser,
		model:             cfg.Model,
		codes:             cfg.CodeSources,
		human:             cfg.HumanInLoop,
		maxNodeExecutions: cfg.MaxNodeExecutions,
		pollInterval:      cfg.PollInterval,
		fallbackTimeout:   cfg.FallbackTimeout,
		downloadTimeout:   cfg.DownloadTimeout,
		navigateTimeout:   cfg.NavigateTimeout,
		now:               cfg.Now,
		logger:            cfg.Logger,
	}
	if it.maxNodeExecutions <= 0 {
		it.maxNodeExecutions = defaultMaxNodeExecutions
	}
	if it.pollInterval <= 0 {
		it.pollInterval = defaultPollInterval
	}
	if it.fallbackTimeout <= 0 {
		it.fallbackTimeout = defaultFallbackTimeout
	}
	if it.downloadTimeout <= 0 {
		it.downloadTimeout = defaultDownloadTimeout
	}
	if it.navigateTimeout <= 0 {
		it.navigateTimeout = defaultNavigateTimeout
	}
	if it.now == nil {
		it.now = time.Now
	}
	if it.logger == nil {
		it.logger = slog.Default()
	}
	if it.codes == nil {
		it.codes = make(map[domain.TwoFAKind]CodeSource)
	}
	return it
}

// runState — контекст выполнения одного task.
type runState struct {
	task   *domain.Task
	mem    *domain.Memory
	logger *slog.Logger
}

// lookup — поиск переменных для подстановки.
func (st *runState) lookup(name string) ([]string, bool) {
	return st.mem.Lookup(name)
}

// sub подставляет переменные в строку.
func (st *runState) sub(s string) string {
	return Substitute(s, st.lookup)
}

// Run выполняет automation task'а, обновляя mem.
//
// Порядок:
//  1. Переход в RUNNING, открытие стартового URL
//  2. Цикл по узлам: пауза before_sleep_time → действие → следующий узел
//  3. state_jump меняет курсор (-1 — остановка)
//  4. Фатальная ошибка останавливает цикл, статус FAILED
//
// Отмена ctx завершает выполнение со статусом CANCELLED.
func (it *Interpreter) Run(ctx context.Context, task *domain.Task, mem *domain.Memory) error {
	st := &runState{
		task:   task,
		mem:    mem,
		logger: it.logger.With("task_id", task.TaskID),
	}

	mem.MarkRunning()
	st.logger.Info("automation started", "nodes", len(task.Automation.Nodes))

	err := it.run(ctx, st)
	switch {
	case err == nil:
		mem.MarkSucceeded()
		st.logger.Info("automation succeeded", "step_index", mem.AutomationState.StepIndex)
	case ctx.Err() != nil:
		mem.MarkCancelled(err.Error())
		st.logger.Warn("automation cancelled", "error", err)
	default:
		mem.MarkFailed(err.Error())
		st.logger.Warn("automation failed", "error", err)
	}
	return err
}

func (it *Interpreter) run(ctx context.Context, st *runState) error {
	if url := st.sub(st.task.Automation.URL); url != "" {
		navCtx, cancel := context.WithTimeout(ctx, it.navigateTimeout)
		err := it.browser.Navigate(navCtx, url)
		cancel()
		if err != nil {
			return fmt.Errorf("navigate to %s: %w", url, err)
		}
	}

	nodes := st.task.Automation.Nodes
	executions := 0

	for cursor := 0; cursor < len(nodes); {
		if executions >= it.maxNodeExecutions {
			return fmt.Errorf("%w: limit %d reached at node %d", ErrTooManyNodeExecutions, it.maxNodeExecutions, cursor)
		}
		executions++

		node := nodes[cursor]
		st.mem.AutomationState.StepIndex = cursor

		if err := sleepCtx(ctx, domain.Seconds(node.BeforeSleepTime)); err != nil {
			return err
		}

		if jump, ok := node.Action.(*domain.StateJumpAction); ok {
			next, stop, err := resolveJump(jump.NextStateIndex, len(nodes))
			if err != nil {
				return &ActionError{StepIndex: cursor, Kind: jump.Kind(), Err: err}
			}
			if stop {
				st.logger.Info("state jump: stop", "step_index", cursor)
				return nil
			}
			st.logger.Debug("state jump", "step_index", cursor, "next_state_index", next)
			cursor = next
			continue
		}

		if err := it.runNode(ctx, st, cursor, node.Action); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ae *ActionError
			if errors.As(err, &ae) {
				return err
			}
			return &ActionError{StepIndex: cursor, Kind: node.Action.Kind(), Err: err}
		}
		cursor++
	}
	return nil
}

// resolveJump проверяет индекс перехода.
func resolveJump(next, count int) (int, bool, error) {
	if next == domain.StopStateIndex {
		return 0, true, nil
	}
	if next < 0 || next >= count {
		return 0, false, fmt.Errorf("%w: next_state_index %d, automation has %d nodes", ErrInvalidJump, next, count)
	}
	return next, false, nil
}

// runNode выполняет одно действие.
func (it *Interpreter) runNode(ctx context.Context, st *runState, step int, action domain.Action) error {
	logger := st.logger.With("step_index", step, "action", action.Kind())
	logger.Debug("running node")

	node := &nodeState{runState: st, step: step, logger: logger}

	switch a := action.(type) {
	case *domain.InteractionAction:
		return it.runInteraction(ctx, node, a)
	case *domain.ExtractionAction:
		return it.runExtraction(ctx, node, a)
	case *domain.AssertionAction:
		return it.runAssertion(ctx, node, a)
	case *domain.Fetch2FAAction:
		return it.runFetch2FA(ctx, node, a)
	case *domain.SleepAction:
		return sleepCtx(ctx, domain.Seconds(a.SleepTime))
	case *domain.HumanInLoopAction:
		return it.runHumanInLoop(ctx, node, a)
	default:
		return fmt.Errorf("%w: action %T", ErrNotSupported, action)
	}
}

// nodeState — контекст выполнения одного узла.
type nodeState struct {
	*runState
	step   int
	logger *slog.Logger
}
