package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/engine"
	"github.com/shaiso/Replay/internal/telemetry"
)

// Имена артефактов в каталоге task.
const (
	FinalScreenshotFile = "final_screenshot.png"
	MemoryFile          = "memory.json"
)

const reportTimeout = 2 * time.Minute

// Reporter сообщает серверу оркестрации о ходе task (orchestrator.Client).
type Reporter interface {
	StartTask(ctx context.Context, apiKey string, mem *domain.Memory) error
	CompleteTask(ctx context.Context, apiKey string, mem *domain.Memory) error
	SaveOutputData(ctx context.Context, apiKey string, mem *domain.Memory) error
	SaveDownloads(ctx context.Context, apiKey string, mem *domain.Memory) error
	SaveTrajectory(ctx context.Context, apiKey string, mem *domain.Memory) error
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Browser — страница, подключённая к сессии воркера (обязательно).
	Browser engine.Browser

	// Model — языковая модель (опционально).
	Model engine.LanguageModel

	// CodeSources — источники 2FA-кодов.
	CodeSources map[domain.TwoFAKind]engine.CodeSource

	// HumanInLoop строит связь с оператором для task (опционально).
	HumanInLoop func(task *domain.Task) engine.HumanInLoop

	// Reporter — сервер оркестрации; nil при локальном запуске.
	Reporter Reporter

	// SaveDirectory — корень рабочих каталогов.
	SaveDirectory string

	// UniqueChildARN — идентификатор воркера.
	UniqueChildARN string

	Logger *slog.Logger
}

// Executor выполняет task внутри дочернего процесса: готовит Memory и лог
// task, запускает интерпретатор и отчитывается перед сервером.
type Executor struct {
	cfg    ExecutorConfig
	logger *slog.Logger
}

// NewExecutor создаёт Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{cfg: cfg, logger: logger}
}

// Execute выполняет task. Ошибка возвращается только если task не удалось
// даже начать; результат выполнения лежит в Memory.
func (e *Executor) Execute(ctx context.Context, task *domain.Task) (*domain.Memory, error) {
	mem, err := domain.NewMemory(task, e.cfg.SaveDirectory, e.cfg.UniqueChildARN)
	if err != nil {
		return nil, fmt.Errorf("prepare memory: %w", err)
	}

	logger, closer, err := telemetry.TaskLogger(e.logger, mem.Dirs.LogFile)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	logger = telemetry.WithTaskID(logger, task.TaskID, task.RecordingID)

	e.report(ctx, logger, "start task", func(ctx context.Context) error {
		return e.cfg.Reporter.StartTask(ctx, task.APIKey, mem)
	})

	var human engine.HumanInLoop
	if e.cfg.HumanInLoop != nil {
		human = e.cfg.HumanInLoop(task)
	}

	interp := engine.New(engine.Config{
		Browser:     e.cfg.Browser,
		Model:       e.cfg.Model,
		CodeSources: e.cfg.CodeSources,
		HumanInLoop: human,
		Logger:      logger,
	})

	if err := interp.Run(ctx, task, mem); err != nil {
		logger.Error("automation finished with error", "error", err)
	}

	e.captureFinalScreenshot(ctx, logger, mem)
	e.dumpMemory(logger, mem)

	e.report(ctx, logger, "complete task", func(ctx context.Context) error {
		return e.cfg.Reporter.CompleteTask(ctx, task.APIKey, mem)
	})
	e.uploadArtifacts(ctx, logger, task, mem)

	logger.Info("task finished",
		"status", mem.Status,
		"duration", mem.Duration(),
		"total_tokens", mem.TokenUsage.TotalTokens,
	)
	return mem, nil
}

// ExitCode — код завершения дочернего процесса по итогу Memory.
func ExitCode(mem *domain.Memory) int {
	if mem != nil && mem.Status == domain.TaskStatusSuccess {
		return 0
	}
	return 1
}

// report выполняет вызов сервера, если он настроен. Ошибки только логируются.
func (e *Executor) report(ctx context.Context, logger *slog.Logger, what string, call func(ctx context.Context) error) {
	if e.cfg.Reporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	if err := call(ctx); err != nil {
		logger.Error("server call failed", "call", what, "error", err)
	}
}

// uploadArtifacts параллельно отправляет выходные данные, загрузки и траекторию.
func (e *Executor) uploadArtifacts(ctx context.Context, logger *slog.Logger, task *domain.Task, mem *domain.Memory) {
	if e.cfg.Reporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	uploads := map[string]func(context.Context, string, *domain.Memory) error{
		"save output data": e.cfg.Reporter.SaveOutputData,
		"save downloads":   e.cfg.Reporter.SaveDownloads,
		"save trajectory":  e.cfg.Reporter.SaveTrajectory,
	}

	var g errgroup.Group
	for name, upload := range uploads {
		g.Go(func() error {
			if err := upload(ctx, task.APIKey, mem); err != nil {
				logger.Error("server call failed", "call", name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Executor) captureFinalScreenshot(ctx context.Context, logger *slog.Logger, mem *domain.Memory) {
	if e.cfg.Browser == nil || !e.cfg.Browser.HasPage() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	png, err := e.cfg.Browser.Screenshot(ctx, false)
	if err != nil {
		logger.Warn("final screenshot failed", "error", err)
		return
	}
	mem.SetFinalScreenshot(base64.StdEncoding.EncodeToString(png))

	path := filepath.Join(mem.Dirs.Screenshots, FinalScreenshotFile)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		logger.Warn("write final screenshot failed", "error", err)
	}
}

// dumpMemory сохраняет Memory в каталог логов, он попадает в траекторию.
func (e *Executor) dumpMemory(logger *slog.Logger, mem *domain.Memory) {
	data, err := json.MarshalIndent(mem, "", "  ")
	if err != nil {
		logger.Warn("marshal memory failed", "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(mem.Dirs.Logs, MemoryFile), data, 0o644); err != nil {
		logger.Warn("write memory failed", "error", err)
	}
}
