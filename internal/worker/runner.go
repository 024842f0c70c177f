package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/shaiso/Replay/internal/domain"
)

const defaultTaskTimeout = 600 * time.Second

// RunSpec — параметры запуска одного task в дочернем процессе.
type RunSpec struct {
	Task           *domain.Task
	ChildID        int64
	UniqueChildARN string
	CDPPort        int
	CDPURL         string
}

// CommandFactory создаёт команду дочернего процесса.
// Команда не должна быть запущена; stdin Runner заполняет сам.
type CommandFactory func(spec RunSpec) (*exec.Cmd, error)

// TaskRunner запускает task изолированно и возвращает код завершения.
type TaskRunner interface {
	Run(ctx context.Context, spec RunSpec) (int, error)
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	Command CommandFactory
	Timeout time.Duration // default: 600s
	Logger  *slog.Logger
}

// Runner запускает task в отдельном процессе и отдельной группе процессов.
// По таймауту группа убивается целиком, код завершения -1.
type Runner struct {
	command CommandFactory
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{command: cfg.Command, timeout: timeout, logger: logger}
}

// Run запускает дочерний процесс и ждёт его.
//
// Task передаётся JSON'ом на stdin. Отмена ctx тоже убивает группу.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (int, error) {
	payload, err := json.Marshal(spec.Task)
	if err != nil {
		return 0, fmt.Errorf("marshal task: %w", err)
	}

	cmd, err := r.command(spec)
	if err != nil {
		return 0, fmt.Errorf("build command: %w", err)
	}
	cmd.Stdin = bytes.NewReader(payload)
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start child process: %w", err)
	}

	logger := r.logger.With("task_id", spec.Task.TaskID, "pid", cmd.Process.Pid)
	logger.Debug("waiting for automation to finish")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		code := cmd.ProcessState.ExitCode()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return code, fmt.Errorf("wait child process: %w", err)
		}
		logger.Debug("automation finished in process", "exit_code", code)
		return code, nil

	case <-timer.C:
		logger.Warn("automation timed out in process", "timeout", r.timeout)
		r.kill(cmd, done, logger)
		return domain.ExitCodeTimeout, nil

	case <-ctx.Done():
		logger.Warn("automation cancelled, killing process group")
		r.kill(cmd, done, logger)
		return domain.ExitCodeTimeout, ctx.Err()
	}
}

func (r *Runner) kill(cmd *exec.Cmd, done <-chan error, logger *slog.Logger) {
	if err := killProcessGroup(cmd); err != nil {
		logger.Error("kill process group failed", "error", err)
	}
	<-done
	logger.Debug("automation killed in process")
}
