package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaiso/Replay/internal/browser"
	"github.com/shaiso/Replay/internal/config"
	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/engine"
	"github.com/shaiso/Replay/internal/llm"
	"github.com/shaiso/Replay/internal/orchestrator"
	"github.com/shaiso/Replay/internal/telemetry"
	"github.com/shaiso/Replay/internal/twofa"
	"github.com/shaiso/Replay/internal/worker"
)

type execOptions struct {
	*globalOptions
	childID        int64
	uniqueChildARN string
	cdpPort        int
}

// NewExecCmd создаёт команду exec — тело дочернего процесса.
func NewExecCmd(global *globalOptions) *cobra.Command {
	opts := &execOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:    "exec",
		Short:  "Execute one task read from stdin (used by serve)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), opts, cmd.InOrStdin())
		},
	}

	cmd.Flags().Int64Var(&opts.childID, "child-process-id", 0, "Child process id")
	cmd.Flags().StringVar(&opts.uniqueChildARN, "unique-child-arn", "", "Worker identifier")
	cmd.Flags().IntVar(&opts.cdpPort, "cdp-port", 9222, "CDP port of the worker browser")

	return cmd
}

func runExec(ctx context.Context, opts *execOptions, stdin io.Reader) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := telemetry.WithChildID(telemetry.SetupLogger(), opts.childID)

	var task domain.Task
	if err := json.NewDecoder(stdin).Decode(&task); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}

	page, err := browser.Connect(ctx, browser.CDPURL(opts.cdpPort), logger)
	if err != nil {
		return err
	}
	defer page.Close()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	executor := worker.NewExecutor(worker.ExecutorConfig{
		Browser:     page,
		Model:       newModel(cfg.LLM, logger),
		CodeSources: codeSources(),
		HumanInLoop: func(task *domain.Task) engine.HumanInLoop {
			return &orchestrator.HumanInLoop{
				Client:         client,
				StatusURL:      cfg.HumanInLoopStatusURL(),
				APIKey:         task.APIKey,
				UniqueChildARN: opts.uniqueChildARN,
			}
		},
		Reporter:       client,
		SaveDirectory:  cfg.Worker.SaveDirectory,
		UniqueChildARN: opts.uniqueChildARN,
		Logger:         logger,
	})

	mem, err := executor.Execute(ctx, &task)
	if err != nil {
		return err
	}
	if code := worker.ExitCode(mem); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// newModel создаёт языковую модель. Без ключа automation выполняется без
// LLM: действия, которым она нужна, завершатся ошибкой.
func newModel(cfg config.LLM, logger *slog.Logger) engine.LanguageModel {
	model, err := llm.New(cfg, logger)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			logger.Warn("language model disabled", "provider", cfg.Provider, "error", err)
		} else {
			logger.Error("language model unavailable", "provider", cfg.Provider, "error", err)
		}
		return nil
	}
	return model
}

func codeSources() map[domain.TwoFAKind]engine.CodeSource {
	return map[domain.TwoFAKind]engine.CodeSource{
		domain.TwoFAKindTOTP: &twofa.TOTP{},
	}
}
