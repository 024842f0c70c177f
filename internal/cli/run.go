package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Replay/internal/browser"
	"github.com/shaiso/Replay/internal/config"
	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/orchestrator"
	"github.com/shaiso/Replay/internal/telemetry"
	"github.com/shaiso/Replay/internal/worker"
)

type runOptions struct {
	*globalOptions
	recording string
	params    []string
	unique    []string
	cdpPort   int
	useProxy  bool
	report    bool
}

// NewRunCmd создаёт команду run — локальный запуск записи.
func NewRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a recording locally",
		Long: `Run a recording in a local browser.

With --report the task is created on the orchestration server and its
status, output data and artifacts are reported there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd.Context(), opts, NewOutput(opts.jsonOutput))
		},
	}

	cmd.Flags().StringVar(&opts.recording, "recording", "", "Recording file (YAML or JSON)")
	cmd.Flags().StringSliceVar(&opts.params, "param", nil, "Input parameter as KEY=VALUE (repeatable)")
	cmd.Flags().StringSliceVar(&opts.unique, "unique-param", nil, "Names of unique parameters")
	cmd.Flags().IntVar(&opts.cdpPort, "cdp-port", 0, "CDP port for the local browser (default: BROWSER_BASE_PORT)")
	cmd.Flags().BoolVar(&opts.useProxy, "use-proxy", false, "Start the browser through PROXY_URL")
	cmd.Flags().BoolVar(&opts.report, "report", false, "Create the task on the orchestration server and report results")
	_ = cmd.MarkFlagRequired("recording")

	return cmd
}

func runLocal(ctx context.Context, opts *runOptions, out *Output) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := telemetry.SetupLogger()

	automation, err := LoadRecording(opts.recording)
	if err != nil {
		return err
	}
	params, err := ParseParams(opts.params)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	task := &domain.Task{
		TaskID:               "local-" + uuid.NewString(),
		RecordingID:          strings.TrimSuffix(filepath.Base(opts.recording), filepath.Ext(opts.recording)),
		Automation:           *automation,
		InputParameters:      params,
		UniqueParameterNames: opts.unique,
		UseProxy:             opts.useProxy,
		AllocatedAt:          now,
		CreatedAt:            &now,
	}
	if err := task.Validate(); err != nil {
		return err
	}

	var proxy string
	if task.UseProxy {
		if cfg.Worker.ProxyURL == "" {
			return worker.ErrProxyUnavailable
		}
		proxy = cfg.Worker.ProxyURL
	}

	var reporter worker.Reporter
	if opts.report {
		client, err := registerLocalTask(ctx, cfg, logger, task)
		if err != nil {
			return err
		}
		reporter = client
	}

	port := opts.cdpPort
	if port == 0 {
		port = cfg.Browser.BasePort
	}
	launcher := &browser.Launcher{
		Headless: cfg.Browser.Headless,
		Channel:  cfg.Browser.Channel,
		Args:     cfg.Browser.Args,
		Logger:   logger,
	}
	session, err := launcher.Launch(ctx, port, proxy)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Stop(context.WithoutCancel(ctx), true); err != nil {
			logger.Warn("stop browser failed", "error", err)
		}
	}()

	page, err := browser.Connect(ctx, session.CDPURL(), logger)
	if err != nil {
		return err
	}
	defer page.Close()

	executor := worker.NewExecutor(worker.ExecutorConfig{
		Browser:        page,
		Model:          newModel(cfg.LLM, logger),
		CodeSources:    codeSources(),
		Reporter:       reporter,
		SaveDirectory:  cfg.Worker.SaveDirectory,
		UniqueChildARN: "local",
		Logger:         logger,
	})

	mem, err := executor.Execute(ctx, task)
	if err != nil {
		return err
	}

	printMemory(out, mem)
	if code := worker.ExitCode(mem); code != 0 {
		return &ExitError{Code: code}
	}
	out.Success(fmt.Sprintf("Task %s succeeded, artifacts in %s", mem.TaskID, mem.Dirs.Task))
	return nil
}

// registerLocalTask создаёт task на сервере оркестрации. Возвращённый
// клиент используется как Reporter.
func registerLocalTask(ctx context.Context, cfg *config.Config, logger *slog.Logger, task *domain.Task) (*orchestrator.Client, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := client.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task on server: %w", err)
	}
	logger.Info("task created on server", "task_id", task.TaskID, "recording_id", task.RecordingID)
	return client, nil
}

// printMemory выводит итог выполнения.
func printMemory(out *Output, mem *domain.Memory) {
	headers := []string{"TASK_ID", "STATUS", "STEP", "DURATION", "TOKENS", "ERROR"}
	row := []string{
		mem.TaskID,
		string(mem.Status),
		strconv.Itoa(mem.AutomationState.StepIndex),
		mem.Duration().Round(time.Millisecond).String(),
		strconv.FormatInt(mem.TokenUsage.TotalTokens, 10),
		mem.Error,
	}
	out.Print(headers, [][]string{row}, mem)
}
