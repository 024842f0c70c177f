package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Replay/internal/api"
	"github.com/shaiso/Replay/internal/browser"
	"github.com/shaiso/Replay/internal/config"
	"github.com/shaiso/Replay/internal/mq"
	"github.com/shaiso/Replay/internal/orchestrator"
	"github.com/shaiso/Replay/internal/repo"
	"github.com/shaiso/Replay/internal/scheduler"
	"github.com/shaiso/Replay/internal/telemetry"
	"github.com/shaiso/Replay/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	*globalOptions
	port    int
	childID int64
	aws     bool
}

// NewServeCmd создаёт команду serve.
func NewServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the worker HTTP server and task processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.port, "port", 0, "HTTP port (default: CHILD_PORT_OFFSET + child process id)")
	cmd.Flags().Int64Var(&opts.childID, "child-process-id", 0, "Child process id, selects the browser port")
	cmd.Flags().BoolVar(&opts.aws, "aws", false, "Managed mode: register in ECS, disable /inference")

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger := telemetry.SetupLogger()
	logger.Info("starting replay-worker", "child_process_id", opts.childID, "aws", opts.aws)

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	launcher := &browser.Launcher{
		Headless: cfg.Browser.Headless,
		Channel:  cfg.Browser.Channel,
		Args:     cfg.Browser.Args,
		Logger:   logger,
	}
	sessions := worker.NewSessionManager(worker.LauncherFunc(func(ctx context.Context, port int, proxy string) (worker.BrowserSession, error) {
		s, err := launcher.Launch(ctx, port, proxy)
		if err != nil {
			return nil, err
		}
		return s, nil
	}), metrics, logger)

	wcfg := worker.Config{
		Runner: worker.NewRunner(worker.RunnerConfig{
			Command: childCommand(binary, opts.configPath),
			Timeout: cfg.Worker.TaskTimeout,
			Logger:  logger,
		}),
		Sessions:        sessions,
		SysInfo:         worker.NewSysInfoRecorder(cfg.Worker.SaveDirectory, logger),
		Metrics:         metrics,
		ChildID:         opts.childID,
		BrowserBasePort: cfg.Browser.BasePort,
		UnhealthyAfter:  cfg.Worker.UnhealthyAfter,
		ProxyURL:        cfg.Worker.ProxyURL,
		Logger:          logger,
	}

	// PostgreSQL (опционально)
	if dsn := cfg.Integrations.DatabaseURL; dsn != "" {
		pool, err := repo.NewPool(ctx, dsn)
		if err != nil {
			return err
		}
		defer pool.Close()

		executions := repo.NewExecutionRepo(pool)
		if err := executions.EnsureSchema(ctx); err != nil {
			return err
		}
		wcfg.Journal = executions
		logger.Info("database connected")
	}

	// RabbitMQ (опционально)
	var mqConn *mq.Connection
	if url := cfg.Integrations.RabbitMQURL; url != "" {
		mqConn, err = mq.Dial(url, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, HTTP intake only", "error", err)
		} else {
			defer mqConn.Close()
			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				return err
			}
			wcfg.Publisher = mq.NewPublisher(mqConn, logger)
			logger.Info("RabbitMQ connected")
		}
	}

	// Регистрация в ECS
	if opts.aws {
		reg, err := client.FetchRegistration(ctx, cfg.Worker.ECSMetadataURL, cfg.Worker.ChildPortOffset)
		if err != nil {
			return fmt.Errorf("ecs registration: %w", err)
		}
		if err := client.RegisterChild(ctx, reg); err != nil {
			return fmt.Errorf("register child: %w", err)
		}
		wcfg.UniqueChildARN = reg.TaskARN
		logger.Info("registered child", "task_arn", reg.TaskARN, "private_ip", reg.PrivateIP, "port", reg.Port)
	}

	w := worker.New(wcfg)

	janitor, err := scheduler.NewJanitor(scheduler.JanitorConfig{
		SaveDirectory: cfg.Worker.SaveDirectory,
		Schedule:      cfg.Integrations.JanitorSchedule,
		Retention:     cfg.Integrations.JanitorRetention,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	apiCfg := api.Config{
		Worker:         w,
		Metrics:        metrics,
		MetricsHandler: promhttp.Handler(),
		Logger:         logger,
	}
	if !opts.aws {
		apiCfg.Inference = client
	}
	mux := http.NewServeMux()
	api.NewHandler(apiCfg).RegisterRoutes(mux)

	port := opts.port
	if port == 0 {
		port = cfg.Worker.ChildPortOffset + int(opts.childID)
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return w.Run(ctx)
	})

	g.Go(func() error {
		janitor.Run(ctx)
		return nil
	})

	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueTasksAllocate,
			Handler: w.HandleAllocate,
		})
		g.Go(func() error {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("replay-worker stopped")
	return err
}

// childCommand запускает тот же бинарник командой exec.
func childCommand(binary, configPath string) worker.CommandFactory {
	return func(spec worker.RunSpec) (*exec.Cmd, error) {
		args := []string{
			"exec",
			"--child-process-id", strconv.FormatInt(spec.ChildID, 10),
			"--unique-child-arn", spec.UniqueChildARN,
			"--cdp-port", strconv.Itoa(spec.CDPPort),
		}
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		cmd := exec.Command(binary, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd, nil
	}
}

func endpoints(s config.Server) orchestrator.Endpoints {
	return orchestrator.Endpoints{
		CreateTask:     s.CreateTaskEndpoint,
		StartTask:      s.StartTaskEndpoint,
		CompleteTask:   s.CompleteTaskEndpoint,
		SaveOutputData: s.SaveOutputDataEndpoint,
		SaveDownloads:  s.SaveDownloadsEndpoint,
		SaveTrajectory: s.SaveTrajectoryEndpoint,
		Inference:      s.InferenceEndpoint,
		HumanInLoop:    s.HumanInLoopEndpoint,
		RegisterChild:  s.RegisterChildEndpoint,
	}
}

func newClient(cfg *config.Config, logger *slog.Logger) (*orchestrator.Client, error) {
	return orchestrator.New(orchestrator.Config{
		BaseURL:   cfg.Server.URL,
		APIKey:    cfg.Server.APIKey,
		Endpoints: endpoints(cfg.Server),
		Timeout:   cfg.Server.Timeout,
		Logger:    logger,
	})
}
