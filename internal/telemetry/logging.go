package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// LogLevel определяет уровень логирования из LOG_LEVEL.
// Возможные значения: DEBUG, INFO, WARN, ERROR. По умолчанию INFO.
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions() *slog.HandlerOptions {
	level := LogLevel()
	return &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
}

// SetupLogger инициализирует глобальный логгер.
//
// Формат вывода определяется переменной LOG_FORMAT:
//   - "json" (по умолчанию) — JSON для production
//   - "text" — человекочитаемый формат для разработки
func SetupLogger() *slog.Logger {
	return setupLogger(os.Stdout)
}

func setupLogger(w io.Writer) *slog.Logger {
	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(w, handlerOptions())
	} else {
		handler = slog.NewJSONHandler(w, handlerOptions())
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// TaskLogger возвращает логгер, пишущий одновременно в base и в JSON-файл
// лога task. Файл закрывается вызовом Close у возвращённого io.Closer.
func TaskLogger(base *slog.Logger, path string) (*slog.Logger, io.Closer, error) {
	if base == nil {
		base = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open task log: %w", err)
	}

	logger := slog.New(slogmulti.Fanout(
		base.Handler(),
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
	return logger, f, nil
}

type ctxKey string

// CtxLogger — ключ логгера в контексте.
const CtxLogger ctxKey = "logger"

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext извлекает логгер из контекста.
// Если логгер не найден, возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithTaskID возвращает логгер с task_id и recording_id.
func WithTaskID(logger *slog.Logger, taskID, recordingID string) *slog.Logger {
	return logger.With("task_id", taskID, "recording_id", recordingID)
}

// WithChildID возвращает логгер с child_process_id.
func WithChildID(logger *slog.Logger, childID int64) *slog.Logger {
	return logger.With("child_process_id", childID)
}
