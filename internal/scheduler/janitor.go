package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor удаляет каталоги task'ов старше срока хранения.
type Janitor struct {
	saveDir   string
	retention time.Duration
	expr      string
	schedule  cron.Schedule
	now       func() time.Time
	logger    *slog.Logger
}

// JanitorConfig — конфигурация Janitor.
type JanitorConfig struct {
	// SaveDirectory — корень каталогов task'ов.
	SaveDirectory string

	// Schedule — cron-выражение (default: @hourly).
	Schedule string

	// Retention — сколько хранить каталог после последнего изменения (default: 24h).
	Retention time.Duration

	// Now — источник времени (для тестов).
	Now func() time.Time

	Logger *slog.Logger
}

// NewJanitor создаёт Janitor. Ошибка, если расписание не разбирается.
func NewJanitor(cfg JanitorConfig) (*Janitor, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = "@hourly"
	}
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = 24 * time.Hour
	}
	if retention < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRetention, retention)
	}

	j := &Janitor{
		saveDir:   cfg.SaveDirectory,
		retention: retention,
		expr:      expr,
		schedule:  schedule,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
	if j.now == nil {
		j.now = time.Now
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	return j, nil
}

// Run запускает очистку по расписанию и блокируется до отмены ctx.
// Запущенная очистка дорабатывает до конца.
func (j *Janitor) Run(ctx context.Context) {
	c := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(j.schedule, cron.FuncJob(func() {
		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("janitor sweep failed", "error", err)
		}
	}))
	c.Start()

	j.logger.Info("janitor started",
		"save_directory", j.saveDir,
		"schedule", j.expr,
		"retention", j.retention,
		"next_run", j.schedule.Next(j.now()).UTC(),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor stopped")
}

// Sweep удаляет каталоги task'ов, не менявшиеся дольше retention.
// Возвращает число удалённых каталогов. Ошибка одного каталога не
// останавливает остальные.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(j.saveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read save directory: %w", err)
	}

	cutoff := j.now().Add(-j.retention)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			j.logger.Warn("stat task directory failed", "name", entry.Name(), "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(j.saveDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			j.logger.Warn("remove task directory failed", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("janitor sweep completed", "removed", removed, "cutoff", cutoff.UTC())
	}
	return removed, nil
}
