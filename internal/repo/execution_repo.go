package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Replay/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS task_executions (
		id               UUID PRIMARY KEY,
		task_id          TEXT NOT NULL,
		recording_id     TEXT NOT NULL DEFAULT '',
		child_process_id BIGINT NOT NULL,
		status           TEXT NOT NULL,
		exit_code        INTEGER,
		timed_out        BOOLEAN NOT NULL DEFAULT FALSE,
		queued_at        TIMESTAMPTZ NOT NULL,
		started_at       TIMESTAMPTZ,
		finished_at      TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS task_executions_task_id_idx ON task_executions (task_id);
`

const selectColumns = `
	SELECT id, task_id, recording_id, child_process_id, status, exit_code,
	       timed_out, queued_at, started_at, finished_at
	FROM task_executions
`

// ExecutionRepo — журнал запусков task'ов.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// EnsureSchema создаёт таблицу, если её нет.
func (r *ExecutionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create записывает новый запуск.
func (r *ExecutionRepo) Create(ctx context.Context, e *domain.Execution) error {
	query := `
		INSERT INTO task_executions (id, task_id, recording_id, child_process_id, status, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.TaskID,
		e.RecordingID,
		e.ChildProcessID,
		e.Status,
		e.QueuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// Update сохраняет статус, код завершения и времена.
func (r *ExecutionRepo) Update(ctx context.Context, e *domain.Execution) error {
	query := `
		UPDATE task_executions
		SET status = $2, exit_code = $3, timed_out = $4, started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Status,
		e.ExitCode,
		e.TimedOut,
		e.StartedAt,
		e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает запуск по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return scanExecution(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
}

// ListByTaskID возвращает все запуски task, новые первыми.
func (r *ExecutionRepo) ListByTaskID(ctx context.Context, taskID string) ([]domain.Execution, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` WHERE task_id = $1 ORDER BY queued_at DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list executions by task_id: %w", err)
	}
	defer rows.Close()

	var out []domain.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var e domain.Execution
	err := row.Scan(
		&e.ID,
		&e.TaskID,
		&e.RecordingID,
		&e.ChildProcessID,
		&e.Status,
		&e.ExitCode,
		&e.TimedOut,
		&e.QueuedAt,
		&e.StartedAt,
		&e.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	return &e, nil
}
