package engine

import (
	"context"
	"log/slog"
	"time"
)

// Outcome — итог командной фазы действия.
type Outcome int

const (
	// OutcomeSkipped — попыток не было (команда не задана).
	OutcomeSkipped Outcome = iota

	// OutcomeSucceeded — одна из попыток прошла.
	OutcomeSucceeded

	// OutcomeFailed — все попытки исчерпаны.
	OutcomeFailed
)

// String возвращает строковое представление Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempter — одна попытка действия. Дедлайн попытки задаётся ctx.
type Attempter interface {
	Attempt(ctx context.Context) error
}

// AttemptFunc — адаптер функции к Attempter.
type AttemptFunc func(ctx context.Context) error

// Attempt вызывает f.
func (f AttemptFunc) Attempt(ctx context.Context) error {
	return f(ctx)
}

// Retrier повторяет попытку до MaxTries раз.
//
// Каждая попытка получает свой таймаут Timeout, между попытками выдерживается
// пауза той же длины. Пауза прерывается отменой ctx. После последней
// неудачной попытки паузы нет.
type Retrier struct {
	// MaxTries — максимум попыток (минимум 1).
	MaxTries int

	// Timeout — таймаут одной попытки и пауза между попытками.
	Timeout time.Duration

	// Escalate — вернуть последнюю ошибку после исчерпания попыток.
	// Если false, ошибка логируется и поглощается.
	Escalate bool

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// Do выполняет попытки.
//
// Возвращаемая ошибка не nil только если:
//   - попытки исчерпаны и Escalate=true (последняя ошибка)
//   - ctx отменён (ctx.Err())
func (r Retrier) Do(ctx context.Context, a Attempter) (Outcome, error) {
	if a == nil {
		return OutcomeSkipped, nil
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tries := max(r.MaxTries, 1)

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, r.Timeout); err != nil {
				return OutcomeFailed, err
			}
		}

		// Предыдущая ошибка не переживает новую попытку.
		lastErr = nil

		attemptCtx, cancel := context.WithTimeout(ctx, r.Timeout)
		err := a.Attempt(attemptCtx)
		cancel()

		if err == nil {
			logger.Debug("attempt succeeded", "attempt", attempt)
			return OutcomeSucceeded, nil
		}
		if ctx.Err() != nil {
			return OutcomeFailed, ctx.Err()
		}

		lastErr = err
		logger.Debug("attempt failed", "attempt", attempt, "max_tries", tries, "error", err)
	}

	if r.Escalate {
		return OutcomeFailed, lastErr
	}

	logger.Debug("attempts exhausted, continuing", "max_tries", tries, "error", lastErr)
	return OutcomeFailed, nil
}

// sleepCtx ждёт d или отмену ctx.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
