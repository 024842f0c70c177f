package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Replay/internal/domain"
)

// runHumanInLoop уведомляет оператора и ждёт завершения ручного шага.
//
// Ошибка уведомления только логируется. Ошибки опроса считаются
// «ещё не завершено». По истечении max_wait_time — ErrHumanInLoopTimeout.
func (it *Interpreter) runHumanInLoop(ctx context.Context, node *nodeState, a *domain.HumanInLoopAction) error {
	if it.human == nil {
		return fmt.Errorf("%w: human in loop is not configured", ErrNotSupported)
	}

	taskID := node.task.TaskID
	if err := it.human.Notify(ctx, taskID); err != nil {
		node.logger.Warn("human in loop notify failed", "error", err)
	}

	maxWait := domain.Seconds(a.MaxWaitTime)
	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(it.pollInterval)
	defer ticker.Stop()

	for {
		done, err := it.human.IsCompleted(waitCtx, taskID)
		switch {
		case err != nil:
			node.logger.Debug("human in loop status poll failed", "error", err)
		case done:
			node.logger.Info("human in loop completed")
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w after %s", ErrHumanInLoopTimeout, maxWait)
		case <-ticker.C:
		}
	}
}
