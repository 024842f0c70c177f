package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/mq"
	"github.com/shaiso/Replay/internal/telemetry"
)

// HandleAllocate — обработчик очереди tasks.allocate.
//
// Невалидный task уходит в DLQ (mq.ErrPermanent). Если очередь
// воркера закрыта, сообщение возвращается в RabbitMQ.
func (w *Worker) HandleAllocate(_ context.Context, msg *mq.Message) error {
	if msg.Type != mq.MessageTypeTaskAllocate {
		return fmt.Errorf("%w: unexpected message type %q", mq.ErrPermanent, msg.Type)
	}

	task, err := mq.DecodePayload[domain.Task](msg)
	if err != nil {
		return err
	}
	if task.AllocatedAt.IsZero() {
		task.AllocatedAt = w.now().UTC()
	}

	w.logger.Debug("received task.allocate", "message_id", msg.ID, "task_id", task.TaskID)

	if err := w.Enqueue(&task); err != nil {
		if errors.Is(err, ErrQueueClosed) {
			return err
		}
		if w.metrics != nil {
			w.metrics.TasksTotal.WithLabelValues(telemetry.OutcomeRejected).Inc()
		}
		return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
	}
	return nil
}
