package worker

import (
	"context"
	"sync"

	"github.com/shaiso/Replay/internal/domain"
)

// Queue — неограниченная FIFO-очередь task'ов.
//
// Push не блокируется. Pop ждёт, пока появится task, ctx отменится
// или очередь закроется.
type Queue struct {
	mu     sync.Mutex
	items  []*domain.Task
	notify chan struct{}
	closed bool
}

// NewQueue создаёт пустую очередь.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push добавляет task в конец очереди.
func (q *Queue) Push(task *domain.Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop извлекает task из начала очереди.
func (q *Queue) Pop(ctx context.Context) (*domain.Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			task := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return task, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len возвращает число task'ов в очереди.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close закрывает очередь. Оставшиеся task'и ещё можно извлечь.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
