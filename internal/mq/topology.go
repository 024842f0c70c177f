package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeTasks Exchange = "replay.tasks"
	ExchangeDLQ   Exchange = "replay.dlq"
)

const (
	QueueTasksAllocate  Queue = "tasks.allocate"
	QueueTasksCompleted Queue = "tasks.completed"
	QueueDLQTasks       Queue = "dlq.tasks"
)

const (
	RoutingKeyAllocate  RoutingKey = "allocate"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyDLQTasks  RoutingKey = "tasks"
)

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeTasks, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, q := range topologyQueues() {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
			if err := ch.QueueBind(string(q.name), string(q.key), string(q.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", q.name, q.exchange, err)
			}
		}
		return nil
	})
}

type queueDecl struct {
	name     Queue
	exchange Exchange
	key      RoutingKey
	args     amqp.Table
}

// topologyQueues описывает очереди воркера.
//
//	replay.tasks (direct)
//	├── tasks.allocate  [allocate]   → воркер, DLQ dlq.tasks
//	└── tasks.completed [completed]  → сервер оркестрации
//	replay.dlq (direct)
//	└── dlq.tasks       [tasks]
func topologyQueues() []queueDecl {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQTasks),
	}
	return []queueDecl{
		{QueueTasksAllocate, ExchangeTasks, RoutingKeyAllocate, dlqArgs},
		{QueueTasksCompleted, ExchangeTasks, RoutingKeyCompleted, nil},
		{QueueDLQTasks, ExchangeDLQ, RoutingKeyDLQTasks, nil},
	}
}
