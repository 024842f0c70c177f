// Package mq — приём task и публикация событий через RabbitMQ.
//
// Очередь опциональна: воркер работает и без неё, получая task по HTTP.
// Если задан RABBITMQ_URL, воркер дополнительно читает tasks.allocate
// и публикует task.completed.
//
// Структура:
//   - connection.go — соединение с reconnect
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация
//   - consumer.go   — потребление с ack/nack
package mq
