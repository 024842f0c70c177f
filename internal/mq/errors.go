package mq

import "errors"

var (
	// ErrNoChannel — канал AMQP недоступен (соединение переподключается).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrPermanent — сообщение нельзя обработать повторно, оно уходит в DLQ.
	ErrPermanent = errors.New("permanent message failure")
)
