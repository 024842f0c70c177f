package browser

import (
	"context"
	"time"
)

// defaultTimeout используется, если у ctx нет дедлайна.
const defaultTimeout = 30 * time.Second

// timeoutMs переводит дедлайн ctx в таймаут Playwright в миллисекундах.
// Playwright трактует 0 как «без таймаута», поэтому минимум — 1 мс.
func timeoutMs(ctx context.Context) *float64 {
	d := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		d = time.Until(deadline)
	}
	ms := float64(d.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return &ms
}
