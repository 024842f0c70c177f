package scheduler

import "errors"

var (
	// ErrInvalidSchedule — cron-выражение не разбирается.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidRetention — срок хранения не положителен.
	ErrInvalidRetention = errors.New("invalid retention")
)
