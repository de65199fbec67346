package scheduler

import "errors"

var (
	// ErrInvalidInterval is returned when the scheduler interval cannot be parsed
	ErrInvalidInterval = errors.New("invalid scheduler interval")

	// ErrSchedulerNotRunning is returned when stopping a scheduler that was never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)
