package cache

import "errors"

var (
	// ErrLockNotHeld is returned when releasing a lease that expired or was taken over
	ErrLockNotHeld = errors.New("cache: catalog lock not held")
	// ErrRedisUnavailable is returned when redis is disabled or cannot be reached
	ErrRedisUnavailable = errors.New("cache: redis unavailable")
)
