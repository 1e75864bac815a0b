package jobqueue

import "errors"

var (
	ErrPoolNotRunning     = errors.New("job pool is not running")
	ErrPoolAlreadyRunning = errors.New("job pool is already running")
	// ErrNoHandler is recorded on a job whose type has no registered handler.
	ErrNoHandler   = errors.New("no handler registered for job type")
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotRunning is returned by Heartbeat and the Mark* calls when the
	// job left the running state, usually because it was cancelled.
	ErrJobNotRunning = errors.New("job is not running")
	ErrInvalidJob    = errors.New("invalid job")
)
