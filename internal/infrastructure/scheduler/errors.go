package scheduler

import "errors"

var (
	// ErrPoolNotRunning is returned when submitting to a stopped pool
	ErrPoolNotRunning = errors.New("worker pool is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrJobPanicked is returned when a job panics instead of returning
	ErrJobPanicked = errors.New("job panicked")
)
