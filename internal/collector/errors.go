package collector

import "errors"

var (
	// ErrNotInTestMode is returned by StartTask while test mode is disabled.
	ErrNotInTestMode = errors.New("collector: not in test mode")
	// ErrNoActiveTask is returned by EndTaskStrict when no task is active.
	ErrNoActiveTask = errors.New("collector: no active task")
	// ErrEmptyTaskName is returned by StartTask for a blank task name.
	ErrEmptyTaskName = errors.New("collector: task name is empty")
)
