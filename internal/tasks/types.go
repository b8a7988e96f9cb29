// Package tasks runs named maintenance jobs, either on an interval or on demand,
// and keeps the log output of their latest run.
package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TaskFunc is the unit of work.
// Everything written to logger is also kept as the task's run log.
type TaskFunc func(ctx context.Context, logger zerolog.Logger) error

// TaskStatus is a snapshot of a task. Interval is zero for trigger-only tasks.
type TaskStatus struct {
	Name       string        `json:"name,omitempty"`
	Running    bool          `json:"running,omitempty"`
	Interval   time.Duration `json:"interval,omitempty"`
	LastRun    time.Time     `json:"last_run"`
	LastResult string        `json:"last_result,omitempty"`
	NextRun    time.Time     `json:"next_run"`
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}
