package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const MaxLogsPerTask = 1000

type RunnableTask struct {
	Name     string
	Interval time.Duration
	Handler  TaskFunc

	clock        clockwork.Clock
	timeout      time.Duration
	registeredAt time.Time

	mu         sync.RWMutex
	running    bool
	lastRun    time.Time
	lastResult string
	logs       []LogEntry
}

// Run executes the task once. A run that starts while another one is in
// progress is skipped.
func (t *RunnableTask) Run(ctx context.Context) {
	l := log.With().Str("task", t.Name).Logger()

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		l.Warn().Msg("task is already running, skipping execution")
		return
	}
	t.running = true
	t.logs = make([]LogEntry, 0)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.lastRun = t.clock.Now()
		t.mu.Unlock()
	}()

	taskLogger := l.Hook(captureHook{task: t})
	taskLogger.Info().Msg("starting task execution")

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := t.clock.Now()
	err := t.Handler(ctx, taskLogger)
	duration := t.clock.Since(start)

	t.mu.Lock()
	if err != nil {
		t.lastResult = fmt.Sprintf("failed: %v", err)
	} else {
		t.lastResult = "success"
	}
	t.mu.Unlock()

	if err != nil {
		taskLogger.Error().Err(err).Dur("duration", duration).Msg("task failed")
	} else {
		taskLogger.Info().Dur("duration", duration).Msg("task completed successfully")
	}
}

func (t *RunnableTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var nextTime time.Time
	if t.Interval > 0 {
		if !t.lastRun.IsZero() {
			nextTime = t.lastRun.Add(t.Interval)
		} else {
			nextTime = t.registeredAt.Add(t.Interval)
		}
	}

	return TaskStatus{
		Name:       t.Name,
		Running:    t.running,
		Interval:   t.Interval,
		LastRun:    t.lastRun,
		LastResult: t.lastResult,
		NextRun:    nextTime,
	}
}

func (t *RunnableTask) GetLogs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cpy := make([]LogEntry, len(t.logs))
	copy(cpy, t.logs)
	return cpy
}

func (t *RunnableTask) appendLog(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logs = append(t.logs, LogEntry{
		Time:    t.clock.Now(),
		Level:   level,
		Message: msg,
	})
	if len(t.logs) > MaxLogsPerTask {
		t.logs = t.logs[1:]
	}
}

// captureHook copies every event of a task logger into the task's run log.
type captureHook struct {
	task *RunnableTask
}

func (h captureHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	h.task.appendLog(level.String(), msg)
}
