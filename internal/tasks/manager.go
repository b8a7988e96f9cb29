package tasks

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/classhub/trustgate/internal/core"
)

// DefaultTimeout bounds a single task run.
const DefaultTimeout = 5 * time.Minute

type Manager struct {
	clock   clockwork.Clock
	timeout time.Duration

	mu    sync.RWMutex
	tasks map[string]*RunnableTask
	wg    sync.WaitGroup
}

func NewManager(clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		clock:   clock,
		timeout: DefaultTimeout,
		tasks:   make(map[string]*RunnableTask),
	}
}

// Register adds a task. An interval of zero registers a task that only runs when triggered.
func (m *Manager) Register(name string, interval time.Duration, fn TaskFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks[name] = &RunnableTask{
		Name:         name,
		Interval:     interval,
		Handler:      fn,
		clock:        m.clock,
		timeout:      m.timeout,
		registeredAt: m.clock.Now(),
		logs:         make([]LogEntry, 0),
	}
}

// Start schedules every interval task until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, task := range m.tasks {
		if task.Interval <= 0 {
			continue
		}
		m.wg.Add(1)
		go m.scheduler(ctx, task)
	}
}

// Wait blocks until all schedulers and triggered runs have returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Trigger runs the task in the background. The run outlives ctx's cancellation
// but keeps its values.
func (m *Manager) Trigger(ctx context.Context, name string) error {
	task, err := m.get(name)
	if err != nil {
		return err
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		task.Run(context.WithoutCancel(ctx))
	}()
	return nil
}

func (m *Manager) ListStatus() []TaskStatus {
	m.mu.RLock()
	list := make([]TaskStatus, 0, len(m.tasks))
	for _, task := range m.tasks {
		list = append(list, task.Status())
	}
	m.mu.RUnlock()

	slices.SortFunc(list, func(a, b TaskStatus) int {
		return strings.Compare(a.Name, b.Name)
	})
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	task, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return task.GetLogs(), nil
}

func (m *Manager) get(name string) (*RunnableTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[name]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", name, core.ErrNotFound)
	}
	return task, nil
}

func (m *Manager) scheduler(ctx context.Context, task *RunnableTask) {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			task.Run(ctx)
		}
	}
}
