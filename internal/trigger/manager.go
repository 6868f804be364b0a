// Package trigger runs report generation in the background, one goroutine
// per request.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reportdesk/backend/internal/logging"
)

// State represents the state of a background task.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded" // processor returned the success sentinel
	StateFailed    State = "failed"    // processor returned something else
	StateErrored   State = "errored"   // processor returned an error or panicked
)

// Processor is the long-running report generator. It returns the success
// sentinel when the report was produced.
type Processor interface {
	Process(ctx context.Context, filename string, concurrency, mode int) (string, error)
}

// Options configures how tasks call the processor.
type Options struct {
	Concurrency     int
	Mode            int
	SuccessSentinel string
}

// Task is a handle to one background processor call.
type Task struct {
	ID        string
	Filename  string
	CreatedAt time.Time

	mu          sync.RWMutex
	state       State
	result      string
	err         error
	completedAt *time.Time
	done        chan struct{}
}

// State returns the current state.
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Result returns the processor's return value and error once finished.
func (t *Task) Result() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result, t.err
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(state State, result string, err error) {
	t.mu.Lock()
	now := time.Now()
	t.state = state
	t.result = result
	t.err = err
	t.completedAt = &now
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) finishedBefore(cutoff time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completedAt != nil && t.completedAt.Before(cutoff)
}

// Manager starts tasks and keeps their handles until they are pruned.
// Tasks are never deduplicated or cancelled.
type Manager struct {
	tasks     map[string]*Task
	mu        sync.RWMutex
	wg        sync.WaitGroup
	processor Processor
	opts      Options
	logger    *slog.Logger
}

// NewManager creates a task manager calling processor.
func NewManager(processor Processor, opts Options, logger *slog.Logger) *Manager {
	return &Manager{
		tasks:     make(map[string]*Task),
		processor: processor,
		opts:      opts,
		logger:    logging.OrDefault(logger),
	}
}

// Start launches a background task for filename and returns immediately.
func (m *Manager) Start(filename string) *Task {
	task := &Task{
		ID:        uuid.New().String(),
		Filename:  filename,
		CreatedAt: time.Now(),
		state:     StateRunning,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(task)

	return task
}

// Get retrieves a task by ID.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	return task, ok
}

// Len returns the number of tracked tasks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

func (m *Manager) run(task *Task) {
	defer m.wg.Done()

	log := m.logger.With("task", task.ID[:8], "file", task.Filename)
	log.Info("processing started")

	result, err := m.call(task.Filename)
	switch {
	case err != nil:
		log.Error("processing raised an error", "error", err)
		task.finish(StateErrored, "", err)
	case result == m.opts.SuccessSentinel:
		log.Info("processing completed successfully")
		task.finish(StateSucceeded, result, nil)
	default:
		log.Warn("processing failed", "result", result)
		task.finish(StateFailed, result, nil)
	}
}

// call runs the processor, turning a panic into an error.
func (m *Manager) call(filename string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return m.processor.Process(context.Background(), filename, m.opts.Concurrency, m.opts.Mode)
}

// CleanupOldTasks removes tasks that finished more than maxAge ago and
// returns how many were removed.
func (m *Manager) CleanupOldTasks(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, task := range m.tasks {
		if task.finishedBefore(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}

// WaitAll blocks until every started task has finished or ctx is done.
func (m *Manager) WaitAll(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
