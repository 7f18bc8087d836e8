// Package jobmgr runs named long-lived jobs, such as the chat session, the
// pattern watcher and the status server, with cancellation, lifecycle
// callbacks and a bounded wait on shutdown.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(e jobmgr.Event) {
//	    log.Println("JOB:", e)
//	})
//
//	err := jm.StartAsync(ctx, "pattern-watcher", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
//
//	// later...
//	jm.StopAll()
//	jm.Wait(10 * time.Second)
//
// Jobs run in separate goroutines and are removed on completion.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by StartAsync for a name that is in use.
var ErrAlreadyRunning = errors.New("job already running")

// ErrNotRunning is returned by Stop for an unknown name.
var ErrNotRunning = errors.New("job not running")

// State is a job lifecycle stage.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "error"
)

// Event is delivered to the Reporter on every state change.
type Event struct {
	Job   string
	State State
	// Err is set for StateFailed.
	Err error
}

// String renders the event as "state:job[:err]".
func (e Event) String() string {
	if e.Err != nil {
		return string(e.State) + ":" + e.Job + ":" + e.Err.Error()
	}
	return string(e.State) + ":" + e.Job
}

// Reporter receives lifecycle events. It is called from the job goroutine.
type Reporter func(Event)

type job struct {
	cancel context.CancelFunc
}

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*job
	wg       sync.WaitGroup
	reporter Reporter
}

// NewManager creates a new Manager. The reporter may be nil.
func NewManager(reporter Reporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*job),
		reporter: reporter,
	}
}

// StartAsync runs runner in a new goroutine with a context derived from
// parent. A context.Canceled result counts as a clean exit.
func (m *Manager) StartAsync(parent context.Context, name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	ctx, cancel := context.WithCancel(parent)
	j := &job{cancel: cancel}
	m.jobs[name] = j
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()

		m.report(Event{Job: name, State: StateRunning})
		err := runner(ctx)

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			m.report(Event{Job: name, State: StateFailed, Err: err})
			return
		}
		m.report(Event{Job: name, State: StateDone})
	}()

	return nil
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, name)
	}
	j.cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every running job.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, j := range m.jobs {
		j.cancel()
		delete(m.jobs, name)
	}
}

// Wait blocks until every started job has returned or timeout elapses. It
// reports whether all jobs finished.
func (m *Manager) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// List returns the sorted names of active jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Status returns a human-readable summary of active jobs, for example
// "Running jobs: discord-session, pattern-watcher".
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) report(e Event) {
	if m.reporter != nil {
		m.reporter(e)
	}
}
