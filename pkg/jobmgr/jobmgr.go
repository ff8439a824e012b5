// Package jobmgr runs named long-lived jobs with cancellation, status
// callbacks and in-memory tracking of running jobs.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, func(msg string) {
//	    log.Info("job", logx.String("status", msg))
//	})
//
//	err := jm.StartAsync("scheduler", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
//
//	// on shutdown
//	jm.StopAll()
//	jm.Wait()
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Job represents a running unit of work.
// Jobs are added and removed by Manager automatically.
type Job struct {
	Name   string
	Cancel context.CancelFunc
	done   chan struct{}
}

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:scheduler
//	error:scheduler:database is locked
//	done:scheduler
type StatusReporter func(string)

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	parent   context.Context
	mu       sync.Mutex
	jobs     map[string]*Job
	wg       sync.WaitGroup
	Reporter StatusReporter
}

// NewManager creates a Manager whose jobs are children of parent.
// The reporter callback may be nil.
func NewManager(parent context.Context, reporter StatusReporter) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	return &Manager{
		parent:   parent,
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartSync runs a job in the current goroutine and blocks until completion.
func (m *Manager) StartSync(name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(m.parent)
	defer cancel()
	m.report("running:" + name)
	err := runner(ctx)
	m.reportResult(name, err)
	return err
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// If a job with the same name is already running, an error is returned.
// Jobs are removed automatically after completion (success or failure).
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' is already running", name)
	}
	ctx, cancel := context.WithCancel(m.parent)
	job := &Job{Name: name, Cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = job
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer close(job.done)
		defer cancel()

		m.report("running:" + name)
		m.reportResult(name, runner(ctx))

		m.mu.Lock()
		if m.jobs[name] == job {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()

	return nil
}

// Stop cancels a running job by name and waits for it to return.
// If the job is not running, an error is returned.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	job, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	job.Cancel()
	<-job.done
	return nil
}

// StopAll cancels every running job without waiting. Pair with Wait.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, job := range m.jobs {
		job.Cancel()
		delete(m.jobs, name)
	}
}

// Wait blocks until every job started with StartAsync has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
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

// Status returns a human-readable summary of active jobs.
// Example:
//
//	"Running jobs: health, scheduler"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) reportResult(name string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		m.report("error:" + name + ":" + err.Error())
		return
	}
	m.report("done:" + name)
}

// report delivers lifecycle messages to the reporter if present.
func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
