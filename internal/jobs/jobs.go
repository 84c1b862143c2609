// Package jobs runs long service operations, such as student generation, in
// the background and keeps their status for polling.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostelcore/internal/core"
)

// Status describes the lifecycle stage of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Done reports whether the status is terminal.
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Job is a snapshot of a submitted job.
type Job struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	ErrorKind   string     `json:"error_kind,omitempty"`
	Result      any        `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Func is the work performed by a job. The context is canceled by Cancel or
// Stop.
type Func func(ctx context.Context) (any, error)

var (
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("job runner stopped")
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
)

type entry struct {
	job    Job
	cancel context.CancelFunc
}

// Runner executes jobs with bounded concurrency.
type Runner struct {
	logger core.Logger
	slots  chan struct{}

	mu      sync.RWMutex
	jobs    map[string]*entry
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger logs job outcomes.
func WithLogger(logger core.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConcurrency bounds how many jobs run at once (default 1).
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.slots = make(chan struct{}, n)
		}
	}
}

// NewRunner constructs a job runner.
func NewRunner(opts ...Option) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		logger: core.NopLogger(),
		slots:  make(chan struct{}, 1),
		jobs:   make(map[string]*entry),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit queues fn and returns the queued job.
func (r *Runner) Submit(kind string, fn Func) (Job, error) {
	if fn == nil {
		return Job{}, fmt.Errorf("job %s: nil func", kind)
	}
	now := time.Now().UTC()
	ctx, cancel := context.WithCancel(r.ctx)
	e := &entry{
		job: Job{
			ID:        uuid.NewString(),
			Kind:      kind,
			Status:    StatusQueued,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		cancel()
		return Job{}, ErrStopped
	}
	r.jobs[e.job.ID] = e
	r.wg.Add(1)
	queued := e.job
	r.mu.Unlock()

	go r.run(ctx, e.job.ID, fn)
	return queued, nil
}

func (r *Runner) run(ctx context.Context, id string, fn Func) {
	defer r.wg.Done()
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		r.finish(id, nil, ctx.Err())
		return
	}
	defer func() { <-r.slots }()

	if !r.transition(id, StatusRunning) {
		return
	}
	result, err := fn(ctx)
	r.finish(id, result, err)
}

func (r *Runner) transition(id string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok || e.job.Status.Done() {
		return false
	}
	e.job.Status = status
	e.job.UpdatedAt = time.Now().UTC()
	return true
}

func (r *Runner) finish(id string, result any, err error) {
	now := time.Now().UTC()
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok || e.job.Status.Done() {
		r.mu.Unlock()
		return
	}
	e.cancel()
	switch {
	case err == nil:
		e.job.Status = StatusSucceeded
		e.job.Result = result
	case errors.Is(err, context.Canceled):
		e.job.Status = StatusCanceled
		e.job.Error = err.Error()
	default:
		e.job.Status = StatusFailed
		e.job.Error = err.Error()
		e.job.ErrorKind = core.ErrorKind(err)
	}
	e.job.UpdatedAt = now
	e.job.CompletedAt = &now
	job := e.job
	r.mu.Unlock()

	if job.Status == StatusFailed {
		r.logger.Error("job failed", "job_id", id, "kind", job.Kind, "error", job.Error)
		return
	}
	r.logger.Info("job finished", "job_id", id, "kind", job.Kind, "status", string(job.Status))
}

// Get returns a snapshot of a job.
func (r *Runner) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// Cancel requests cancellation of a job. Finished jobs are unaffected.
func (r *Runner) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrJobNotFound)
	}
	e.cancel()
	return nil
}

// Stop cancels every running job, rejects new submissions and waits for
// workers to return.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
