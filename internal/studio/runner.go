package studio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/munzgen/munzgen-agent/internal/logging"
)

// ErrBusy is returned while another generation is in flight.
var ErrBusy = errors.New("a generation is already running")

// taskResult is what a finished task records on its job.
type taskResult struct {
	Label     string
	Engine    string
	ResultURL string
}

type taskFunc func(ctx context.Context, job *Job) (*taskResult, error)

type task struct {
	job *Job
	fn  taskFunc
}

// Runner executes generation jobs one at a time. Submitting while a job is
// pending or running fails with ErrBusy.
type Runner struct {
	repo   JobRepository
	logger *slog.Logger
	now    func() time.Time

	queue   chan task
	running atomic.Bool
	busy    atomic.Bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	onUpdate func(*Job)

	inflight sync.WaitGroup
}

func NewRunner(repo JobRepository, logger *slog.Logger) *Runner {
	return &Runner{
		repo:   repo,
		logger: logging.WithComponent(logger, "runner"),
		now:    time.Now,
		queue:  make(chan task, 1),
	}
}

// OnUpdate registers fn to receive every job state change.
func (r *Runner) OnUpdate(fn func(*Job)) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// Start processes submitted jobs until ctx is done.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}
	r.logger.Info("job runner started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.drain(ctx)
			r.running.Store(false)
			return
		case t := <-r.queue:
			r.process(ctx, t)
		}
	}
}

// drain fails a job that was queued but never started.
func (r *Runner) drain(ctx context.Context) {
	select {
	case t := <-r.queue:
		r.setStatus(ctx, t.job, JobStatusFailed, "agent shutting down")
		r.busy.Store(false)
		r.inflight.Done()
	default:
	}
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) IsBusy() bool {
	return r.busy.Load()
}

// Submit records a pending job and queues fn to run it.
func (r *Runner) Submit(ctx context.Context, kind, label string, fn taskFunc) (*Job, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	now := r.now()
	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    JobStatusPending,
		Label:     label,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.CreateJob(ctx, job); err != nil {
		r.busy.Store(false)
		return nil, err
	}

	snapshot := *job
	r.publish(job)
	r.inflight.Add(1)
	r.queue <- task{job: job, fn: fn}
	return &snapshot, nil
}

// Cancel aborts the running job, if any.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.inflight.Wait()
}

func (r *Runner) process(ctx context.Context, t task) {
	defer r.inflight.Done()
	defer r.busy.Store(false)

	jobCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}()

	job := t.job
	logger := logging.WithJobID(r.logger, job.ID)
	logger.Info("processing job", "kind", job.Kind)

	r.setStatus(ctx, job, JobStatusRunning, "")

	start := r.now()
	res, err := t.fn(jobCtx, job)
	if err != nil {
		logger.Error("job failed", "error", err, "duration", r.now().Sub(start))
		r.setStatus(ctx, job, JobStatusFailed, logging.Truncate(err.Error(), 512))
		return
	}
	if res == nil {
		res = &taskResult{Label: job.Label}
	}

	// Record completion on a context that outlives a cancelled job.
	dbCtx := context.WithoutCancel(ctx)
	if err := r.repo.CompleteJob(dbCtx, job.ID, res.Label, res.Engine, res.ResultURL); err != nil {
		logger.Error("failed to record job completion", "error", err)
	}
	job.Status = JobStatusCompleted
	job.Label = res.Label
	job.Engine = res.Engine
	job.ResultURL = res.ResultURL
	job.Error = ""
	job.UpdatedAt = r.now()
	logger.Info("job completed", "duration", r.now().Sub(start))
	r.publish(job)
}

func (r *Runner) setStatus(ctx context.Context, job *Job, status, msg string) {
	if err := r.repo.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, status, msg); err != nil {
		r.logger.Error("failed to update job status", "job_id", job.ID, "error", err)
	}
	job.Status = status
	job.Error = msg
	job.UpdatedAt = r.now()
	r.publish(job)
}

func (r *Runner) publish(job *Job) {
	r.mu.Lock()
	fn := r.onUpdate
	r.mu.Unlock()
	if fn != nil {
		snapshot := *job
		fn(&snapshot)
	}
}
