// Package worker runs background jobs from the jobs table.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/jobs"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// BaseBackoff and MaxBackoff bound the delay before a failed job is retried.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// MaintenanceInterval is how often stale jobs are requeued and the
	// expired session sweep is scheduled.
	MaintenanceInterval time.Duration

	// StaleAfter is how long a running job may go untouched before it is
	// considered abandoned by a crashed worker.
	StaleAfter time.Duration
}

// Queue is the job persistence the worker needs.
type Queue interface {
	jobs.Enqueuer
	jobs.SessionSweeper
	ClaimNextJob(ctx context.Context, workerID string, now time.Time) (*domain.Job, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
	RequeueStaleJobs(ctx context.Context, before time.Time) (int64, error)
}

// Deps are the collaborators job processors call.
type Deps struct {
	Mailer  jobs.Mailer
	PDF     jobs.ProposalPDF // optional
	Slack   jobs.SlackPoster
	Metrics *telemetry.BusinessMetrics
}

// Worker processes background jobs
type Worker struct {
	config Config
	queue  Queue
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewWorker creates a new background job worker
func NewWorker(queue Queue, deps Deps, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.BaseBackoff == 0 {
		config.BaseBackoff = 10 * time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Minute
	}
	if config.MaintenanceInterval == 0 {
		config.MaintenanceInterval = time.Hour
	}
	if config.StaleAfter == 0 {
		config.StaleAfter = 15 * time.Minute
	}

	return &Worker{
		config: config,
		queue:  queue,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// Start processes jobs until ctx is cancelled, then waits for in-flight
// jobs to finish.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()
	maintenance := time.NewTicker(w.config.MaintenanceInterval)
	defer maintenance.Stop()

	w.maintain(ctx)

	sem := make(chan struct{}, w.config.MaxConcurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			w.wg.Wait()
			return ctx.Err()

		case <-maintenance.C:
			w.maintain(ctx)

		case <-ticker.C:
			w.dispatch(ctx, sem)
		}
	}
}

// dispatch claims jobs while slots are free and jobs are due.
func (w *Worker) dispatch(ctx context.Context, sem chan struct{}) {
	for {
		select {
		case sem <- struct{}{}:
		default:
			return
		}

		job, err := w.claim(ctx)
		if err != nil || job == nil {
			<-sem
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()
			w.run(ctx, job)
		}()
	}
}

// claim returns nil without error when no job is due.
func (w *Worker) claim(ctx context.Context) (*domain.Job, error) {
	job, err := w.queue.ClaimNextJob(ctx, w.config.WorkerID, w.now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if ctx.Err() == nil {
			w.logger.Error("failed to claim job", "error", err)
		}
		return nil, err
	}
	return job, nil
}

// run processes a claimed job and records the outcome.
func (w *Worker) run(ctx context.Context, job *domain.Job) {
	logger := w.logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempts)
	logger.Info("processing job")
	telemetry.AddBreadcrumb("job", job.Type, map[string]interface{}{"job_id": job.ID.String()})

	start := w.now()
	err := w.processJob(ctx, job)
	took := w.now().Sub(start)

	// Record the outcome even when shutdown cancelled ctx.
	storeCtx := context.WithoutCancel(ctx)

	if err == nil {
		logger.Info("job completed", "duration", took)
		w.deps.Metrics.Job(job.Type, "done", took)
		if err := w.queue.CompleteJob(storeCtx, job.ID); err != nil {
			logger.Error("failed to mark job complete", "error", err)
		}
		return
	}

	if job.Attempts < job.MaxAttempts {
		retryAt := w.now().Add(w.backoff(job.Attempts))
		logger.Warn("job failed, will retry", "error", err, "retry_at", retryAt)
		w.deps.Metrics.Job(job.Type, "retry", took)
		if ferr := w.queue.FailJob(storeCtx, job.ID, err.Error(), &retryAt); ferr != nil {
			logger.Error("failed to reschedule job", "error", ferr)
		}
		return
	}

	logger.Error("job failed permanently", "error", err)
	w.deps.Metrics.Job(job.Type, "failed", took)
	telemetry.CaptureError(err, map[string]interface{}{"job_id": job.ID.String(), "job_type": job.Type})
	if ferr := w.queue.FailJob(storeCtx, job.ID, err.Error(), nil); ferr != nil {
		logger.Error("failed to mark job failed", "error", ferr)
	}
}

// processJob processes a single job
func (w *Worker) processJob(ctx context.Context, job *domain.Job) error {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch jobs.Family(job.Type) {
	case "email":
		return jobs.ProcessEmailJob(jobCtx, job, w.deps.Mailer, w.deps.PDF)
	case "slack":
		return jobs.ProcessSlackJob(jobCtx, job, w.deps.Slack)
	case "cleanup":
		res, err := jobs.ProcessCleanupJob(jobCtx, job, w.queue)
		if err != nil {
			return err
		}
		w.logger.Info("cleanup finished", "job_type", job.Type, "sessions_deleted", res.SessionsDeleted)
		return nil
	}

	return fmt.Errorf("unknown job type: %s", job.Type)
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff.
func (w *Worker) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := w.config.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= w.config.MaxBackoff {
			return w.config.MaxBackoff
		}
	}
	return d
}

// maintain requeues abandoned jobs and schedules the session sweep.
func (w *Worker) maintain(ctx context.Context) {
	n, err := w.queue.RequeueStaleJobs(ctx, w.now().Add(-w.config.StaleAfter))
	if err != nil {
		w.logger.Error("failed to requeue stale jobs", "error", err)
	} else if n > 0 {
		w.logger.Warn("requeued stale jobs", "count", n)
	}

	if err := jobs.EnqueueCleanupExpiredSessions(ctx, w.queue); err != nil {
		w.logger.Error("failed to schedule session cleanup", "error", err)
	}
}
