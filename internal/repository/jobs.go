package repository

import (
	"context"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, timeout_seconds, worker_id, run_at, last_error, created_at, updated_at`

func scanJob(row rowScanner) (domain.Job, error) {
	var (
		j       domain.Job
		timeout int
	)
	err := row.Scan(&j.ID, &j.Type, &j.Payload, &j.Status, &j.Attempts, &j.MaxAttempts, &timeout, &j.WorkerID,
		&j.RunAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	j.Timeout = time.Duration(timeout) * time.Second
	return j, err
}

type EnqueueJobParams struct {
	Type        string
	Payload     []byte
	MaxAttempts int
	Timeout     time.Duration
	RunAt       time.Time
}

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (*domain.Job, error) {
	j, err := scanJob(q.db.QueryRow(ctx, `
		INSERT INTO jobs (type, payload, max_attempts, timeout_seconds, run_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+jobColumns,
		arg.Type, arg.Payload, arg.MaxAttempts, int(arg.Timeout/time.Second), arg.RunAt))
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ClaimNextJob marks the oldest due pending job as running for workerID.
// Concurrent workers skip rows another transaction holds.
func (q *Queries) ClaimNextJob(ctx context.Context, workerID string, now time.Time) (*domain.Job, error) {
	j, err := scanJob(q.db.QueryRow(ctx, `
		UPDATE jobs SET status = 'running', attempts = attempts + 1, worker_id = $1, updated_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending' AND run_at <= $2
			ORDER BY run_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns, workerID, now))
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (q *Queries) CompleteJob(ctx context.Context, id uuid.UUID) error {
	return expectOne(q.db.Exec(ctx,
		`UPDATE jobs SET status = 'done', last_error = '', updated_at = now() WHERE id = $1`, id))
}

// FailJob records errMsg. With retryAt set the job goes back to pending,
// otherwise it is marked failed for good.
func (q *Queries) FailJob(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	if retryAt != nil {
		return expectOne(q.db.Exec(ctx, `
			UPDATE jobs SET status = 'pending', run_at = $3, last_error = $2, worker_id = '', updated_at = now()
			WHERE id = $1`, id, errMsg, *retryAt))
	}
	return expectOne(q.db.Exec(ctx, `
		UPDATE jobs SET status = 'failed', last_error = $2, updated_at = now()
		WHERE id = $1`, id, errMsg))
}

// RequeueStaleJobs returns running jobs untouched since before to pending,
// recovering work from crashed workers.
func (q *Queries) RequeueStaleJobs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE jobs SET status = 'pending', worker_id = '', updated_at = now()
		WHERE status = 'running' AND updated_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListJobs returns recent jobs, optionally by status, for the admin view.
func (q *Queries) ListJobs(ctx context.Context, status *domain.JobStatus, limit int) ([]domain.Job, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Job, error) {
		return scanJob(r)
	})
}
