package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
)

// Job type constants for cleanup jobs
const (
	JobTypeCleanupExpiredSessions = "cleanup:expired_sessions"
)

// CleanupExpiredSessionsPayload carries nothing; the job sweeps every
// expired session.
type CleanupExpiredSessionsPayload struct{}

// EnqueueCleanupExpiredSessions enqueues a session sweep. It is not retried;
// the next scheduled run picks up whatever this one missed.
func EnqueueCleanupExpiredSessions(ctx context.Context, q Enqueuer) error {
	return enqueue(ctx, q, JobTypeCleanupExpiredSessions, CleanupExpiredSessionsPayload{}, 1, time.Minute)
}

// SessionSweeper deletes sessions that expired before now.
type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	SessionsDeleted int64 `json:"sessions_deleted"`
}

// ProcessCleanupJob processes a cleanup job based on its type
func ProcessCleanupJob(ctx context.Context, job *domain.Job, sessions SessionSweeper) (*CleanupResult, error) {
	switch job.Type {
	case JobTypeCleanupExpiredSessions:
		n, err := sessions.DeleteExpiredSessions(ctx, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
		}
		return &CleanupResult{SessionsDeleted: n}, nil
	default:
		return nil, fmt.Errorf("unknown cleanup job type: %s", job.Type)
	}
}
