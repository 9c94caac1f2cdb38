// Package jobs defines the background job types, their JSON payloads, the
// helpers that enqueue them and the functions that process them.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
)

// Enqueuer persists jobs. *repository.Queries satisfies it.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (*domain.Job, error)
}

func enqueue(ctx context.Context, q Enqueuer, jobType string, payload any, maxAttempts int, timeout time.Duration) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		Type:        jobType,
		Payload:     payloadJSON,
		MaxAttempts: maxAttempts,
		Timeout:     timeout,
		RunAt:       time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", jobType, err)
	}
	return nil
}

// Family returns the prefix before the colon: "email", "slack", "cleanup".
func Family(jobType string) string {
	family, _, _ := strings.Cut(jobType, ":")
	return family
}
