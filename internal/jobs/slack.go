package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/notify"
	"github.com/google/uuid"
)

// Job type constants for Slack jobs
const (
	JobTypeSlackRequestCreated = "slack:request_created"
)

// RequestCreatedPayload describes a new catalog request for the ops channel.
type RequestCreatedPayload struct {
	RequestID      uuid.UUID `json:"request_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Quantity       int       `json:"quantity"`
	BudgetCents    *int64    `json:"budget_cents,omitempty"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	AdminURL       string    `json:"admin_url"`
}

// EnqueueRequestCreated enqueues the Slack announcement of a new request.
func EnqueueRequestCreated(ctx context.Context, q Enqueuer, payload RequestCreatedPayload) error {
	return enqueue(ctx, q, JobTypeSlackRequestCreated, payload, 5, 30*time.Second)
}

// SlackPoster posts a message to Slack.
type SlackPoster interface {
	Post(ctx context.Context, msg notify.Message) error
}

// ProcessSlackJob processes a Slack job based on its type
func ProcessSlackJob(ctx context.Context, job *domain.Job, slack SlackPoster) error {
	switch job.Type {
	case JobTypeSlackRequestCreated:
		var payload RequestCreatedPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal request created payload: %w", err)
		}
		return slack.Post(ctx, RequestCreatedMessage(payload))
	default:
		return fmt.Errorf("unknown slack job type: %s", job.Type)
	}
}

// RequestCreatedMessage formats the announcement.
func RequestCreatedMessage(p RequestCreatedPayload) notify.Message {
	budget := "not set"
	if p.BudgetCents != nil {
		budget = fmt.Sprintf("%d.%02d", *p.BudgetCents/100, *p.BudgetCents%100)
	}

	title := p.Title
	if p.AdminURL != "" {
		title = fmt.Sprintf("<%s|%s>", p.AdminURL, p.Title)
	}

	blocks := []notify.Block{
		notify.Section(":mag: *New item request:* " + title),
		notify.Fields(
			"Quantity", strconv.Itoa(p.Quantity),
			"Budget", budget,
			"Requested by", fmt.Sprintf("%s (%s)", p.RequesterName, p.RequesterEmail),
		),
	}
	if p.Description != "" {
		blocks = append(blocks, notify.Section(truncate(p.Description, 500)))
	}

	return notify.Message{
		Text:   fmt.Sprintf("New item request: %s (x%d)", p.Title, p.Quantity),
		Blocks: blocks,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
