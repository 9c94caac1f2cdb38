package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/email"
	"github.com/google/uuid"
)

// Job type constants for email jobs
const (
	JobTypeWishListInvitation = "email:wishlist_invitation"
	JobTypeProposalSent       = "email:proposal_sent"
)

// WishListInvitationPayload represents the payload for an invitation email job
type WishListInvitationPayload struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	Email        string    `json:"email"`
	InviterName  string    `json:"inviter_name"`
	WishListName string    `json:"wish_list_name"`
	Role         string    `json:"role"`
	AcceptURL    string    `json:"accept_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ProposalSentPayload represents the payload for a proposal notification.
// Lines are captured at send time so later edits cannot change the email.
type ProposalSentPayload struct {
	ProposalID   uuid.UUID          `json:"proposal_id"`
	Email        string             `json:"email"`
	CustomerName string             `json:"customer_name"`
	RequestTitle string             `json:"request_title"`
	Items        []ProposalLineData `json:"items"`
	TotalCents   int64              `json:"total_cents"`
	Note         string             `json:"note"`
	ValidUntil   *time.Time         `json:"valid_until,omitempty"`
	ProposalURL  string             `json:"proposal_url"`
}

// ProposalLineData represents a line item in a proposal email
type ProposalLineData struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
	TotalCents  int64  `json:"total_cents"`
}

// EnqueueWishListInvitation enqueues an invitation email job
func EnqueueWishListInvitation(ctx context.Context, q Enqueuer, payload WishListInvitationPayload) error {
	return enqueue(ctx, q, JobTypeWishListInvitation, payload, 3, 30*time.Second)
}

// EnqueueProposalSent enqueues a proposal email job. PDF rendering may take
// a while, hence the longer timeout.
func EnqueueProposalSent(ctx context.Context, q Enqueuer, payload ProposalSentPayload) error {
	return enqueue(ctx, q, JobTypeProposalSent, payload, 3, 90*time.Second)
}

// Mailer is the part of email.Service the jobs use.
type Mailer interface {
	SendWishListInvitation(ctx context.Context, data email.WishListInvitationEmail) error
	SendProposalSent(ctx context.Context, data email.ProposalSentEmail) error
}

// ProposalPDF renders the printable proposal. May be nil.
type ProposalPDF interface {
	ProposalPDF(ctx context.Context, proposalID uuid.UUID) (pdf []byte, number string, err error)
}

// ProcessEmailJob processes an email job based on its type
func ProcessEmailJob(ctx context.Context, job *domain.Job, mailer Mailer, pdf ProposalPDF) error {
	switch job.Type {
	case JobTypeWishListInvitation:
		var payload WishListInvitationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal invitation payload: %w", err)
		}
		return mailer.SendWishListInvitation(ctx, email.WishListInvitationEmail{
			Email:        payload.Email,
			InviterName:  payload.InviterName,
			WishListName: payload.WishListName,
			Role:         payload.Role,
			AcceptURL:    payload.AcceptURL,
			ExpiresAt:    payload.ExpiresAt,
		})

	case JobTypeProposalSent:
		var payload ProposalSentPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal proposal payload: %w", err)
		}

		data := email.ProposalSentEmail{
			Email:        payload.Email,
			CustomerName: payload.CustomerName,
			RequestTitle: payload.RequestTitle,
			TotalCents:   payload.TotalCents,
			Note:         payload.Note,
			ValidUntil:   payload.ValidUntil,
			ProposalURL:  payload.ProposalURL,
		}
		for _, it := range payload.Items {
			data.Items = append(data.Items, email.ProposalLine{
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitCents:   it.UnitCents,
				TotalCents:  it.TotalCents,
			})
		}
		if pdf != nil {
			b, number, err := pdf.ProposalPDF(ctx, payload.ProposalID)
			if err != nil {
				return fmt.Errorf("failed to render proposal pdf: %w", err)
			}
			data.InvoicePDF, data.InvoiceNumber = b, number
		}
		return mailer.SendProposalSent(ctx, data)

	default:
		return fmt.Errorf("unknown email job type: %s", job.Type)
	}
}
