package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus tracks an offer made against a request.
type ProposalStatus string

const (
	ProposalDraft     ProposalStatus = "draft"
	ProposalSent      ProposalStatus = "sent"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

// Proposal is an admin's priced answer to a request.
type Proposal struct {
	ID          uuid.UUID      `json:"id"`
	RequestID   uuid.UUID      `json:"request_id"`
	AuthorID    uuid.UUID      `json:"author_id"`
	Items       []ProposalItem `json:"items"`
	Note        string         `json:"note"`
	ValidUntil  *time.Time     `json:"valid_until,omitempty"`
	Status      ProposalStatus `json:"status"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ProposalItem is one priced line. VersionID links it to the catalog when
// the item exists there.
type ProposalItem struct {
	ID          uuid.UUID  `json:"id"`
	VersionID   *uuid.UUID `json:"version_id,omitempty"`
	Description string     `json:"description"`
	Quantity    int        `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
}

// LineTotal is quantity times unit price.
func (i ProposalItem) LineTotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// Total sums the line totals.
func (p *Proposal) Total() int64 {
	var total int64
	for _, item := range p.Items {
		total += item.LineTotal()
	}
	return total
}

// Expired reports whether the proposal can no longer be answered at now.
func (p *Proposal) Expired(now time.Time) bool {
	return p.ValidUntil != nil && now.After(*p.ValidUntil)
}
