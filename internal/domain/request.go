package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus tracks a request through quoting.
type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestQuoted    RequestStatus = "quoted"
	RequestClosed    RequestStatus = "closed"
	RequestCancelled RequestStatus = "cancelled"
)

// Request asks the marketplace to source an item that is not in the catalog.
type Request struct {
	ID          uuid.UUID     `json:"id"`
	RequesterID uuid.UUID     `json:"requester_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Quantity    int           `json:"quantity"`
	Budget      *int64        `json:"budget,omitempty"`
	CategoryID  *uuid.UUID    `json:"category_id,omitempty"`
	Attachments []string      `json:"attachments"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Quotable reports whether proposals may still be drafted for the request.
func (r *Request) Quotable() bool {
	return r.Status == RequestOpen || r.Status == RequestQuoted
}
