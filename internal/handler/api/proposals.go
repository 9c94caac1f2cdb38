package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/middleware"
	"github.com/dukerupert/marketplace/internal/service"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// ProposalHandler serves proposals and their invoices.
type ProposalHandler struct {
	proposals service.ProposalService
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(proposals service.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

type proposalRequest struct {
	Items      []proposalItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	Note       string                `json:"note" validate:"max=5000"`
	ValidUntil *time.Time            `json:"valid_until"`
}

type proposalItemRequest struct {
	VersionID   *uuid.UUID `json:"version_id"`
	Description string     `json:"description" validate:"max=500"`
	Quantity    int        `json:"quantity" validate:"gte=1"`
	UnitPrice   int64      `json:"unit_price" validate:"gte=0"`
}

func (p proposalRequest) input() service.ProposalInput {
	items := make([]service.ProposalItemInput, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, service.ProposalItemInput{
			VersionID:   it.VersionID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return service.ProposalInput{Items: items, Note: p.Note, ValidUntil: p.ValidUntil}
}

// Create handles POST /api/admin/requests/{id}/proposals
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req proposalRequest
	if err := handler.Decode(r, &req, "proposal.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.proposals.Create(r.Context(), middleware.GetUserFromContext(r.Context()), requestID, req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/admin/proposals/{id}
func (h *ProposalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req proposalRequest
	if err := handler.Decode(r, &req, "proposal.update"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.proposals.Update(r.Context(), id, req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, p)
}

// ListForRequest handles GET /api/requests/{id}/proposals and the admin
// route of the same shape. Requesters never see drafts.
func (h *ProposalHandler) ListForRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	list, err := h.proposals.ListForRequest(r.Context(), middleware.GetUserFromContext(r.Context()), requestID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Proposal{}
	}
	handler.JSON(w, http.StatusOK, list)
}

// Get handles GET /api/proposals/{id}
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.proposals.Get(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, p)
}

// Send handles POST /api/admin/proposals/{id}/send
func (h *ProposalHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.proposals.Send)
}

// Withdraw handles POST /api/admin/proposals/{id}/withdraw
func (h *ProposalHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.proposals.Withdraw)
}

// Accept handles POST /api/proposals/{id}/accept
func (h *ProposalHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.asRequester(h.proposals.Accept, r))
}

// Reject handles POST /api/proposals/{id}/reject
func (h *ProposalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.asRequester(h.proposals.Reject, r))
}

type transitionFunc func(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)

func (h *ProposalHandler) asRequester(fn func(context.Context, *domain.User, uuid.UUID) (*domain.Proposal, error), r *http.Request) transitionFunc {
	user := middleware.GetUserFromContext(r.Context())
	return func(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
		return fn(ctx, user, id)
	}
}

func (h *ProposalHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := fn(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, p)
}

// Invoice handles GET /api/proposals/{id}/invoice. The HTML invoice is the
// default; ?format=pdf returns the rendered PDF as an attachment.
func (h *ProposalHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	viewer := middleware.GetUserFromContext(r.Context())

	if r.URL.Query().Get("format") == "pdf" {
		ctx, finish := telemetry.StartSpan(r.Context(), "invoice.pdf", id.String())
		body, name, err := h.proposals.InvoicePDF(ctx, viewer, id)
		finish()
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Cache-Control", "private, no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	body, err := h.proposals.InvoiceHTML(r.Context(), viewer, id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// PDF handles GET /api/admin/proposals/{id}/pdf, the same document the
// requester receives when the proposal is sent.
func (h *ProposalHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	ctx, finish := telemetry.StartSpan(r.Context(), "proposal.pdf", id.String())
	body, name, err := h.proposals.ProposalPDF(ctx, id)
	finish()
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
