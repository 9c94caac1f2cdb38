package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/middleware"
	"github.com/dukerupert/marketplace/internal/service"
)

// RequestHandler serves item requests.
type RequestHandler struct {
	requests service.RequestService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requests service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

type itemRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=5000"`
	Quantity    int        `json:"quantity" validate:"gte=0"`
	Budget      *int64     `json:"budget" validate:"omitempty,gte=0"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Attachments []string   `json:"attachments" validate:"max=10,dive,url"`
}

// Create handles POST /api/requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := handler.Decode(r, &req, "request.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	out, err := h.requests.Create(r.Context(), middleware.GetUserFromContext(r.Context()), service.RequestInput{
		Title:       req.Title,
		Description: req.Description,
		Quantity:    req.Quantity,
		Budget:      req.Budget,
		CategoryID:  req.CategoryID,
		Attachments: req.Attachments,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, out)
}

// ListMine handles GET /api/requests
func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	list, err := h.requests.ListMine(r.Context(), user.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Request{}
	}
	handler.JSON(w, http.StatusOK, list)
}

// Get handles GET /api/requests/{id} and its admin twin. Admins see any
// request, customers only their own.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	out, err := h.requests.Get(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, out)
}

// Cancel handles POST /api/requests/{id}/cancel
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	out, err := h.requests.Cancel(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, out)
}

// AdminList handles GET /api/admin/requests?status=&limit=&offset=
func (h *RequestHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	const op = "request.list"

	var status *domain.RequestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.RequestStatus(raw)
		switch s {
		case domain.RequestOpen, domain.RequestQuoted, domain.RequestClosed, domain.RequestCancelled:
			status = &s
		default:
			handler.ErrorResponse(w, r, domain.NewValidationError(op, "status", "must be open, quoted, closed or cancelled"))
			return
		}
	}
	limit, err := handler.QueryInt(r, "limit", 50, op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	offset, err := handler.QueryInt(r, "offset", 0, op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	list, err := h.requests.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Request{}
	}
	handler.JSON(w, http.StatusOK, list)
}

// Close handles POST /api/admin/requests/{id}/close
func (h *RequestHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	out, err := h.requests.Close(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, out)
}
