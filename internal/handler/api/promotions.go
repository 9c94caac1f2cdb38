package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/service"
)

// PromotionHandler serves promotions.
type PromotionHandler struct {
	promotions service.PromotionService
	now        func() time.Time
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(promotions service.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions, now: time.Now}
}

type promotionRequest struct {
	Name         string               `json:"name" validate:"required,max=120"`
	Kind         domain.PromotionKind `json:"kind" validate:"required,oneof=percentage fixed"`
	Value        int64                `json:"value" validate:"gt=0"`
	AppliesToAll bool                 `json:"applies_to_all"`
	ProductIDs   []uuid.UUID          `json:"product_ids"`
	CategoryIDs  []uuid.UUID          `json:"category_ids"`
	BrandIDs     []uuid.UUID          `json:"brand_ids"`
	StartsAt     time.Time            `json:"starts_at" validate:"required"`
	EndsAt       *time.Time           `json:"ends_at"`
	Active       *bool                `json:"active"`
}

func (p promotionRequest) input() service.PromotionInput {
	return service.PromotionInput{
		Name:         p.Name,
		Kind:         p.Kind,
		Value:        p.Value,
		AppliesToAll: p.AppliesToAll,
		ProductIDs:   p.ProductIDs,
		CategoryIDs:  p.CategoryIDs,
		BrandIDs:     p.BrandIDs,
		StartsAt:     p.StartsAt,
		EndsAt:       p.EndsAt,
		Active:       p.Active,
	}
}

// ListActive handles GET /api/promotions/active
func (h *PromotionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	promos, err := h.promotions.ListActive(r.Context(), h.now())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if promos == nil {
		promos = []domain.Promotion{}
	}
	handler.JSON(w, http.StatusOK, promos)
}

// AdminList handles GET /api/admin/promotions
func (h *PromotionHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	promos, err := h.promotions.List(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if promos == nil {
		promos = []domain.Promotion{}
	}
	handler.JSON(w, http.StatusOK, promos)
}

// Get handles GET /api/admin/promotions/{id}
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.promotions.Get(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, p)
}

// Create handles POST /api/admin/promotions
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := handler.Decode(r, &req, "promotion.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.promotions.Create(r.Context(), req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/admin/promotions/{id}
func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req promotionRequest
	if err := handler.Decode(r, &req, "promotion.update"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.promotions.Update(r.Context(), id, req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/admin/promotions/{id}
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.promotions.Delete(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}
