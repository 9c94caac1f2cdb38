package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/service"
)

// CatalogHandler serves brands, categories and attributes.
type CatalogHandler struct {
	brands     service.BrandService
	categories service.CategoryService
	attributes service.AttributeService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(brands service.BrandService, categories service.CategoryService, attributes service.AttributeService) *CatalogHandler {
	return &CatalogHandler{brands: brands, categories: categories, attributes: attributes}
}

type brandRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Slug        string `json:"slug" validate:"max=120"`
	Description string `json:"description" validate:"max=5000"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
	Active      *bool  `json:"active"`
}

func (b brandRequest) input() service.BrandInput {
	return service.BrandInput{
		Name:        b.Name,
		Slug:        b.Slug,
		Description: b.Description,
		LogoURL:     b.LogoURL,
		Active:      b.Active,
	}
}

type categoryRequest struct {
	ParentID  *uuid.UUID `json:"parent_id"`
	Name      string     `json:"name" validate:"required,max=120"`
	Slug      string     `json:"slug" validate:"max=120"`
	ImageURL  string     `json:"image_url" validate:"omitempty,url"`
	SortOrder int        `json:"sort_order"`
	Active    *bool      `json:"active"`
}

func (c categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		ParentID:  c.ParentID,
		Name:      c.Name,
		Slug:      c.Slug,
		ImageURL:  c.ImageURL,
		SortOrder: c.SortOrder,
		Active:    c.Active,
	}
}

type optionRequest struct {
	Value     string `json:"value" validate:"required,max=120"`
	SortOrder int    `json:"sort_order"`
}

type attributeRequest struct {
	Name    string          `json:"name" validate:"required,max=120"`
	Slug    string          `json:"slug" validate:"max=120"`
	Options []optionRequest `json:"options" validate:"dive"`
}

// --- brands ---

// ListBrands handles GET /api/brands
func (h *CatalogHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	h.listBrands(w, r, true)
}

// AdminListBrands handles GET /api/admin/brands, including inactive brands.
func (h *CatalogHandler) AdminListBrands(w http.ResponseWriter, r *http.Request) {
	h.listBrands(w, r, false)
}

func (h *CatalogHandler) listBrands(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	brands, err := h.brands.List(r.Context(), activeOnly)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, brands)
}

// CreateBrand handles POST /api/admin/brands
func (h *CatalogHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var req brandRequest
	if err := handler.Decode(r, &req, "brand.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	b, err := h.brands.Create(r.Context(), req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, b)
}

// UpdateBrand handles PUT /api/admin/brands/{id}
func (h *CatalogHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req brandRequest
	if err := handler.Decode(r, &req, "brand.update"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	b, err := h.brands.Update(r.Context(), id, req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, b)
}

// DeleteBrand handles DELETE /api/admin/brands/{id}
func (h *CatalogHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.brands.Delete(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}

// --- categories ---

// CategoryTree handles GET /api/categories
func (h *CatalogHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	h.categoryTree(w, r, true)
}

// AdminCategoryTree handles GET /api/admin/categories
func (h *CatalogHandler) AdminCategoryTree(w http.ResponseWriter, r *http.Request) {
	h.categoryTree(w, r, false)
}

func (h *CatalogHandler) categoryTree(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	tree, err := h.categories.Tree(r.Context(), activeOnly)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if tree == nil {
		tree = []*domain.Category{}
	}
	handler.JSON(w, http.StatusOK, tree)
}

// CategoryPath handles GET /api/categories/{id}/path
func (h *CatalogHandler) CategoryPath(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	path, err := h.categories.Path(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, path)
}

// CreateCategory handles POST /api/admin/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := handler.Decode(r, &req, "category.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	c, err := h.categories.Create(r.Context(), req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/admin/categories/{id}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req categoryRequest
	if err := handler.Decode(r, &req, "category.update"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	c, err := h.categories.Update(r.Context(), id, req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/admin/categories/{id}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.categories.Delete(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}

// --- attributes ---

// ListAttributes handles GET /api/attributes
func (h *CatalogHandler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := h.attributes.List(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, attrs)
}

// CreateAttribute handles POST /api/admin/attributes
func (h *CatalogHandler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := handler.Decode(r, &req, "attribute.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	opts := make([]service.OptionInput, 0, len(req.Options))
	for _, o := range req.Options {
		opts = append(opts, service.OptionInput{Value: o.Value, SortOrder: o.SortOrder})
	}
	a, err := h.attributes.Create(r.Context(), req.Name, req.Slug, opts)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, a)
}

// RenameAttribute handles PUT /api/admin/attributes/{id}. Options are
// managed through their own routes.
func (h *CatalogHandler) RenameAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req attributeRequest
	if err := handler.Decode(r, &req, "attribute.rename"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	a, err := h.attributes.Rename(r.Context(), id, req.Name, req.Slug)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, a)
}

// DeleteAttribute handles DELETE /api/admin/attributes/{id}
func (h *CatalogHandler) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.attributes.Delete(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}

// AddOption handles POST /api/admin/attributes/{id}/options
func (h *CatalogHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req optionRequest
	if err := handler.Decode(r, &req, "attribute.add_option"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	o, err := h.attributes.AddOption(r.Context(), id, service.OptionInput{Value: req.Value, SortOrder: req.SortOrder})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, o)
}

// UpdateOption handles PUT /api/admin/attributes/{id}/options/{optionID}
func (h *CatalogHandler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	optionID, err := handler.PathUUID(r, "optionID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req optionRequest
	if err := handler.Decode(r, &req, "attribute.update_option"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	o, err := h.attributes.UpdateOption(r.Context(), id, optionID, service.OptionInput{Value: req.Value, SortOrder: req.SortOrder})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, o)
}

// DeleteOption handles DELETE /api/admin/attributes/{id}/options/{optionID}
func (h *CatalogHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	optionID, err := handler.PathUUID(r, "optionID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.attributes.DeleteOption(r.Context(), id, optionID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}
