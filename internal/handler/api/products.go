package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/service"
)

// ProductHandler serves products, their versions and quotes.
type ProductHandler struct {
	products service.ProductService
	versions service.VersionService
}

// NewProductHandler creates a new product handler
func NewProductHandler(products service.ProductService, versions service.VersionService) *ProductHandler {
	return &ProductHandler{products: products, versions: versions}
}

type productRequest struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Slug        string               `json:"slug" validate:"max=200"`
	Description string               `json:"description" validate:"max=20000"`
	BrandID     *uuid.UUID           `json:"brand_id"`
	CategoryID  *uuid.UUID           `json:"category_id"`
	Status      domain.ProductStatus `json:"status" validate:"omitempty,oneof=draft active archived"`
	BasePrice   int64                `json:"base_price" validate:"gte=0"`
	Currency    string               `json:"currency" validate:"omitempty,len=3"`
	Images      []string             `json:"images" validate:"max=20,dive,url"`
	Specs       map[string]string    `json:"specs"`
	Tags        []string             `json:"tags" validate:"max=30,dive,max=40"`
	Variations  []variationRequest   `json:"variations" validate:"dive"`
}

type variationRequest struct {
	AttributeID uuid.UUID   `json:"attribute_id" validate:"required"`
	OptionIDs   []uuid.UUID `json:"option_ids" validate:"required,min=1"`
}

func (p productRequest) input() service.ProductInput {
	variations := make([]domain.Variation, 0, len(p.Variations))
	for _, v := range p.Variations {
		variations = append(variations, domain.Variation{AttributeID: v.AttributeID, OptionIDs: v.OptionIDs})
	}
	return service.ProductInput{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		BrandID:     p.BrandID,
		CategoryID:  p.CategoryID,
		Status:      p.Status,
		BasePrice:   p.BasePrice,
		Currency:    p.Currency,
		Images:      p.Images,
		Specs:       p.Specs,
		Tags:        p.Tags,
		Variations:  variations,
	}
}

type versionRequest struct {
	Price  *int64              `json:"price" validate:"omitempty,gte=0"`
	Stock  *int                `json:"stock" validate:"omitempty,gte=0"`
	SKU    *string             `json:"sku" validate:"omitempty,max=64"`
	Active *bool               `json:"active"`
	Tiers  *[]domain.PriceTier `json:"tiers"`
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// AdminList handles GET /api/admin/products. It accepts a status filter.
func (h *ProductHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, public bool) {
	f, err := productFilter(r, public)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	list, err := h.products.List(r.Context(), f, public)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, list)
}

// productFilter reads q, category_id (repeatable), brand_id, min_price,
// max_price, tag (repeatable), sort, limit, offset and, for admins, status.
func productFilter(r *http.Request, public bool) (domain.ProductFilter, error) {
	const op = "product.list"
	q := r.URL.Query()
	f := domain.ProductFilter{
		Query: strings.TrimSpace(q.Get("q")),
		Sort:  domain.ProductSort(q.Get("sort")),
	}

	var verr error
	collect := func(err error) {
		for field, msg := range domain.GetValidationFields(err) {
			verr = domain.AddFieldError(verr, field, msg)
		}
	}

	for _, raw := range q["category_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			collect(domain.NewValidationError(op, "category_id", "must be a UUID"))
			continue
		}
		f.CategoryIDs = append(f.CategoryIDs, id)
	}
	var err error
	f.BrandID, err = handler.QueryUUID(r, "brand_id", op)
	collect(err)
	f.MinPrice, err = handler.QueryInt64(r, "min_price", op)
	collect(err)
	f.MaxPrice, err = handler.QueryInt64(r, "max_price", op)
	collect(err)
	f.Limit, err = handler.QueryInt(r, "limit", 0, op)
	collect(err)
	f.Offset, err = handler.QueryInt(r, "offset", 0, op)
	collect(err)

	for _, t := range q["tag"] {
		if t = strings.TrimSpace(t); t != "" {
			f.Tags = append(f.Tags, strings.ToLower(t))
		}
	}

	switch f.Sort {
	case "", domain.SortNewest, domain.SortPriceAsc, domain.SortPriceDesc, domain.SortName:
	default:
		collect(domain.NewValidationError(op, "sort", "must be one of newest, price_asc, price_desc, name"))
	}

	if !public {
		if s := q.Get("status"); s != "" {
			status := domain.ProductStatus(s)
			if !status.Valid() {
				collect(domain.NewValidationError(op, "status", "must be draft, active or archived"))
			} else {
				f.Status = &status
			}
		}
	}
	return f, verr
}

// Detail handles GET /api/products/{slug}
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.products.Detail(r.Context(), r.PathValue("slug"), true)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	handler.JSON(w, http.StatusOK, detail)
}

// AdminDetail handles GET /api/admin/products/{id}, returning the product
// with every version including inactive ones.
func (h *ProductHandler) AdminDetail(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	detail, err := h.products.Detail(r.Context(), p.Slug, false)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, detail)
}

// Create handles POST /api/admin/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := handler.Decode(r, &req, "product.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.products.Create(r.Context(), req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/admin/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req productRequest
	if err := handler.Decode(r, &req, "product.update"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	p, err := h.products.Update(r.Context(), id, req.input())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, p)
}

// Archive handles DELETE /api/admin/products/{id}. Products are archived,
// never deleted, so proposals and wish lists keep their references.
func (h *ProductHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.products.Archive(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}

// ListVersions handles GET /api/admin/products/{id}/versions
func (h *ProductHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	versions, err := h.versions.List(r.Context(), id, r.URL.Query().Get("active") == "true")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if versions == nil {
		versions = []domain.Version{}
	}
	handler.JSON(w, http.StatusOK, versions)
}

// GenerateVersions handles POST /api/admin/products/{id}/versions/generate
func (h *ProductHandler) GenerateVersions(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	res, err := h.versions.Generate(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, res)
}

// UpdateVersion handles PATCH /api/admin/versions/{id}
func (h *ProductHandler) UpdateVersion(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req versionRequest
	if err := handler.Decode(r, &req, "version.update"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	v, err := h.versions.Update(r.Context(), id, service.VersionInput{
		Price:  req.Price,
		Stock:  req.Stock,
		SKU:    req.SKU,
		Active: req.Active,
		Tiers:  req.Tiers,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, v)
}

// Quote handles GET /api/versions/{id}/quote?quantity=N. Quantity defaults
// to 1.
func (h *ProductHandler) Quote(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	qty, err := handler.QueryInt(r, "quantity", 1, "version.quote")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	q, err := h.versions.Quote(r.Context(), id, qty)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, q)
}
