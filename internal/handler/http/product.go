package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecomcore/catalog/internal/repository"
	"github.com/ecomcore/catalog/internal/service"
	"github.com/ecomcore/catalog/pkg/httputil"
	"github.com/ecomcore/catalog/pkg/pagination"
	"github.com/ecomcore/catalog/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	products *service.ProductService
	catalog  *service.CatalogService
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(products *service.ProductService, catalog *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		catalog:  catalog,
		logger:   logger,
	}
}

// UpdateProductRequest is the JSON request body for a partial product update.
type UpdateProductRequest struct {
	Name             *string  `json:"name" validate:"omitempty,min=2,max=200"`
	Description      *string  `json:"description"`
	ShortDescription *string  `json:"short_description"`
	BasePrice        *int64   `json:"base_price" validate:"omitempty,gte=0"`
	CategoryID       *string  `json:"category_id" validate:"omitempty,uuid"`
	Brand            *string  `json:"brand"`
	SKUPrefix        *string  `json:"sku_prefix"`
	WeightGrams      *int     `json:"weight_grams"`
	MetaTitle        *string  `json:"meta_title"`
	MetaDescription  *string  `json:"meta_description"`
	Tags             []string `json:"tags"`
	Status           *string  `json:"status" validate:"omitempty,oneof=active inactive draft archived"`
	IsFeatured       *bool    `json:"is_featured"`
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)

	listing, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"products":   listing.Products,
		"pagination": listing.Pagination,
		"filters":    filterEcho(filter),
	})
}

// SearchProducts handles GET /api/v1/products/search
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page := pagination.FromRequest(r)

	listing, err := h.catalog.SearchProducts(r.Context(), query, page.Page, page.Limit)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"products":   listing.Products,
		"pagination": listing.Pagination,
		"filters":    map[string]any{"search": query, "in_stock_only": true},
	})
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")

	detail, err := h.products.GetProduct(r.Context(), idOrSlug)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"product": detail})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.CreateProductInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	detail, err := h.products.CreateProduct(r.Context(), req)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"product": detail})
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "idOrSlug")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateProductRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	patch := repository.ProductPatch{
		Name:             req.Name,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		BasePrice:        req.BasePrice,
		CategoryID:       req.CategoryID,
		Brand:            req.Brand,
		SKUPrefix:        req.SKUPrefix,
		WeightGrams:      req.WeightGrams,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
		Tags:             req.Tags,
		Status:           req.Status,
		IsFeatured:       req.IsFeatured,
	}

	product, err := h.products.UpdateProduct(r.Context(), id.String(), patch)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"product": product})
}

// ArchiveProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) ArchiveProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "idOrSlug")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	if err := h.products.ArchiveProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProductOptions handles GET /api/v1/products/{productId}/options
func (h *ProductHandler) GetProductOptions(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "idOrSlug")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	opts, err := h.catalog.GetProductOptions(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, opts)
}

// CheckStock handles GET /api/v1/products/{productId}/stock
func (h *ProductHandler) CheckStock(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "idOrSlug")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	attrs := repository.AttributeFilter{
		Color:    queryStrPtr(r, "color"),
		Size:     queryStrPtr(r, "size"),
		Material: queryStrPtr(r, "material"),
	}

	check, err := h.catalog.CheckVariantStock(r.Context(), id.String(), attrs)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, check)
}

// --- Query parsing helpers ---

func filterFromQuery(r *http.Request) repository.ProductFilter {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		CategoryID:  queryStrPtr(r, "category_id"),
		Brand:       queryStrPtr(r, "brand"),
		Status:      queryStrPtr(r, "status"),
		Search:      queryStrPtr(r, "search"),
		InStockOnly: q.Get("in_stock_only") == "true",
	}

	if v := q.Get("is_featured"); v != "" {
		featured := v == "true"
		filter.IsFeatured = &featured
	}
	if v, err := strconv.ParseInt(q.Get("min_price"), 10, 64); err == nil {
		filter.MinPrice = &v
	}
	if v, err := strconv.ParseInt(q.Get("max_price"), 10, 64); err == nil {
		filter.MaxPrice = &v
	}
	if v := q.Get("colors"); v != "" {
		filter.Colors = splitCSV(v)
	}
	if v := q.Get("sizes"); v != "" {
		filter.Sizes = splitCSV(v)
	}

	page := pagination.FromRequest(r)
	filter.Page, filter.Limit = page.Page, page.Limit
	return filter
}

func queryStrPtr(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// filterEcho reflects the applied filters back to the client, omitting
// unset ones.
func filterEcho(f repository.ProductFilter) map[string]any {
	echo := map[string]any{}
	if f.CategoryID != nil {
		echo["category_id"] = *f.CategoryID
	}
	if f.Brand != nil {
		echo["brand"] = *f.Brand
	}
	if f.Status != nil {
		echo["status"] = *f.Status
	}
	if f.IsFeatured != nil {
		echo["is_featured"] = *f.IsFeatured
	}
	if f.Search != nil {
		echo["search"] = *f.Search
	}
	if f.MinPrice != nil {
		echo["min_price"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		echo["max_price"] = *f.MaxPrice
	}
	if len(f.Colors) > 0 {
		echo["colors"] = f.Colors
	}
	if len(f.Sizes) > 0 {
		echo["sizes"] = f.Sizes
	}
	if f.InStockOnly {
		echo["in_stock_only"] = true
	}
	return echo
}
