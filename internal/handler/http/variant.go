package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecomcore/catalog/internal/repository"
	"github.com/ecomcore/catalog/internal/service"
	"github.com/ecomcore/catalog/pkg/httputil"
	"github.com/ecomcore/catalog/pkg/validator"
)

// VariantHandler handles HTTP requests for variant endpoints.
type VariantHandler struct {
	variants *service.VariantService
	logger   *slog.Logger
}

// NewVariantHandler creates a new variant HTTP handler.
func NewVariantHandler(variants *service.VariantService, logger *slog.Logger) *VariantHandler {
	return &VariantHandler{
		variants: variants,
		logger:   logger,
	}
}

// UpdateVariantRequest is the JSON request body for a partial variant update.
// Stock is absent on purpose: it only moves through the stock endpoints.
type UpdateVariantRequest struct {
	Color         *string `json:"color"`
	Size          *string `json:"size"`
	Material      *string `json:"material"`
	Price         *int64  `json:"price" validate:"omitempty,gte=0"`
	CostPrice     *int64  `json:"cost_price" validate:"omitempty,gte=0"`
	MinStockAlert *int    `json:"min_stock_alert" validate:"omitempty,gte=0"`
	WeightGrams   *int    `json:"weight_grams"`
	Barcode       *string `json:"barcode"`
	SupplierSKU   *string `json:"supplier_sku"`
	IsDefault     *bool   `json:"is_default"`
	SortOrder     *int    `json:"sort_order"`
}

// ListVariants handles GET /api/v1/products/{productId}/variants
func (h *VariantHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "idOrSlug")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	variants, err := h.variants.ListVariants(r.Context(), id.String(), includeInactive)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"variants": variants})
}

// CreateVariant handles POST /api/v1/products/{productId}/variants
func (h *VariantHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "idOrSlug")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.CreateVariantInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	variant, err := h.variants.CreateVariant(r.Context(), id.String(), req)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"variant": variant})
}

// GetVariant handles GET /api/v1/variants/{id}
func (h *VariantHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	variant, err := h.variants.GetVariant(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"variant": variant})
}

// GetVariantBySKU handles GET /api/v1/variants/sku/{sku}
func (h *VariantHandler) GetVariantBySKU(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	variant, err := h.variants.GetVariantBySKU(r.Context(), sku)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"variant": variant})
}

// UpdateVariant handles PUT /api/v1/variants/{id}
func (h *VariantHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateVariantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	patch := repository.VariantPatch{
		Color:         req.Color,
		Size:          req.Size,
		Material:      req.Material,
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		MinStockAlert: req.MinStockAlert,
		WeightGrams:   req.WeightGrams,
		Barcode:       req.Barcode,
		SupplierSKU:   req.SupplierSKU,
		IsDefault:     req.IsDefault,
		SortOrder:     req.SortOrder,
	}

	variant, err := h.variants.UpdateVariant(r.Context(), id.String(), patch)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"variant": variant})
}

// DeleteVariant handles DELETE /api/v1/variants/{id}
func (h *VariantHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	if err := h.variants.DeleteVariant(r.Context(), id.String()); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
