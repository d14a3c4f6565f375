package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/service"
	"github.com/ecomcore/catalog/pkg/httputil"
	"github.com/ecomcore/catalog/pkg/validator"
)

// StockHandler handles HTTP requests for the stock reservation endpoints.
type StockHandler struct {
	stock  *service.StockService
	logger *slog.Logger
}

// NewStockHandler creates a new stock HTTP handler.
func NewStockHandler(stock *service.StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		stock:  stock,
		logger: logger,
	}
}

// QuantityRequest is the JSON request body for reserve, release and fulfill.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// AdjustRequest is the JSON request body for a manual stock correction.
type AdjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// Reserve handles POST /api/v1/variants/{id}/reserve
func (h *StockHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.stock.Reserve)
}

// Release handles POST /api/v1/variants/{id}/release
func (h *StockHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.stock.Release)
}

// Fulfill handles POST /api/v1/variants/{id}/fulfill
func (h *StockHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.stock.Fulfill)
}

// Adjust handles POST /api/v1/variants/{id}/adjust
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AdjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	variant, err := h.stock.Adjust(r.Context(), id.String(), req.Delta)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	writeStockResult(w, variant)
}

func (h *StockHandler) quantityOp(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, variantID string, qty int) (*domain.Variant, error),
) {
	id, err := httputil.URLParamUUID(r, "id")
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req QuantityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	variant, err := op(r.Context(), id.String(), req.Quantity)
	if err != nil {
		httputil.WriteError(r.Context(), w, err)
		return
	}

	writeStockResult(w, variant)
}

func writeStockResult(w http.ResponseWriter, variant *domain.Variant) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"variant": variant,
		"stock": map[string]int{
			"stock":     variant.Stock,
			"reserved":  variant.ReservedStock,
			"available": variant.AvailableStock(),
		},
	})
}
