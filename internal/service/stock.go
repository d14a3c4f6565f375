package service

import (
	"context"
	"log/slog"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/event"
	"github.com/ecomcore/catalog/internal/repository"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
)

// StockService implements the reservation protocol on top of the atomic
// repository primitives.
type StockService struct {
	variants repository.VariantRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewStockService creates a new stock service.
func NewStockService(
	variants repository.VariantRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *StockService {
	return &StockService{
		variants: variants,
		producer: producer,
		logger:   logger,
	}
}

// Reserve holds qty units of a variant for a pending order. Available stock
// must cover the request.
func (s *StockService) Reserve(ctx context.Context, variantID string, qty int) (*domain.Variant, error) {
	if qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	variant, err := s.variants.Reserve(ctx, variantID, qty)
	if err != nil {
		return nil, err
	}

	s.publishStock(ctx, event.TopicStockReserved, variant, qty)
	s.checkLowStock(ctx, variant)

	return variant, nil
}

// Release returns qty reserved units to available stock, for example when an
// order is canceled. Releasing more than is reserved clamps at zero rather
// than failing, so a duplicate cancellation event stays harmless.
func (s *StockService) Release(ctx context.Context, variantID string, qty int) (*domain.Variant, error) {
	if qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	variant, clamped, err := s.variants.Release(ctx, variantID, qty)
	if err != nil {
		return nil, err
	}
	if clamped {
		s.logger.WarnContext(ctx, "release clamped reserved stock at zero",
			slog.String("variant_id", variantID),
			slog.Int("quantity", qty),
		)
	}

	s.publishStock(ctx, event.TopicStockReleased, variant, qty)

	return variant, nil
}

// Fulfill consumes qty reserved units when an order ships, decrementing both
// stock and the reservation together.
func (s *StockService) Fulfill(ctx context.Context, variantID string, qty int) (*domain.Variant, error) {
	if qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	variant, err := s.variants.Fulfill(ctx, variantID, qty)
	if err != nil {
		return nil, err
	}

	s.publishStock(ctx, event.TopicStockFulfilled, variant, qty)
	s.checkLowStock(ctx, variant)

	return variant, nil
}

// Adjust applies a manual stock correction. Delta may be negative but can
// never cut into reserved units.
func (s *StockService) Adjust(ctx context.Context, variantID string, delta int) (*domain.Variant, error) {
	if delta == 0 {
		return nil, apperrors.InvalidInput("delta must be non-zero")
	}

	variant, err := s.variants.Adjust(ctx, variantID, delta)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("variant_id", variantID),
		slog.String("sku", variant.SKU),
		slog.Int("delta", delta),
		slog.Int("stock", variant.Stock),
	)

	s.publishStock(ctx, event.TopicStockAdjusted, variant, delta)
	s.checkLowStock(ctx, variant)

	return variant, nil
}

// checkLowStock emits a stock.low signal when available stock has dropped to
// or below the variant's alert threshold.
func (s *StockService) checkLowStock(ctx context.Context, variant *domain.Variant) {
	if variant.MinStockAlert <= 0 || variant.AvailableStock() > variant.MinStockAlert {
		return
	}

	s.logger.WarnContext(ctx, "variant stock low",
		slog.String("variant_id", variant.ID),
		slog.String("sku", variant.SKU),
		slog.Int("available", variant.AvailableStock()),
		slog.Int("threshold", variant.MinStockAlert),
	)

	if err := s.producer.PublishLowStock(ctx, variant); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish low stock event",
			slog.String("variant_id", variant.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *StockService) publishStock(ctx context.Context, topic string, variant *domain.Variant, qty int) {
	if err := s.producer.PublishStockEvent(ctx, topic, variant, qty); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock event",
			slog.String("topic", topic),
			slog.String("variant_id", variant.ID),
			slog.String("error", err.Error()),
		)
	}
}
