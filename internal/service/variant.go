package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/repository"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
)

// OptionsInvalidator drops a product's cached option view after one of its
// variants changes. CatalogService satisfies it.
type OptionsInvalidator interface {
	InvalidateProductOptions(ctx context.Context, productID string)
}

// VariantService implements variant CRUD on top of the variant store.
type VariantService struct {
	products repository.ProductRepository
	variants repository.VariantRepository
	options  OptionsInvalidator
	logger   *slog.Logger
}

// NewVariantService creates a new variant service. options may be nil when no
// cache is configured.
func NewVariantService(
	products repository.ProductRepository,
	variants repository.VariantRepository,
	options OptionsInvalidator,
	logger *slog.Logger,
) *VariantService {
	return &VariantService{
		products: products,
		variants: variants,
		options:  options,
		logger:   logger,
	}
}

// CreateVariant adds a variant to an existing product. The attribute
// combination must be unique among the product's active variants.
func (s *VariantService) CreateVariant(ctx context.Context, productID string, input CreateVariantInput) (*domain.Variant, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	if product.Status == domain.ProductStatusArchived {
		return nil, apperrors.InvalidInput("cannot add variants to an archived product")
	}

	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must be non-negative")
	}

	sku := input.SKU
	if sku == "" {
		sku = domain.DeriveSKU(product.SKUPrefix, input.Color, input.Size, input.Material)
	}
	if sku == "" {
		return nil, apperrors.InvalidInput("variant needs a sku, a sku_prefix on the product, or at least one attribute")
	}

	exists, err := s.variants.ExistsByAttributes(ctx, productID, repository.AttributeFilter{
		Color:    input.Color,
		Size:     input.Size,
		Material: input.Material,
	})
	if err != nil {
		return nil, fmt.Errorf("check variant attributes: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("variant", "attributes", attributeLabel(input.Color, input.Size, input.Material))
	}

	now := time.Now().UTC()
	variant := domain.Variant{
		ID:            uuid.New().String(),
		ProductID:     productID,
		SKU:           sku,
		Color:         input.Color,
		Size:          input.Size,
		Material:      input.Material,
		Price:         input.Price,
		CostPrice:     input.CostPrice,
		Stock:         input.Stock,
		ReservedStock: 0,
		MinStockAlert: input.MinStockAlert,
		WeightGrams:   input.WeightGrams,
		Barcode:       input.Barcode,
		SupplierSKU:   input.SupplierSKU,
		IsActive:      true,
		IsDefault:     input.IsDefault != nil && *input.IsDefault,
		SortOrder:     input.SortOrder,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.variants.Create(ctx, &variant); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "variant created",
		slog.String("variant_id", variant.ID),
		slog.String("product_id", productID),
		slog.String("sku", variant.SKU),
	)

	s.invalidateOptions(ctx, productID)
	return &variant, nil
}

// GetVariant retrieves a variant by id.
func (s *VariantService) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	variant, err := s.variants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, fmt.Errorf("get variant %s: %w", id, err)
	}
	return variant, nil
}

// GetVariantBySKU retrieves a variant by its globally unique SKU.
func (s *VariantService) GetVariantBySKU(ctx context.Context, sku string) (*domain.Variant, error) {
	variant, err := s.variants.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("variant", sku)
		}
		return nil, fmt.Errorf("get variant by sku %s: %w", sku, err)
	}
	return variant, nil
}

// ListVariants returns a product's variants. includeInactive widens the list
// to soft-deleted variants for admin views.
func (s *VariantService) ListVariants(ctx context.Context, productID string, includeInactive bool) ([]domain.Variant, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}

	variants, err := s.variants.ListByProduct(ctx, productID, !includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list variants for product %s: %w", productID, err)
	}
	return variants, nil
}

// UpdateVariant applies a partial update. Stock fields are not updatable
// here; they move through the stock operations.
func (s *VariantService) UpdateVariant(ctx context.Context, id string, patch repository.VariantPatch) (*domain.Variant, error) {
	if patch.Price != nil && *patch.Price < 0 {
		return nil, apperrors.InvalidInput("price must be non-negative")
	}
	if patch.MinStockAlert != nil && *patch.MinStockAlert < 0 {
		return nil, apperrors.InvalidInput("min_stock_alert must be non-negative")
	}

	variant, err := s.variants.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.invalidateOptions(ctx, variant.ProductID)
	return variant, nil
}

// DeleteVariant soft-deletes a variant. Its SKU and reservation history
// remain, it just stops appearing in catalog views.
func (s *VariantService) DeleteVariant(ctx context.Context, id string) error {
	variant, err := s.variants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("variant", id)
		}
		return fmt.Errorf("get variant %s: %w", id, err)
	}

	if err := s.variants.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "variant deactivated", slog.String("variant_id", id))
	s.invalidateOptions(ctx, variant.ProductID)
	return nil
}

func (s *VariantService) invalidateOptions(ctx context.Context, productID string) {
	if s.options != nil {
		s.options.InvalidateProductOptions(ctx, productID)
	}
}

func attributeLabel(color, size, material *string) string {
	label := ""
	for _, attr := range []*string{color, size, material} {
		if attr == nil || *attr == "" {
			continue
		}
		if label != "" {
			label += "/"
		}
		label += *attr
	}
	if label == "" {
		return "none"
	}
	return label
}
