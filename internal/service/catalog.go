package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/repository"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
	"github.com/ecomcore/catalog/pkg/pagination"
)

// ProductListing is the assembled result of a catalog listing query.
type ProductListing struct {
	Products   []domain.ProductListItem
	Pagination pagination.Meta
}

// StockCheck is the result of a storefront stock query.
type StockCheck struct {
	Available bool               `json:"available"`
	Stock     int                `json:"stock"`
	Variant   *StockCheckVariant `json:"variant,omitempty"`
}

// StockCheckVariant identifies the variant that matched an exact attribute
// combination.
type StockCheckVariant struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	Price int64  `json:"price"`
}

// CatalogService implements read-side catalog queries.
type CatalogService struct {
	products repository.ProductRepository
	variants repository.VariantRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil, in which
// case option lookups always hit the database.
func NewCatalogService(
	products repository.ProductRepository,
	variants repository.VariantRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products: products,
		variants: variants,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ListProducts returns a page of catalog list items matching the filter.
// Without an explicit status filter only active products are returned.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductListing, error) {
	if filter.Status == nil {
		active := domain.ProductStatusActive
		filter.Status = &active
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items, err := s.assembleListItems(ctx, products)
	if err != nil {
		return nil, err
	}

	return &ProductListing{
		Products:   items,
		Pagination: pagination.NewMeta(filter.Page, filter.Limit, total),
	}, nil
}

// SearchProducts runs a text search over active, in-stock products.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, page, limit int) (*ProductListing, error) {
	if query == "" {
		return nil, apperrors.InvalidInput("search query must not be empty")
	}

	return s.ListProducts(ctx, repository.ProductFilter{
		Search:      &query,
		InStockOnly: true,
		Page:        page,
		Limit:       limit,
	})
}

// assembleListItems joins products with their variants and images in two
// batched queries instead of one round trip per product.
func (s *CatalogService) assembleListItems(ctx context.Context, products []domain.Product) ([]domain.ProductListItem, error) {
	items := make([]domain.ProductListItem, 0, len(products))
	if len(products) == 0 {
		return items, nil
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	variantsByProduct, err := s.variants.ListByProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	imagesByProduct, err := s.products.GetImagesByProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	for _, p := range products {
		detail := domain.NewProductDetail(p, variantsByProduct[p.ID], imagesByProduct[p.ID])
		items = append(items, detail.ListItem())
	}
	return items, nil
}

const optionsCacheKeyPrefix = "catalog:options:"

// GetProductOptions returns the selectable attribute matrix for a product.
// Results are served from Redis when a cache is configured.
func (s *CatalogService) GetProductOptions(ctx context.Context, productID string) (*domain.ProductOptions, error) {
	cacheKey := optionsCacheKeyPrefix + productID
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var opts domain.ProductOptions
			if err := json.Unmarshal(raw, &opts); err == nil {
				return &opts, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "options cache read failed",
				slog.String("key", cacheKey),
				slog.String("error", err.Error()),
			)
		}
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}

	variants, err := s.variants.ListByProduct(ctx, productID, true)
	if err != nil {
		return nil, fmt.Errorf("list variants for product %s: %w", productID, err)
	}

	opts := domain.BuildProductOptions(variants)

	if s.cache != nil {
		if raw, err := json.Marshal(opts); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "options cache write failed",
					slog.String("key", cacheKey),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return &opts, nil
}

// InvalidateProductOptions drops the cached options for a product after a
// variant mutation. Safe to call without a configured cache.
func (s *CatalogService) InvalidateProductOptions(ctx context.Context, productID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, optionsCacheKeyPrefix+productID).Err(); err != nil {
		s.logger.WarnContext(ctx, "options cache invalidation failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}

// CheckVariantStock answers a storefront availability query. With an exact
// attribute match the matching variant is identified; with a partial filter
// only the aggregate stock count is returned.
func (s *CatalogService) CheckVariantStock(ctx context.Context, productID string, attrs repository.AttributeFilter) (*StockCheck, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}

	stock, err := s.variants.CheckStock(ctx, productID, attrs)
	if err != nil {
		return nil, fmt.Errorf("check stock for product %s: %w", productID, err)
	}

	check := &StockCheck{
		Available: stock > 0,
		Stock:     stock,
	}

	variant, err := s.variants.FindByAttributes(ctx, productID, attrs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return check, nil
		}
		return nil, fmt.Errorf("find variant for product %s: %w", productID, err)
	}

	check.Variant = &StockCheckVariant{
		ID:    variant.ID,
		SKU:   variant.SKU,
		Price: variant.EffectivePrice(product.BasePrice),
	}
	return check, nil
}
