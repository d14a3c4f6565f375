package repository

import (
	"context"

	"github.com/ecomcore/catalog/internal/domain"
)

// ProductFilter defines filter criteria for listing products. All fields are
// optional and AND-combined.
type ProductFilter struct {
	CategoryID  *string
	Brand       *string
	Status      *string
	IsFeatured  *bool
	Search      *string
	MinPrice    *int64
	MaxPrice    *int64
	Colors      []string
	Sizes       []string
	InStockOnly bool
	Page        int
	Limit       int
}

// ProductPatch is a typed partial update for a product. Nil fields are left
// unchanged.
type ProductPatch struct {
	Name             *string
	Description      *string
	ShortDescription *string
	BasePrice        *int64
	CategoryID       *string
	Brand            *string
	SKUPrefix        *string
	WeightGrams      *int
	Dimensions       *domain.Dimensions
	MetaTitle        *string
	MetaDescription  *string
	Tags             []string
	Status           *string
	IsFeatured       *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.ShortDescription == nil &&
		p.BasePrice == nil && p.CategoryID == nil && p.Brand == nil &&
		p.SKUPrefix == nil && p.WeightGrams == nil && p.Dimensions == nil &&
		p.MetaTitle == nil && p.MetaDescription == nil && p.Tags == nil &&
		p.Status == nil && p.IsFeatured == nil
}

// VariantPatch is a typed partial update for a variant. Nil fields are left
// unchanged. Stock and ReservedStock are deliberately absent: stock moves
// only through the reservation operations and Adjust.
type VariantPatch struct {
	Color         *string
	Size          *string
	Material      *string
	Price         *int64
	CostPrice     *int64
	MinStockAlert *int
	WeightGrams   *int
	Barcode       *string
	SupplierSKU   *string
	IsDefault     *bool
	SortOrder     *int
}

// IsEmpty reports whether the patch changes nothing.
func (p VariantPatch) IsEmpty() bool {
	return p.Color == nil && p.Size == nil && p.Material == nil &&
		p.Price == nil && p.CostPrice == nil && p.MinStockAlert == nil &&
		p.WeightGrams == nil && p.Barcode == nil && p.SupplierSKU == nil &&
		p.IsDefault == nil && p.SortOrder == nil
}

// AttributeFilter selects variants by an optional attribute combination.
type AttributeFilter struct {
	Color    *string
	Size     *string
	Material *string
}

// ProductRepository defines product persistence operations.
type ProductRepository interface {
	// Create inserts a new product.
	Create(ctx context.Context, product *domain.Product) error

	// CreateWithVariants inserts a product and all its variants in one
	// transaction; nothing is written if any insert fails.
	CreateWithVariants(ctx context.Context, product *domain.Product, variants []domain.Variant) error

	// GetByID retrieves a product by id, regardless of status.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves an active product by its slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns products matching the filter with the total count of
	// distinct matching products.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update applies a partial update and returns the updated product.
	Update(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error)

	// Archive soft-deletes a product (status -> archived). Returns
	// ErrNotFound if no row changed.
	Archive(ctx context.Context, id string) error

	// GetImages returns a product's images ordered by sort_order.
	GetImages(ctx context.Context, productID string) ([]domain.ProductImage, error)

	// GetImagesByProducts returns images for many products in one query.
	GetImagesByProducts(ctx context.Context, productIDs []string) (map[string][]domain.ProductImage, error)

	// AddImage attaches an image record to a product.
	AddImage(ctx context.Context, image *domain.ProductImage) error
}

// VariantRepository defines variant persistence operations, including the
// atomic stock primitives.
type VariantRepository interface {
	// GetByID retrieves a variant by id.
	GetByID(ctx context.Context, id string) (*domain.Variant, error)

	// GetBySKU retrieves a variant by its globally unique SKU.
	GetBySKU(ctx context.Context, sku string) (*domain.Variant, error)

	// ListByProduct returns a product's variants ordered by sort_order then
	// creation time. When activeOnly is true, soft-deleted variants are
	// excluded.
	ListByProduct(ctx context.Context, productID string, activeOnly bool) ([]domain.Variant, error)

	// ListByProducts returns active variants for many products in one query.
	ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.Variant, error)

	// FindByAttributes returns the first active variant matching the exact
	// attribute combination, by creation order.
	FindByAttributes(ctx context.Context, productID string, attrs AttributeFilter) (*domain.Variant, error)

	// CheckStock sums available stock across active variants matching the
	// (possibly partial) attribute filter. Returns 0 when nothing matches.
	CheckStock(ctx context.Context, productID string, attrs AttributeFilter) (int, error)

	// ExistsByAttributes reports whether an active variant with the exact
	// attribute combination already exists for the product.
	ExistsByAttributes(ctx context.Context, productID string, attrs AttributeFilter) (bool, error)

	// Create inserts a new variant.
	Create(ctx context.Context, variant *domain.Variant) error

	// Update applies a partial update and returns the updated variant.
	Update(ctx context.Context, id string, patch VariantPatch) (*domain.Variant, error)

	// SoftDelete sets is_active=false. Idempotent: deleting an already
	// inactive variant is not an error.
	SoftDelete(ctx context.Context, id string) error

	// Reserve atomically increments reserved_stock by qty if enough stock is
	// available, returning the updated variant. Fails with
	// ErrInsufficientStock otherwise.
	Reserve(ctx context.Context, id string, qty int) (*domain.Variant, error)

	// Release atomically decrements reserved_stock by qty, clamping at zero.
	// The returned flag reports whether clamping occurred.
	Release(ctx context.Context, id string, qty int) (*domain.Variant, bool, error)

	// Fulfill atomically decrements both stock and reserved_stock by qty.
	// Fails with ErrInsufficientReservedStock if fewer than qty units are
	// reserved.
	Fulfill(ctx context.Context, id string, qty int) (*domain.Variant, error)

	// Adjust atomically adds delta to stock (delta may be negative). Fails
	// with ErrInvalidInput if the result would drop below reserved_stock.
	Adjust(ctx context.Context, id string, delta int) (*domain.Variant, error)
}
