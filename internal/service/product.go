package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/event"
	"github.com/ecomcore/catalog/internal/repository"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
	"github.com/ecomcore/catalog/pkg/slug"
)

// CreateVariantInput carries the variant fields accepted on creation.
type CreateVariantInput struct {
	SKU           string  `json:"sku"`
	Color         *string `json:"color"`
	Size          *string `json:"size"`
	Material      *string `json:"material"`
	Price         *int64  `json:"price" validate:"omitempty,gte=0"`
	CostPrice     *int64  `json:"cost_price" validate:"omitempty,gte=0"`
	Stock         int     `json:"stock" validate:"gte=0"`
	MinStockAlert int     `json:"min_stock_alert" validate:"gte=0"`
	WeightGrams   *int    `json:"weight_grams"`
	Barcode       *string `json:"barcode"`
	SupplierSKU   *string `json:"supplier_sku"`
	IsDefault     *bool   `json:"is_default"`
	SortOrder     int     `json:"sort_order"`
}

// CreateImageInput carries an image record accepted on product creation.
type CreateImageInput struct {
	URL       string `json:"url" validate:"required,url"`
	AltText   string `json:"alt_text"`
	SortOrder int    `json:"sort_order"`
	IsPrimary bool   `json:"is_primary"`
}

// CreateProductInput carries the fields accepted when creating a product.
type CreateProductInput struct {
	Name             string               `json:"name" validate:"required,min=2,max=200"`
	Slug             string               `json:"slug"`
	Description      string               `json:"description"`
	ShortDescription string               `json:"short_description"`
	BasePrice        int64                `json:"base_price" validate:"gte=0"`
	CategoryID       *string              `json:"category_id" validate:"omitempty,uuid"`
	Brand            string               `json:"brand"`
	SKUPrefix        string               `json:"sku_prefix"`
	WeightGrams      *int                 `json:"weight_grams"`
	Dimensions       *domain.Dimensions   `json:"dimensions"`
	MetaTitle        string               `json:"meta_title"`
	MetaDescription  string               `json:"meta_description"`
	Tags             []string             `json:"tags"`
	Status           string               `json:"status" validate:"omitempty,oneof=active inactive draft archived"`
	IsFeatured       bool                 `json:"is_featured"`
	Variants         []CreateVariantInput `json:"variants" validate:"omitempty,dive"`
	Images           []CreateImageInput   `json:"images" validate:"omitempty,dive"`
}

// ProductService implements product aggregate operations.
type ProductService struct {
	products repository.ProductRepository
	variants repository.VariantRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	products repository.ProductRepository,
	variants repository.VariantRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		variants: variants,
		producer: producer,
		logger:   logger,
	}
}

// CreateProduct creates a product together with its nested variants in one
// transaction, then attaches any image records.
func (s *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.ProductDetail, error) {
	status := input.Status
	if status == "" {
		status = domain.ProductStatusActive
	}

	productSlug := input.Slug
	if productSlug == "" {
		productSlug = slug.Generate(input.Name)
	}
	if productSlug == "" {
		return nil, apperrors.InvalidInput("product name must contain at least one alphanumeric character")
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:               uuid.New().String(),
		Name:             input.Name,
		Slug:             productSlug,
		Description:      input.Description,
		ShortDescription: input.ShortDescription,
		BasePrice:        input.BasePrice,
		CategoryID:       input.CategoryID,
		Brand:            input.Brand,
		SKUPrefix:        input.SKUPrefix,
		WeightGrams:      input.WeightGrams,
		Dimensions:       input.Dimensions,
		MetaTitle:        input.MetaTitle,
		MetaDescription:  input.MetaDescription,
		Tags:             input.Tags,
		Status:           status,
		IsFeatured:       input.IsFeatured,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	variants, err := buildVariants(&product, input.Variants, now)
	if err != nil {
		return nil, err
	}

	if err := s.products.CreateWithVariants(ctx, &product, variants); err != nil {
		return nil, err
	}

	images := make([]domain.ProductImage, 0, len(input.Images))
	for i, in := range input.Images {
		img := domain.ProductImage{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			URL:       in.URL,
			AltText:   in.AltText,
			SortOrder: in.SortOrder,
			IsPrimary: in.IsPrimary || (i == 0 && !anyPrimary(input.Images)),
			CreatedAt: now,
		}
		if err := s.products.AddImage(ctx, &img); err != nil {
			s.logger.ErrorContext(ctx, "failed to attach product image",
				slog.String("product_id", product.ID),
				slog.String("url", in.URL),
				slog.String("error", err.Error()),
			)
			continue
		}
		images = append(images, img)
	}

	s.publishProduct(ctx, event.TopicProductCreated, &product)

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
		slog.Int("variants", len(variants)),
	)

	detail := domain.NewProductDetail(product, variants, images)
	return &detail, nil
}

func anyPrimary(images []CreateImageInput) bool {
	for _, img := range images {
		if img.IsPrimary {
			return true
		}
	}
	return false
}

// buildVariants materializes variant rows from creation input. The first
// variant becomes the default unless another is flagged explicitly.
func buildVariants(product *domain.Product, inputs []CreateVariantInput, now time.Time) ([]domain.Variant, error) {
	variants := make([]domain.Variant, 0, len(inputs))
	seenSKUs := make(map[string]struct{}, len(inputs))
	explicitDefault := false
	for _, in := range inputs {
		if in.IsDefault != nil && *in.IsDefault {
			explicitDefault = true
			break
		}
	}

	for i, in := range inputs {
		if in.Stock < 0 {
			return nil, apperrors.InvalidInput("variant stock must be non-negative")
		}

		sku := in.SKU
		if sku == "" {
			sku = domain.DeriveSKU(product.SKUPrefix, in.Color, in.Size, in.Material)
		}
		if sku == "" {
			return nil, apperrors.InvalidInput("variant needs a sku, a sku_prefix on the product, or at least one attribute")
		}
		if _, dup := seenSKUs[sku]; dup {
			return nil, apperrors.Conflict("variant", "sku", sku)
		}
		seenSKUs[sku] = struct{}{}

		isDefault := i == 0 && !explicitDefault
		if in.IsDefault != nil {
			isDefault = *in.IsDefault
		}

		sortOrder := in.SortOrder
		if sortOrder == 0 {
			sortOrder = i
		}

		variants = append(variants, domain.Variant{
			ID:            uuid.New().String(),
			ProductID:     product.ID,
			SKU:           sku,
			Color:         in.Color,
			Size:          in.Size,
			Material:      in.Material,
			Price:         in.Price,
			CostPrice:     in.CostPrice,
			Stock:         in.Stock,
			ReservedStock: 0,
			MinStockAlert: in.MinStockAlert,
			WeightGrams:   in.WeightGrams,
			Barcode:       in.Barcode,
			SupplierSKU:   in.SupplierSKU,
			IsActive:      true,
			IsDefault:     isDefault,
			SortOrder:     sortOrder,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	return variants, nil
}

// GetProduct resolves a product by UUID or slug and assembles the full
// aggregate view. Slug resolution only sees active products.
func (s *ProductService) GetProduct(ctx context.Context, idOrSlug string) (*domain.ProductDetail, error) {
	var (
		product *domain.Product
		err     error
	)

	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = s.products.GetByID(ctx, idOrSlug)
	} else {
		product, err = s.products.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", idOrSlug)
		}
		return nil, fmt.Errorf("get product %s: %w", idOrSlug, err)
	}

	variants, err := s.variants.ListByProduct(ctx, product.ID, true)
	if err != nil {
		return nil, fmt.Errorf("get product %s variants: %w", product.ID, err)
	}

	images, err := s.products.GetImages(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("get product %s images: %w", product.ID, err)
	}

	detail := domain.NewProductDetail(*product, variants, images)
	return &detail, nil
}

// UpdateProduct applies a partial update. Status changes are validated
// against the product state machine; an archived product never leaves that
// state.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch repository.ProductPatch) (*domain.Product, error) {
	if patch.BasePrice != nil && *patch.BasePrice < 0 {
		return nil, apperrors.InvalidInput("base_price must be non-negative")
	}

	if patch.Status != nil {
		if !domain.IsValidStatus(*patch.Status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *patch.Status))
		}

		current, err := s.products.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("product", id)
			}
			return nil, fmt.Errorf("get product %s: %w", id, err)
		}
		if !domain.CanTransition(current.Status, *patch.Status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf(
				"cannot change product status from %s to %s", current.Status, *patch.Status,
			))
		}
	}

	updated, err := s.products.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.publishProduct(ctx, event.TopicProductUpdated, updated)

	return updated, nil
}

// ArchiveProduct soft-deletes a product. Archiving an already archived
// product succeeds without effect.
func (s *ProductService) ArchiveProduct(ctx context.Context, id string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("product", id)
		}
		return fmt.Errorf("get product %s: %w", id, err)
	}

	if product.Status == domain.ProductStatusArchived {
		return nil
	}

	if err := s.products.Archive(ctx, id); err != nil {
		return err
	}

	product.Status = domain.ProductStatusArchived
	s.publishProduct(ctx, event.TopicProductArchived, product)

	s.logger.InfoContext(ctx, "product archived", slog.String("product_id", id))
	return nil
}

// publishProduct publishes a product lifecycle event. Publish failures are
// logged, never surfaced: the mutation already committed.
func (s *ProductService) publishProduct(ctx context.Context, topic string, product *domain.Product) {
	if err := s.producer.PublishProductEvent(ctx, topic, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product event",
			slog.String("topic", topic),
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
}
