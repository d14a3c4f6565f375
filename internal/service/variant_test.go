package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/repository"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
)

func newVariantService(products *mockProductRepository, variants *mockVariantRepository) *VariantService {
	return NewVariantService(products, variants, nil, newTestLogger())
}

func TestCreateVariant_Success(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{
		ID:        "prod-1",
		SKUPrefix: "TSH",
		Status:    domain.ProductStatusActive,
	}, nil)
	variants.On("ExistsByAttributes", ctx, "prod-1", repository.AttributeFilter{
		Color: strPtr("green"),
		Size:  strPtr("M"),
	}).Return(false, nil)
	variants.On("Create", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)

	variant, err := svc.CreateVariant(ctx, "prod-1", CreateVariantInput{
		Color: strPtr("green"),
		Size:  strPtr("M"),
		Stock: 12,
	})

	require.NoError(t, err)
	assert.Equal(t, "TSH-GREEN-M", variant.SKU)
	assert.True(t, variant.IsActive)
	assert.Equal(t, 12, variant.Stock)
	assert.Equal(t, 0, variant.ReservedStock)

	products.AssertExpectations(t)
	variants.AssertExpectations(t)
}

func TestCreateVariant_DuplicateAttributes(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{
		ID:        "prod-1",
		SKUPrefix: "TSH",
		Status:    domain.ProductStatusActive,
	}, nil)
	variants.On("ExistsByAttributes", ctx, "prod-1", mock.Anything).Return(true, nil)

	variant, err := svc.CreateVariant(ctx, "prod-1", CreateVariantInput{
		Color: strPtr("red"),
		Size:  strPtr("M"),
	})

	assert.Nil(t, variant)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	variants.AssertNotCalled(t, "Create")
}

func TestCreateVariant_ArchivedProduct(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{
		ID:     "prod-1",
		Status: domain.ProductStatusArchived,
	}, nil)

	variant, err := svc.CreateVariant(ctx, "prod-1", CreateVariantInput{
		Color: strPtr("red"),
	})

	assert.Nil(t, variant)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	variants.AssertNotCalled(t, "ExistsByAttributes")
}

func TestCreateVariant_ProductNotFound(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	products.On("GetByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	variant, err := svc.CreateVariant(ctx, "missing", CreateVariantInput{SKU: "X-1"})

	assert.Nil(t, variant)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetVariantBySKU_Success(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	expected := &domain.Variant{ID: "var-1", SKU: "TSH-RED-M", IsActive: true}
	variants.On("GetBySKU", ctx, "TSH-RED-M").Return(expected, nil)

	variant, err := svc.GetVariantBySKU(ctx, "TSH-RED-M")

	require.NoError(t, err)
	assert.Equal(t, expected, variant)
}

func TestListVariants_IncludeInactive(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{ID: "prod-1"}, nil)
	variants.On("ListByProduct", ctx, "prod-1", false).Return([]domain.Variant{
		{ID: "v1", IsActive: true},
		{ID: "v2", IsActive: false},
	}, nil)

	got, err := svc.ListVariants(ctx, "prod-1", true)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpdateVariant_NegativePrice(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	price := int64(-100)
	variant, err := svc.UpdateVariant(ctx, "var-1", repository.VariantPatch{Price: &price})

	assert.Nil(t, variant)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	variants.AssertNotCalled(t, "Update")
}

func TestDeleteVariant_Success(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	variants.On("GetByID", ctx, "var-1").Return(&domain.Variant{ID: "var-1", ProductID: "prod-1"}, nil)
	variants.On("SoftDelete", ctx, "var-1").Return(nil)

	err := svc.DeleteVariant(ctx, "var-1")

	require.NoError(t, err)
	variants.AssertExpectations(t)
}

func TestDeleteVariant_NotFound(t *testing.T) {
	products := new(mockProductRepository)
	variants := new(mockVariantRepository)
	svc := newVariantService(products, variants)
	ctx := context.Background()

	variants.On("GetByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	err := svc.DeleteVariant(ctx, "missing")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	variants.AssertNotCalled(t, "SoftDelete")
}

func TestVariantMutations_InvalidateCachedOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		products := new(mockProductRepository)
		variants := new(mockVariantRepository)
		options := new(mockOptionsInvalidator)
		svc := NewVariantService(products, variants, options, newTestLogger())

		products.On("GetByID", ctx, "prod-1").Return(&domain.Product{
			ID:        "prod-1",
			SKUPrefix: "TSH",
			Status:    domain.ProductStatusActive,
		}, nil)
		variants.On("ExistsByAttributes", ctx, "prod-1", mock.Anything).Return(false, nil)
		variants.On("Create", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)
		options.On("InvalidateProductOptions", ctx, "prod-1").Return()

		_, err := svc.CreateVariant(ctx, "prod-1", CreateVariantInput{Color: strPtr("green"), Stock: 5})

		require.NoError(t, err)
		options.AssertExpectations(t)
	})

	t.Run("update", func(t *testing.T) {
		products := new(mockProductRepository)
		variants := new(mockVariantRepository)
		options := new(mockOptionsInvalidator)
		svc := NewVariantService(products, variants, options, newTestLogger())

		price := int64(1999)
		variants.On("Update", ctx, "var-1", mock.Anything).Return(&domain.Variant{
			ID:        "var-1",
			ProductID: "prod-1",
			Price:     &price,
		}, nil)
		options.On("InvalidateProductOptions", ctx, "prod-1").Return()

		_, err := svc.UpdateVariant(ctx, "var-1", repository.VariantPatch{Price: &price})

		require.NoError(t, err)
		options.AssertExpectations(t)
	})

	t.Run("delete", func(t *testing.T) {
		products := new(mockProductRepository)
		variants := new(mockVariantRepository)
		options := new(mockOptionsInvalidator)
		svc := NewVariantService(products, variants, options, newTestLogger())

		variants.On("GetByID", ctx, "var-1").Return(&domain.Variant{ID: "var-1", ProductID: "prod-1"}, nil)
		variants.On("SoftDelete", ctx, "var-1").Return(nil)
		options.On("InvalidateProductOptions", ctx, "prod-1").Return()

		err := svc.DeleteVariant(ctx, "var-1")

		require.NoError(t, err)
		options.AssertExpectations(t)
	})

	t.Run("failed update does not invalidate", func(t *testing.T) {
		products := new(mockProductRepository)
		variants := new(mockVariantRepository)
		options := new(mockOptionsInvalidator)
		svc := NewVariantService(products, variants, options, newTestLogger())

		variants.On("Update", ctx, "missing", mock.Anything).Return(nil, apperrors.ErrNotFound)

		sort := 3
		_, err := svc.UpdateVariant(ctx, "missing", repository.VariantPatch{SortOrder: &sort})

		assert.Error(t, err)
		options.AssertNotCalled(t, "InvalidateProductOptions")
	})
}
