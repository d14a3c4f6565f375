package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/event"
	"github.com/ecomcore/catalog/internal/repository"
	pkgkafka "github.com/ecomcore/catalog/pkg/kafka"
)

// --- Mock ProductRepository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) CreateWithVariants(ctx context.Context, product *domain.Product, variants []domain.Variant) error {
	args := m.Called(ctx, product, variants)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, id string, patch repository.ProductPatch) (*domain.Product, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) Archive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) GetImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.ProductImage), args.Error(1)
}

func (m *mockProductRepository) GetImagesByProducts(ctx context.Context, productIDs []string) (map[string][]domain.ProductImage, error) {
	args := m.Called(ctx, productIDs)
	return args.Get(0).(map[string][]domain.ProductImage), args.Error(1)
}

func (m *mockProductRepository) AddImage(ctx context.Context, image *domain.ProductImage) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

// --- Mock VariantRepository ---

type mockVariantRepository struct {
	mock.Mock
}

func (m *mockVariantRepository) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) GetBySKU(ctx context.Context, sku string) (*domain.Variant, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) ListByProduct(ctx context.Context, productID string, activeOnly bool) ([]domain.Variant, error) {
	args := m.Called(ctx, productID, activeOnly)
	return args.Get(0).([]domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.Variant, error) {
	args := m.Called(ctx, productIDs)
	return args.Get(0).(map[string][]domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) FindByAttributes(ctx context.Context, productID string, attrs repository.AttributeFilter) (*domain.Variant, error) {
	args := m.Called(ctx, productID, attrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) CheckStock(ctx context.Context, productID string, attrs repository.AttributeFilter) (int, error) {
	args := m.Called(ctx, productID, attrs)
	return args.Int(0), args.Error(1)
}

func (m *mockVariantRepository) ExistsByAttributes(ctx context.Context, productID string, attrs repository.AttributeFilter) (bool, error) {
	args := m.Called(ctx, productID, attrs)
	return args.Bool(0), args.Error(1)
}

func (m *mockVariantRepository) Create(ctx context.Context, variant *domain.Variant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *mockVariantRepository) Update(ctx context.Context, id string, patch repository.VariantPatch) (*domain.Variant, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockVariantRepository) Reserve(ctx context.Context, id string, qty int) (*domain.Variant, error) {
	args := m.Called(ctx, id, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) Release(ctx context.Context, id string, qty int) (*domain.Variant, bool, error) {
	args := m.Called(ctx, id, qty)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Variant), args.Bool(1), args.Error(2)
}

func (m *mockVariantRepository) Fulfill(ctx context.Context, id string, qty int) (*domain.Variant, error) {
	args := m.Called(ctx, id, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) Adjust(ctx context.Context, id string, delta int) (*domain.Variant, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

type mockOptionsInvalidator struct {
	mock.Mock
}

func (m *mockOptionsInvalidator) InvalidateProductOptions(ctx context.Context, productID string) {
	m.Called(ctx, productID)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer builds a producer against an unreachable broker. Publish
// failures are logged and ignored by the services, so tests stay green.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
