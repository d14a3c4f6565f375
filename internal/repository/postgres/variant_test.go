package postgres

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/repository"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
)

func errNoRows() error { return pgx.ErrNoRows }

var variantCols = []string{
	"id", "product_id", "sku", "color", "size", "material", "price", "cost_price",
	"stock", "reserved_stock", "min_stock_alert", "weight_grams", "barcode",
	"supplier_sku", "is_active", "is_default", "sort_order", "created_at", "updated_at",
}

func sampleVariant() domain.Variant {
	return domain.Variant{
		ID:            "var-1",
		ProductID:     "prod-1",
		SKU:           "TSH-RED-S",
		Color:         strPtr("red"),
		Size:          strPtr("S"),
		Stock:         5,
		ReservedStock: 0,
		MinStockAlert: 2,
		IsActive:      true,
		IsDefault:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func variantRow(v domain.Variant) []any {
	return []any{
		v.ID, v.ProductID, v.SKU, v.Color, v.Size, v.Material, v.Price, v.CostPrice,
		v.Stock, v.ReservedStock, v.MinStockAlert, v.WeightGrams, v.Barcode,
		v.SupplierSKU, v.IsActive, v.IsDefault, v.SortOrder, v.CreatedAt, v.UpdatedAt,
	}
}

func TestVariantRepository_GetBySKU_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM variants WHERE sku`).
		WithArgs("MISSING").
		WillReturnError(errNoRows())

	_, err := repo.GetBySKU(context.Background(), "MISSING")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_ListByProduct_ActiveOnly(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	mock.ExpectQuery(`SELECT .+ FROM variants WHERE product_id = \$1 AND is_active ORDER BY sort_order ASC, created_at ASC`).
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	variants, err := repo.ListByProduct(context.Background(), "prod-1", true)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "TSH-RED-S", variants[0].SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_CheckStock_PartialAttributes(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(GREATEST\(stock - reserved_stock, 0\)\), 0\)`).
		WithArgs("prod-1", "red").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(5))

	available, err := repo.CheckStock(context.Background(), "prod-1", repository.AttributeFilter{Color: strPtr("red")})
	require.NoError(t, err)
	assert.Equal(t, 5, available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_CheckStock_NoMatch(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`SELECT COALESCE`).
		WithArgs("prod-1", "red", "M").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(0))

	available, err := repo.CheckStock(context.Background(), "prod-1", repository.AttributeFilter{
		Color: strPtr("red"),
		Size:  strPtr("M"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_ExistsByAttributes(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("prod-1", strPtr("red"), strPtr("S"), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByAttributes(context.Background(), "prod-1", repository.AttributeFilter{
		Color: strPtr("red"),
		Size:  strPtr("S"),
	})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Create_AttributeConflict(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	mock.ExpectExec("INSERT INTO variants").
		WithArgs(
			v.ID, v.ProductID, v.SKU, v.Color, v.Size, v.Material, v.Price, v.CostPrice,
			v.Stock, v.ReservedStock, v.MinStockAlert, v.WeightGrams, v.Barcode, v.SupplierSKU,
			v.IsActive, v.IsDefault, v.SortOrder, v.CreatedAt, v.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint \"variants_active_attrs_idx\" (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &v)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_SoftDelete_Idempotent(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	// zero rows affected (already inactive) is still success
	mock.ExpectExec(`UPDATE variants SET is_active = false`).
		WithArgs(pgxmock.AnyArg(), "var-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.SoftDelete(context.Background(), "var-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Reserve_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	v.ReservedStock = 5

	mock.ExpectQuery(`UPDATE variants SET reserved_stock = reserved_stock \+ \$1`).
		WithArgs(5, pgxmock.AnyArg(), v.ID).
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	result, err := repo.Reserve(context.Background(), v.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, result.ReservedStock)
	assert.Equal(t, 0, result.AvailableStock())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Reserve_Insufficient(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	// conditional update matches no row, follow-up lookup shows the variant
	// exists with no available stock
	v := sampleVariant()
	v.Stock = 5
	v.ReservedStock = 5

	mock.ExpectQuery(`UPDATE variants SET reserved_stock = reserved_stock \+ \$1`).
		WithArgs(1, pgxmock.AnyArg(), v.ID).
		WillReturnError(errNoRows())
	mock.ExpectQuery(`SELECT .+ FROM variants WHERE id`).
		WithArgs(v.ID).
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	_, err := repo.Reserve(context.Background(), v.ID, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Reserve_StoreFailure(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`UPDATE variants SET reserved_stock = reserved_stock \+ \$1`).
		WithArgs(2, pgxmock.AnyArg(), "var-1").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.Reserve(context.Background(), "var-1", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Reserve_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`UPDATE variants SET reserved_stock = reserved_stock \+ \$1`).
		WithArgs(1, pgxmock.AnyArg(), "missing").
		WillReturnError(errNoRows())
	mock.ExpectQuery(`SELECT .+ FROM variants WHERE id`).
		WithArgs("missing").
		WillReturnError(errNoRows())

	_, err := repo.Reserve(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Release_Clamped(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	// releasing 3 when only 1 was reserved clamps at zero
	v := sampleVariant()
	v.ReservedStock = 0

	mock.ExpectQuery(`WITH prev AS`).
		WithArgs(3, pgxmock.AnyArg(), v.ID).
		WillReturnRows(
			pgxmock.NewRows(append(append([]string{}, variantCols...), "prev_reserved")).
				AddRow(append(variantRow(v), 1)...),
		)

	result, clamped, err := repo.Release(context.Background(), v.ID, 3)
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Equal(t, 0, result.ReservedStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Release_AtZeroIsNoop(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	v.ReservedStock = 0

	mock.ExpectQuery(`WITH prev AS`).
		WithArgs(2, pgxmock.AnyArg(), v.ID).
		WillReturnRows(
			pgxmock.NewRows(append(append([]string{}, variantCols...), "prev_reserved")).
				AddRow(append(variantRow(v), 0)...),
		)

	result, clamped, err := repo.Release(context.Background(), v.ID, 2)
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Equal(t, 0, result.ReservedStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Fulfill_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	// stock=5 reserved=5, fulfill 3 -> stock=2 reserved=2
	v := sampleVariant()
	v.Stock = 2
	v.ReservedStock = 2

	mock.ExpectQuery(`UPDATE variants SET stock = stock - \$1, reserved_stock = reserved_stock - \$1`).
		WithArgs(3, pgxmock.AnyArg(), v.ID).
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	result, err := repo.Fulfill(context.Background(), v.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stock)
	assert.Equal(t, 2, result.ReservedStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Fulfill_InsufficientReserved(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	v.ReservedStock = 1

	mock.ExpectQuery(`UPDATE variants SET stock = stock - \$1`).
		WithArgs(3, pgxmock.AnyArg(), v.ID).
		WillReturnError(errNoRows())
	mock.ExpectQuery(`SELECT .+ FROM variants WHERE id`).
		WithArgs(v.ID).
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	_, err := repo.Fulfill(context.Background(), v.ID, 3)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientReservedStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Adjust_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	v.Stock = 15

	mock.ExpectQuery(`UPDATE variants SET stock = stock \+ \$1`).
		WithArgs(10, pgxmock.AnyArg(), v.ID).
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	result, err := repo.Adjust(context.Background(), v.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, result.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Adjust_RefusesDropBelowReserved(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	v.Stock = 5
	v.ReservedStock = 4

	mock.ExpectQuery(`UPDATE variants SET stock = stock \+ \$1`).
		WithArgs(-3, pgxmock.AnyArg(), v.ID).
		WillReturnError(errNoRows())
	mock.ExpectQuery(`SELECT .+ FROM variants WHERE id`).
		WithArgs(v.ID).
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	_, err := repo.Adjust(context.Background(), v.ID, -3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_FindByAttributes(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariantRepository(mock)

	v := sampleVariant()
	mock.ExpectQuery(`SELECT .+ FROM variants WHERE product_id = \$1 AND is_active AND color = \$2 AND size = \$3`).
		WithArgs("prod-1", "red", "S").
		WillReturnRows(pgxmock.NewRows(variantCols).AddRow(variantRow(v)...))

	result, err := repo.FindByAttributes(context.Background(), "prod-1", repository.AttributeFilter{
		Color: strPtr("red"),
		Size:  strPtr("S"),
	})
	require.NoError(t, err)
	assert.Equal(t, v.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
