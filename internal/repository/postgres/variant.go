package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/repository"
	"github.com/ecomcore/catalog/pkg/database"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
)

const variantColumns = `id, product_id, sku, color, size, material, price, cost_price, stock, reserved_stock,
	min_stock_alert, weight_grams, barcode, supplier_sku, is_active, is_default, sort_order, created_at, updated_at`

// VariantRepository implements repository.VariantRepository using PostgreSQL.
// The four stock operations are single conditional UPDATE statements: the
// precondition lives in the WHERE clause, so two racing calls can never both
// pass a check that only holds for one of them.
type VariantRepository struct {
	db database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(db database.DBTX) *VariantRepository {
	return &VariantRepository{db: db}
}

// GetByID retrieves a variant by its ID.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	query := fmt.Sprintf(`SELECT %s FROM variants WHERE id = $1`, variantColumns)
	return r.scanVariant(ctx, query, id)
}

// GetBySKU retrieves a variant by its globally unique SKU.
func (r *VariantRepository) GetBySKU(ctx context.Context, sku string) (*domain.Variant, error) {
	query := fmt.Sprintf(`SELECT %s FROM variants WHERE sku = $1`, variantColumns)
	return r.scanVariant(ctx, query, sku)
}

// ListByProduct returns a product's variants ordered by sort_order then
// creation time.
func (r *VariantRepository) ListByProduct(ctx context.Context, productID string, activeOnly bool) ([]domain.Variant, error) {
	query := fmt.Sprintf(`SELECT %s FROM variants WHERE product_id = $1`, variantColumns)
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Sprintf("list variants for product %s", productID), err)
	}
	defer rows.Close()

	return collectVariants(rows)
}

// ListByProducts returns active variants for many products in one query,
// keyed by product id.
func (r *VariantRepository) ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.Variant, error) {
	result := make(map[string][]domain.Variant, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM variants
		WHERE product_id = ANY($1) AND is_active
		ORDER BY sort_order ASC, created_at ASC`, variantColumns)

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, apperrors.Persistence("list variants for products", err)
	}
	defer rows.Close()

	variants, err := collectVariants(rows)
	if err != nil {
		return nil, err
	}

	for _, v := range variants {
		result[v.ProductID] = append(result[v.ProductID], v)
	}
	return result, nil
}

// attributeConditions appends WHERE fragments for the provided attributes,
// returning the updated args and next placeholder index.
func attributeConditions(attrs repository.AttributeFilter, args []any, argIndex int) ([]string, []any, int) {
	var conditions []string
	if attrs.Color != nil {
		conditions = append(conditions, fmt.Sprintf("color = $%d", argIndex))
		args = append(args, *attrs.Color)
		argIndex++
	}
	if attrs.Size != nil {
		conditions = append(conditions, fmt.Sprintf("size = $%d", argIndex))
		args = append(args, *attrs.Size)
		argIndex++
	}
	if attrs.Material != nil {
		conditions = append(conditions, fmt.Sprintf("material = $%d", argIndex))
		args = append(args, *attrs.Material)
		argIndex++
	}
	return conditions, args, argIndex
}

// FindByAttributes returns the first active variant matching the given
// attribute filter, by creation order.
func (r *VariantRepository) FindByAttributes(ctx context.Context, productID string, attrs repository.AttributeFilter) (*domain.Variant, error) {
	args := []any{productID}
	conditions, args, _ := attributeConditions(attrs, args, 2)

	where := "product_id = $1 AND is_active"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM variants
		WHERE %s
		ORDER BY created_at ASC
		LIMIT 1`, variantColumns, where)

	return r.scanVariant(ctx, query, args...)
}

// CheckStock sums available stock across active variants matching the
// (possibly partial) attribute filter. Returns 0 when nothing matches,
// never a negative number.
func (r *VariantRepository) CheckStock(ctx context.Context, productID string, attrs repository.AttributeFilter) (int, error) {
	args := []any{productID}
	conditions, args, _ := attributeConditions(attrs, args, 2)

	where := "product_id = $1 AND is_active"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(GREATEST(stock - reserved_stock, 0)), 0)
		FROM variants
		WHERE %s`, where)

	var available int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&available); err != nil {
		return 0, apperrors.Persistence(fmt.Sprintf("check stock for product %s", productID), err)
	}
	return available, nil
}

// ExistsByAttributes reports whether an active variant with the exact
// attribute combination already exists for the product. Absent attributes
// must match NULL, hence IS NOT DISTINCT FROM.
func (r *VariantRepository) ExistsByAttributes(ctx context.Context, productID string, attrs repository.AttributeFilter) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM variants
			WHERE product_id = $1 AND is_active
			  AND color IS NOT DISTINCT FROM $2
			  AND size IS NOT DISTINCT FROM $3
			  AND material IS NOT DISTINCT FROM $4
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, productID, attrs.Color, attrs.Size, attrs.Material).Scan(&exists); err != nil {
		return false, apperrors.Persistence(fmt.Sprintf("check variant attributes for product %s", productID), err)
	}
	return exists, nil
}

// Create inserts a new variant.
func (r *VariantRepository) Create(ctx context.Context, v *domain.Variant) error {
	return insertVariant(ctx, r.db, v)
}

func insertVariant(ctx context.Context, db executor, v *domain.Variant) error {
	query := `
		INSERT INTO variants (id, product_id, sku, color, size, material, price, cost_price, stock, reserved_stock,
			min_stock_alert, weight_grams, barcode, supplier_sku, is_active, is_default, sort_order,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := db.Exec(ctx, query,
		v.ID, v.ProductID, v.SKU, v.Color, v.Size, v.Material, v.Price, v.CostPrice,
		v.Stock, v.ReservedStock, v.MinStockAlert, v.WeightGrams, v.Barcode, v.SupplierSKU,
		v.IsActive, v.IsDefault, v.SortOrder, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "variants_active_attrs") {
				return apperrors.Conflict("variant", "attributes", attributeKey(v))
			}
			return apperrors.Conflict("variant", "sku", v.SKU)
		}
		return apperrors.Persistence("insert variant", err)
	}

	return nil
}

func attributeKey(v *domain.Variant) string {
	parts := make([]string, 0, 3)
	for _, attr := range []*string{v.Color, v.Size, v.Material} {
		if attr != nil && *attr != "" {
			parts = append(parts, *attr)
		}
	}
	return strings.Join(parts, "/")
}

// Update applies a partial update and returns the updated variant.
func (r *VariantRepository) Update(ctx context.Context, id string, patch repository.VariantPatch) (*domain.Variant, error) {
	var (
		sets     []string
		args     []any
		argIndex = 1
	)

	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if patch.Color != nil {
		set("color", *patch.Color)
	}
	if patch.Size != nil {
		set("size", *patch.Size)
	}
	if patch.Material != nil {
		set("material", *patch.Material)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.CostPrice != nil {
		set("cost_price", *patch.CostPrice)
	}
	if patch.MinStockAlert != nil {
		set("min_stock_alert", *patch.MinStockAlert)
	}
	if patch.WeightGrams != nil {
		set("weight_grams", *patch.WeightGrams)
	}
	if patch.Barcode != nil {
		set("barcode", *patch.Barcode)
	}
	if patch.SupplierSKU != nil {
		set("supplier_sku", *patch.SupplierSKU)
	}
	if patch.IsDefault != nil {
		set("is_default", *patch.IsDefault)
	}
	if patch.SortOrder != nil {
		set("sort_order", *patch.SortOrder)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	set("updated_at", time.Now().UTC())

	query := fmt.Sprintf(`
		UPDATE variants
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(sets, ", "), argIndex, variantColumns,
	)
	args = append(args, id)

	v, err := scanVariantRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", id)
		}
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("variant", "attributes", id)
		}
		return nil, apperrors.Persistence("update variant", err)
	}

	return v, nil
}

// SoftDelete sets is_active=false. Deleting an already inactive or missing
// variant is not an error.
func (r *VariantRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE variants SET is_active = false, updated_at = $1 WHERE id = $2 AND is_active`

	if _, err := r.db.Exec(ctx, query, time.Now().UTC(), id); err != nil {
		return apperrors.Persistence(fmt.Sprintf("soft delete variant %s", id), err)
	}
	return nil
}

// Reserve atomically increments reserved_stock by qty if enough stock is
// available. The availability check sits in the WHERE clause of the UPDATE,
// so concurrent reservations racing for the last units serialize on the row
// and at most one can claim them.
func (r *VariantRepository) Reserve(ctx context.Context, id string, qty int) (*domain.Variant, error) {
	query := fmt.Sprintf(`
		UPDATE variants
		SET reserved_stock = reserved_stock + $1, updated_at = $2
		WHERE id = $3 AND is_active AND stock - reserved_stock >= $1
		RETURNING %s`, variantColumns)

	v, err := scanVariantRow(r.db.QueryRow(ctx, query, qty, time.Now().UTC(), id))
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Persistence(fmt.Sprintf("reserve stock for variant %s", id), err)
	}

	// Condition failed: distinguish a missing variant from insufficient stock.
	current, lookupErr := r.GetByID(ctx, id)
	if lookupErr != nil {
		if errors.Is(lookupErr, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, lookupErr
	}
	if !current.IsActive {
		return nil, apperrors.NotFound("variant", id)
	}
	return nil, apperrors.InsufficientStock(id, qty, current.AvailableStock())
}

// Release atomically decrements reserved_stock by qty, clamping at zero.
// The CTE locks the row and carries the prior reserved_stock out so the
// caller learns whether the release was clamped.
func (r *VariantRepository) Release(ctx context.Context, id string, qty int) (*domain.Variant, bool, error) {
	query := `
		WITH prev AS (
			SELECT id, reserved_stock FROM variants WHERE id = $3 FOR UPDATE
		)
		UPDATE variants
		SET reserved_stock = GREATEST(variants.reserved_stock - $1, 0), updated_at = $2
		FROM prev
		WHERE variants.id = prev.id
		RETURNING variants.id, variants.product_id, variants.sku, variants.color, variants.size, variants.material,
			variants.price, variants.cost_price, variants.stock, variants.reserved_stock, variants.min_stock_alert,
			variants.weight_grams, variants.barcode, variants.supplier_sku, variants.is_active, variants.is_default,
			variants.sort_order, variants.created_at, variants.updated_at, prev.reserved_stock`

	var (
		v            domain.Variant
		prevReserved int
	)
	err := r.db.QueryRow(ctx, query, qty, time.Now().UTC(), id).Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Color, &v.Size, &v.Material,
		&v.Price, &v.CostPrice, &v.Stock, &v.ReservedStock, &v.MinStockAlert,
		&v.WeightGrams, &v.Barcode, &v.SupplierSKU, &v.IsActive, &v.IsDefault,
		&v.SortOrder, &v.CreatedAt, &v.UpdatedAt, &prevReserved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperrors.NotFound("variant", id)
		}
		return nil, false, apperrors.Persistence(fmt.Sprintf("release stock for variant %s", id), err)
	}

	clamped := prevReserved < qty
	return &v, clamped, nil
}

// Fulfill atomically converts a reservation into a permanent stock deduction.
func (r *VariantRepository) Fulfill(ctx context.Context, id string, qty int) (*domain.Variant, error) {
	query := fmt.Sprintf(`
		UPDATE variants
		SET stock = stock - $1, reserved_stock = reserved_stock - $1, updated_at = $2
		WHERE id = $3 AND reserved_stock >= $1
		RETURNING %s`, variantColumns)

	v, err := scanVariantRow(r.db.QueryRow(ctx, query, qty, time.Now().UTC(), id))
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Persistence(fmt.Sprintf("fulfill stock for variant %s", id), err)
	}

	current, lookupErr := r.GetByID(ctx, id)
	if lookupErr != nil {
		if errors.Is(lookupErr, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, lookupErr
	}
	return nil, apperrors.InsufficientReservedStock(id, qty, current.ReservedStock)
}

// Adjust atomically adds delta to stock (delta may be negative). The guard
// keeps stock at or above reserved_stock, so existing reservations stay
// backed by real units.
func (r *VariantRepository) Adjust(ctx context.Context, id string, delta int) (*domain.Variant, error) {
	query := fmt.Sprintf(`
		UPDATE variants
		SET stock = stock + $1, updated_at = $2
		WHERE id = $3 AND stock + $1 >= reserved_stock AND stock + $1 >= 0
		RETURNING %s`, variantColumns)

	v, err := scanVariantRow(r.db.QueryRow(ctx, query, delta, time.Now().UTC(), id))
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Persistence(fmt.Sprintf("adjust stock for variant %s", id), err)
	}

	current, lookupErr := r.GetByID(ctx, id)
	if lookupErr != nil {
		if errors.Is(lookupErr, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, lookupErr
	}
	return nil, apperrors.InvalidInput(fmt.Sprintf(
		"stock adjustment %+d would drop variant %s below its reserved stock (stock %d, reserved %d)",
		delta, id, current.Stock, current.ReservedStock,
	))
}

func (r *VariantRepository) scanVariant(ctx context.Context, query string, args ...any) (*domain.Variant, error) {
	v, err := scanVariantRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Persistence("scan variant", err)
	}
	return v, nil
}

func scanVariantRow(row pgx.Row) (*domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Color, &v.Size, &v.Material,
		&v.Price, &v.CostPrice, &v.Stock, &v.ReservedStock, &v.MinStockAlert,
		&v.WeightGrams, &v.Barcode, &v.SupplierSKU, &v.IsActive, &v.IsDefault,
		&v.SortOrder, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVariants(rows pgx.Rows) ([]domain.Variant, error) {
	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(
			&v.ID, &v.ProductID, &v.SKU, &v.Color, &v.Size, &v.Material,
			&v.Price, &v.CostPrice, &v.Stock, &v.ReservedStock, &v.MinStockAlert,
			&v.WeightGrams, &v.Barcode, &v.SupplierSKU, &v.IsActive, &v.IsDefault,
			&v.SortOrder, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, apperrors.Persistence("scan variant row", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate variant rows", err)
	}
	if variants == nil {
		variants = []domain.Variant{}
	}
	return variants, nil
}
