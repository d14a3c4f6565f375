package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ecomcore/catalog/internal/domain"
	"github.com/ecomcore/catalog/internal/repository"
	"github.com/ecomcore/catalog/pkg/database"
	apperrors "github.com/ecomcore/catalog/pkg/errors"
)

// executor is the query surface shared by database.DBTX and pgx.Tx, so
// inserts can run either standalone or inside a transaction.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const productColumns = `id, name, slug, description, short_description, base_price, category_id, brand,
		sku_prefix, weight_grams, dimensions, meta_title, meta_description, tags, status, is_featured,
		created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return insertProduct(ctx, r.db, p)
}

// CreateWithVariants inserts a product and all its variants in a single
// transaction. Nothing is written if any insert fails.
func (r *ProductRepository) CreateWithVariants(ctx context.Context, p *domain.Product, variants []domain.Variant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperrors.Persistence("begin create product tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertProduct(ctx, tx, p); err != nil {
		return err
	}

	for i := range variants {
		if err := insertVariant(ctx, tx, &variants[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Persistence("commit create product tx", err)
	}

	return nil
}

func insertProduct(ctx context.Context, db executor, p *domain.Product) error {
	dimensionsJSON, err := marshalDimensions(p.Dimensions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, name, slug, description, short_description, base_price, category_id, brand,
			sku_prefix, weight_grams, dimensions, meta_title, meta_description, tags, status, is_featured,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.ShortDescription,
		p.BasePrice,
		p.CategoryID,
		p.Brand,
		p.SKUPrefix,
		p.WeightGrams,
		dimensionsJSON,
		p.MetaTitle,
		p.MetaDescription,
		p.Tags,
		p.Status,
		p.IsFeatured,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("product", "slug", p.Slug)
		}
		return apperrors.Persistence("insert product", err)
	}

	return nil
}

// GetByID retrieves a product by its ID, regardless of status.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.scanProduct(ctx, query, id)
}

// GetBySlug retrieves an active product by its slug. Slug lookups serve
// public storefront URLs, so non-active products are invisible here.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE slug = $1 AND status = 'active'`, productColumns)
	return r.scanProduct(ctx, query, slug)
}

// List returns products matching the given filter with the total count of
// distinct matching products. Count and page rows come from the same
// statement via count(*) OVER().
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Brand != nil {
		conditions = append(conditions, fmt.Sprintf("brand ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Brand+"%")
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.IsFeatured != nil {
		conditions = append(conditions, fmt.Sprintf("is_featured = $%d", argIndex))
		args = append(args, *filter.IsFeatured)
		argIndex++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("base_price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("base_price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	// Variant-level predicates share one EXISTS subquery: when both an
	// attribute set and in_stock_only are given, the same variant must
	// satisfy all of them.
	var variantConds []string
	if len(filter.Colors) > 0 {
		variantConds = append(variantConds, fmt.Sprintf("v.color = ANY($%d)", argIndex))
		args = append(args, filter.Colors)
		argIndex++
	}
	if len(filter.Sizes) > 0 {
		variantConds = append(variantConds, fmt.Sprintf("v.size = ANY($%d)", argIndex))
		args = append(args, filter.Sizes)
		argIndex++
	}
	if filter.InStockOnly {
		variantConds = append(variantConds, "v.stock - v.reserved_stock > 0")
	}
	if len(variantConds) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM variants v WHERE v.product_id = products.id AND v.is_active AND %s)",
			strings.Join(variantConds, " AND "),
		))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY is_featured DESC, created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Persistence("list products", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var (
			p              domain.Product
			dimensionsJSON []byte
		)

		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription,
			&p.BasePrice, &p.CategoryID, &p.Brand, &p.SKUPrefix, &p.WeightGrams,
			&dimensionsJSON, &p.MetaTitle, &p.MetaDescription, &p.Tags,
			&p.Status, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, apperrors.Persistence("scan product row", err)
		}

		if err := unmarshalDimensions(dimensionsJSON, &p); err != nil {
			return nil, 0, err
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Persistence("iterate product rows", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// Update applies a partial update and returns the updated product. Only
// fields present in the patch are written; slug never changes.
func (r *ProductRepository) Update(ctx context.Context, id string, patch repository.ProductPatch) (*domain.Product, error) {
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

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.ShortDescription != nil {
		set("short_description", *patch.ShortDescription)
	}
	if patch.BasePrice != nil {
		set("base_price", *patch.BasePrice)
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.Brand != nil {
		set("brand", *patch.Brand)
	}
	if patch.SKUPrefix != nil {
		set("sku_prefix", *patch.SKUPrefix)
	}
	if patch.WeightGrams != nil {
		set("weight_grams", *patch.WeightGrams)
	}
	if patch.Dimensions != nil {
		dimensionsJSON, err := marshalDimensions(patch.Dimensions)
		if err != nil {
			return nil, err
		}
		set("dimensions", dimensionsJSON)
	}
	if patch.MetaTitle != nil {
		set("meta_title", *patch.MetaTitle)
	}
	if patch.MetaDescription != nil {
		set("meta_description", *patch.MetaDescription)
	}
	if patch.Tags != nil {
		set("tags", patch.Tags)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.IsFeatured != nil {
		set("is_featured", *patch.IsFeatured)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	set("updated_at", time.Now().UTC())

	query := fmt.Sprintf(`
		UPDATE products
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(sets, ", "), argIndex, productColumns,
	)
	args = append(args, id)

	p, err := scanProductRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, apperrors.Persistence("update product", err)
	}

	return p, nil
}

// Archive soft-deletes a product by moving it to the archived status.
func (r *ProductRepository) Archive(ctx context.Context, id string) error {
	query := `UPDATE products SET status = 'archived', updated_at = $1 WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Persistence("archive product", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

const imageColumns = `id, product_id, url, alt_text, sort_order, is_primary, created_at`

// GetImages returns a product's images ordered for display.
func (r *ProductRepository) GetImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM product_images
		WHERE product_id = $1
		ORDER BY sort_order ASC, created_at ASC`, imageColumns)

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, apperrors.Persistence("get product images", err)
	}
	defer rows.Close()

	images, err := collectImages(rows)
	if err != nil {
		return nil, err
	}
	return images, nil
}

// GetImagesByProducts returns images for many products in one query, keyed
// by product id.
func (r *ProductRepository) GetImagesByProducts(ctx context.Context, productIDs []string) (map[string][]domain.ProductImage, error) {
	result := make(map[string][]domain.ProductImage, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY sort_order ASC, created_at ASC`, imageColumns)

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, apperrors.Persistence("get images for products", err)
	}
	defer rows.Close()

	images, err := collectImages(rows)
	if err != nil {
		return nil, err
	}

	for _, img := range images {
		result[img.ProductID] = append(result[img.ProductID], img)
	}
	return result, nil
}

// AddImage attaches an image record to a product.
func (r *ProductRepository) AddImage(ctx context.Context, img *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, url, alt_text, sort_order, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		img.ID, img.ProductID, img.URL, img.AltText, img.SortOrder, img.IsPrimary, img.CreatedAt,
	)
	if err != nil {
		return apperrors.Persistence("insert product image", err)
	}
	return nil
}

func collectImages(rows pgx.Rows) ([]domain.ProductImage, error) {
	var images []domain.ProductImage
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(
			&img.ID, &img.ProductID, &img.URL, &img.AltText,
			&img.SortOrder, &img.IsPrimary, &img.CreatedAt,
		); err != nil {
			return nil, apperrors.Persistence("scan image row", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate image rows", err)
	}
	if images == nil {
		images = []domain.ProductImage{}
	}
	return images, nil
}

// scanProduct executes a query expected to return a single product row.
func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	p, err := scanProductRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Persistence("scan product", err)
	}
	return p, nil
}

func scanProductRow(row pgx.Row) (*domain.Product, error) {
	var (
		p              domain.Product
		dimensionsJSON []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription,
		&p.BasePrice, &p.CategoryID, &p.Brand, &p.SKUPrefix, &p.WeightGrams,
		&dimensionsJSON, &p.MetaTitle, &p.MetaDescription, &p.Tags,
		&p.Status, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalDimensions(dimensionsJSON, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

func marshalDimensions(d *domain.Dimensions) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, apperrors.Persistence("marshal dimensions", err)
	}
	return data, nil
}

func unmarshalDimensions(data []byte, p *domain.Product) error {
	if data == nil {
		return nil
	}
	var d domain.Dimensions
	if err := json.Unmarshal(data, &d); err != nil {
		return apperrors.Persistence("unmarshal dimensions", err)
	}
	p.Dimensions = &d
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
