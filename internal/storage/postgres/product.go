package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velano/storefront/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, description, category, price, discount_pct, stock
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, description, category, price, discount_pct, stock
		FROM products WHERE id = $1`

	getVariantsSQL = `SELECT id, name, price_override, stock
		FROM product_variants WHERE product_id = $1 ORDER BY id`

	createProductSQL = `INSERT INTO products (id, name, description, category, price, discount_pct, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	createVariantSQL = `INSERT INTO product_variants (id, product_id, name, price_override, stock)
		VALUES ($1, $2, $3, $4, $5)`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	// Conditional decrements: zero rows affected means the remaining stock
	// cannot cover the request, and the caller's transaction must abort.
	decrementVariantStockSQL = `UPDATE product_variants SET stock = stock - $3
		WHERE id = $2 AND product_id = $1 AND stock >= $3`

	decrementProductStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	restoreVariantStockSQL = `UPDATE product_variants SET stock = stock + $3
		WHERE id = $2 AND product_id = $1`

	restoreProductStockSQL = `UPDATE products SET stock = stock + $2
		WHERE id = $1`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by id, without variants.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a product with its variants, or catalog.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	db := dbFrom(ctx, r.pool)

	rows, err := db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	vrows, err := db.Query(ctx, getVariantsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variants for %q: %w", id, err)
	}
	p.Variants, err = pgx.CollectRows(vrows, scanVariant)
	if err != nil {
		return nil, fmt.Errorf("getting variants for %q: %w", id, err)
	}

	return &p, nil
}

// Create persists a product and its variants.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	db := dbFrom(ctx, r.pool)

	_, err := db.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.DiscountPct, p.Stock,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}

	for _, v := range p.Variants {
		if _, err := db.Exec(ctx, createVariantSQL, v.ID, p.ID, v.Name, v.PriceOverride, v.Stock); err != nil {
			return fmt.Errorf("creating variant %q: %w", v.ID, err)
		}
	}
	return nil
}

// Delete removes a product; variants and reviews cascade in the schema.
// Cart pruning is the caller's responsibility (cart cleanup callback).
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DecrementStock reserves qty units via conditional updates. Variant stock
// is decremented first, then the product aggregate. Either update touching
// zero rows yields catalog.ErrInsufficientStock, which must abort the
// surrounding transaction.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID, variantID string, qty int) error {
	db := dbFrom(ctx, r.pool)

	if variantID != "" {
		tag, err := db.Exec(ctx, decrementVariantStockSQL, productID, variantID, qty)
		if err != nil {
			return fmt.Errorf("decrementing variant stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return catalog.ErrInsufficientStock
		}
	}

	tag, err := db.Exec(ctx, decrementProductStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("decrementing product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrInsufficientStock
	}
	return nil
}

// RestoreStock returns qty units to the variant (when set) and the product
// aggregate.
func (r *ProductRepository) RestoreStock(ctx context.Context, productID, variantID string, qty int) error {
	db := dbFrom(ctx, r.pool)

	if variantID != "" {
		if _, err := db.Exec(ctx, restoreVariantStockSQL, productID, variantID, qty); err != nil {
			return fmt.Errorf("restoring variant stock: %w", err)
		}
	}
	if _, err := db.Exec(ctx, restoreProductStockSQL, productID, qty); err != nil {
		return fmt.Errorf("restoring product stock: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.DiscountPct, &p.Stock)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.Name, &v.PriceOverride, &v.Stock)
	return v, err
}
