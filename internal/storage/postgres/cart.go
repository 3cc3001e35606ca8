package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velano/storefront/internal/domain/cart"
)

const (
	getCartLinesSQL = `SELECT product_id, variant_id, quantity, unit_price
		FROM cart_lines WHERE user_id = $1 ORDER BY updated_at`

	upsertCartLineSQL = `INSERT INTO cart_lines (user_id, product_id, variant_id, quantity, unit_price, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, product_id, variant_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price,
			updated_at = now()`

	removeCartLineSQL = `DELETE FROM cart_lines
		WHERE user_id = $1 AND product_id = $2 AND variant_id = $3`

	clearCartSQL = `DELETE FROM cart_lines WHERE user_id = $1`

	removeLinesForProductSQL = `DELETE FROM cart_lines WHERE product_id = $1`

	removeLinesForVariantSQL = `DELETE FROM cart_lines WHERE product_id = $1 AND variant_id = $2`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Lines live
// in their own table so cross-user pruning is a single statement.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart. A user without lines gets an empty cart;
// carts are never materialized as rows of their own.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, getCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cart for %q: %w", userID, err)
	}

	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("loading cart for %q: %w", userID, err)
	}
	return &cart.Cart{UserID: userID, Lines: lines}, nil
}

// UpsertLine inserts or replaces the line for (product, variant).
func (r *CartRepository) UpsertLine(ctx context.Context, userID string, line cart.Line) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, upsertCartLineSQL,
		userID, line.ProductID, line.VariantID, line.Quantity, line.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("upserting cart line: %w", err)
	}
	return nil
}

// RemoveLine deletes the line for (product, variant). Removing a missing
// line is not an error.
func (r *CartRepository) RemoveLine(ctx context.Context, userID, productID, variantID string) error {
	if _, err := dbFrom(ctx, r.pool).Exec(ctx, removeCartLineSQL, userID, productID, variantID); err != nil {
		return fmt.Errorf("removing cart line: %w", err)
	}
	return nil
}

// Clear removes every line from the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := dbFrom(ctx, r.pool).Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", userID, err)
	}
	return nil
}

// RemoveLinesForProduct prunes lines for a vanished product (or one of its
// variants) across all users. Idempotent: re-running deletes nothing.
func (r *CartRepository) RemoveLinesForProduct(ctx context.Context, productID, variantID string) error {
	db := dbFrom(ctx, r.pool)

	var err error
	if variantID == "" {
		_, err = db.Exec(ctx, removeLinesForProductSQL, productID)
	} else {
		_, err = db.Exec(ctx, removeLinesForVariantSQL, productID, variantID)
	}
	if err != nil {
		return fmt.Errorf("pruning cart lines for product %q: %w", productID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice)
	return l, err
}
