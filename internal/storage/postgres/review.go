package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velano/storefront/internal/domain/catalog"
)

const (
	createReviewSQL = `INSERT INTO reviews (id, product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)`

	listReviewsByProductSQL = `SELECT id, product_id, user_id, rating, comment, created_at
		FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`

	deleteReviewSQL = `DELETE FROM reviews WHERE id = $1`
)

var _ catalog.ReviewRepository = (*ReviewRepository)(nil)

// ReviewRepository implements catalog.ReviewRepository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create persists a review. The (product, user) unique constraint maps to
// catalog.ErrDuplicateReview; a missing product maps to catalog.ErrNotFound.
func (r *ReviewRepository) Create(ctx context.Context, rev *catalog.Review) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, createReviewSQL,
		rev.ID, rev.ProductID, rev.UserID, rev.Rating, rev.Comment,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return catalog.ErrDuplicateReview
			case "23503":
				return catalog.ErrNotFound
			}
		}
		return fmt.Errorf("creating review %q: %w", rev.ID, err)
	}
	return nil
}

// ListByProduct returns a product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]catalog.Review, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, listReviewsByProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews for %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanReview)
}

// Delete removes a review by id, or catalog.ErrReviewNotFound.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, deleteReviewSQL, id)
	if err != nil {
		return fmt.Errorf("deleting review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrReviewNotFound
	}
	return nil
}

func scanReview(row pgx.CollectableRow) (catalog.Review, error) {
	var rev catalog.Review
	err := row.Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.Rating, &rev.Comment, &rev.CreatedAt)
	return rev, err
}
