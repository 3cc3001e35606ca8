package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Review errors.
var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrDuplicateReview = errors.New("user already reviewed this product")
	ErrReviewNotFound  = errors.New("review not found")
)

// Review is a user's rating and comment on a product. One review per
// (product, user).
type Review struct {
	ID        string
	ProductID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ReviewRepository defines persistence for product reviews.
type ReviewRepository interface {
	Create(ctx context.Context, r *Review) error
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	Delete(ctx context.Context, id string) error
}
