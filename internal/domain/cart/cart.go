package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned for negative quantities.
var ErrInvalidQuantity = errors.New("quantity must not be negative")

// Line is one cart entry. VariantID is empty for products sold without
// variants. UnitPrice is a snapshot taken at the last mutation; it is
// refreshed on every add/update, never on read.
type Line struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal is quantity x unit price, rounded to 2 decimal places.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Cart is a user's mutable shopping cart. There is at most one line per
// (product, variant) pair.
type Cart struct {
	UserID string
	Lines  []Line
}

// Total is the sum of line totals, rounded to 2 decimal places.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal())
	}
	return total.Round(2)
}

// Find returns the line matching (productID, variantID), or nil.
func (c *Cart) Find(productID, variantID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID && c.Lines[i].VariantID == variantID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Repository defines cart persistence. Carts are created lazily: Get returns
// an empty cart when the user has none.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	UpsertLine(ctx context.Context, userID string, line Line) error
	RemoveLine(ctx context.Context, userID, productID, variantID string) error
	Clear(ctx context.Context, userID string) error
	// RemoveLinesForProduct prunes lines referencing a vanished product or
	// variant across all users' carts. An empty variantID removes every
	// line for the product; otherwise only lines for that variant.
	// Must be idempotent.
	RemoveLinesForProduct(ctx context.Context, productID, variantID string) error
}
