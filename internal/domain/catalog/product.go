package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups and stock mutation.
var (
	ErrNotFound        = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
	// ErrInsufficientStock is returned by conditional stock decrements when
	// the remaining stock cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError carries enough detail for the caller to correct
// the requested quantity.
type InsufficientStockError struct {
	ProductID string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

// Variant is a purchasable configuration of a product with its own stock
// and an optional price override.
type Variant struct {
	ID            string
	Name          string
	PriceOverride *decimal.Decimal
	Stock         int
}

// Product is a catalog item. If Variants is non-empty, Stock is maintained
// by the catalog as the sum of variant stocks.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	DiscountPct decimal.Decimal
	Stock       int
	Variants    []Variant
}

// FinalPrice is the base price after the percentage discount, rounded to
// 2 decimal places.
func (p *Product) FinalPrice() decimal.Decimal {
	if p.DiscountPct.IsZero() {
		return p.Price.Round(2)
	}
	factor := decimal.NewFromInt(100).Sub(p.DiscountPct).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}

// Variant returns the variant with the given id, or ErrVariantNotFound.
func (p *Product) Variant(id string) (*Variant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], nil
		}
	}
	return nil, ErrVariantNotFound
}

// UnitPrice resolves the effective price of a (product, variant) pair: the
// variant override when set, else the product's discounted price. A nil
// variant means the product is sold without variants.
func UnitPrice(p *Product, v *Variant) decimal.Decimal {
	if v != nil && v.PriceOverride != nil {
		return v.PriceOverride.Round(2)
	}
	return p.FinalPrice()
}

// AvailableStock returns the stock that matters for a (product, variant)
// pair: variant stock when a variant is selected, else product stock.
func AvailableStock(p *Product, v *Variant) int {
	if v != nil {
		return v.Stock
	}
	return p.Stock
}

// Repository defines catalog persistence. DecrementStock must be a
// conditional update ("decrement only if stock >= qty") so that two
// concurrent purchasers cannot jointly oversell; it returns
// ErrInsufficientStock on a zero-rows-affected result.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error

	// DecrementStock reserves qty units. variantID is empty for products
	// sold without variants. Variant-level stock is decremented first,
	// then the product-level aggregate, in the same transaction.
	DecrementStock(ctx context.Context, productID, variantID string, qty int) error
	// RestoreStock returns qty units, e.g. on order cancellation.
	RestoreStock(ctx context.Context, productID, variantID string, qty int) error
}
