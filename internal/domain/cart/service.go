package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/velano/storefront/internal/domain/catalog"
)

// Service applies cart mutations. Every monetary or inventory decision
// re-reads the live catalog at call time; the price snapshot stored on a
// line is refreshed on mutation, not on read.
type Service struct {
	catalog catalog.Repository
	carts   Repository
}

// NewService creates a cart Service.
func NewService(catalogRepo catalog.Repository, carts Repository) *Service {
	return &Service{catalog: catalogRepo, carts: carts}
}

// AddLine merges delta units of (productID, variantID) into the user's cart.
// The merged quantity (existing + delta) is validated against current stock
// and the line's price snapshot is refreshed from the live catalog.
func (s *Service) AddLine(ctx context.Context, userID, productID, variantID string, delta int) (*Cart, error) {
	if delta <= 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	quantity := delta
	if existing := c.Find(productID, variantID); existing != nil {
		quantity += existing.Quantity
	}

	if err := s.setLine(ctx, userID, productID, variantID, quantity); err != nil {
		return nil, err
	}
	return s.carts.Get(ctx, userID)
}

// SetLineQuantity sets the absolute quantity for (productID, variantID).
// Quantity 0 removes the line.
func (s *Service) SetLineQuantity(ctx context.Context, userID, productID, variantID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		if err := s.carts.RemoveLine(ctx, userID, productID, variantID); err != nil {
			return nil, errors.Wrap(err, "remove cart line")
		}
		return s.carts.Get(ctx, userID)
	}

	if err := s.setLine(ctx, userID, productID, variantID, quantity); err != nil {
		return nil, err
	}
	return s.carts.Get(ctx, userID)
}

// setLine validates quantity against live stock and upserts the line with a
// fresh price snapshot.
func (s *Service) setLine(ctx context.Context, userID, productID, variantID string, quantity int) error {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	var variant *catalog.Variant
	if variantID != "" {
		variant, err = p.Variant(variantID)
		if err != nil {
			return err
		}
	}

	if available := catalog.AvailableStock(p, variant); quantity > available {
		return &catalog.InsufficientStockError{ProductID: productID, Available: available}
	}

	line := Line{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: catalog.UnitPrice(p, variant),
	}
	if err := s.carts.UpsertLine(ctx, userID, line); err != nil {
		return errors.Wrap(err, "upsert cart line")
	}
	return nil
}

// Get returns the user's cart, creating nothing: users without a cart get
// an empty one.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	return s.carts.Get(ctx, userID)
}

// Clear removes every line from the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}

// CleanupAfterCatalogChange prunes cart lines referencing a deleted product
// or variant across all users. The catalog side invokes this after a
// committed deletion; it is idempotent and safe to run concurrently with
// normal cart mutation.
func (s *Service) CleanupAfterCatalogChange(ctx context.Context, productID, variantID string) error {
	if err := s.carts.RemoveLinesForProduct(ctx, productID, variantID); err != nil {
		return errors.Wrap(err, "prune cart lines")
	}
	return nil
}
