package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velano/storefront/internal/domain/cart"
	"github.com/velano/storefront/internal/domain/catalog"
	"github.com/velano/storefront/internal/domain/user"
)

// Sentinel errors for order placement and lifecycle.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnauthorized      = errors.New("not allowed to act on this order")
	ErrNoShippingAddress = errors.New("no shipping address supplied and none on profile")
	ErrNotFound          = errors.New("order not found")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// ProductNotFoundError indicates a cart line references a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s no longer exists", e.ProductID)
}

// VariantNotFoundError indicates a cart line references a variant that no
// longer exists on its product.
type VariantNotFoundError struct {
	ProductID string
	VariantID string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant %s of product %s no longer exists", e.VariantID, e.ProductID)
}

// Actor identifies the caller of an order operation for authorization.
type Actor struct {
	UserID string
	Admin  bool
}

// Pricing holds the order summary defaults. Tax and shipping apply unless
// the placement request sets them explicitly.
type Pricing struct {
	// TaxRate is a fraction of the subtotal, e.g. 0.05 for 5%.
	TaxRate decimal.Decimal
	// ShippingFee is the flat delivery fee.
	ShippingFee decimal.Decimal
	// FreeShippingAbove waives the fee when the subtotal reaches it.
	FreeShippingAbove decimal.Decimal
}

// DefaultPricing matches the documented defaults: 5% tax, flat fee of 10
// waived above a subtotal of 100.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:           decimal.RequireFromString("0.05"),
		ShippingFee:       decimal.RequireFromString("10"),
		FreeShippingAbove: decimal.RequireFromString("100"),
	}
}

// PlaceOrderRequest is the input for PlaceOrder. Tax, Shipping and Discount
// override the pricing defaults when non-nil.
type PlaceOrderRequest struct {
	UserID          string
	ShippingAddress *user.Address
	BillingAddress  *user.Address
	PaymentMethod   PaymentMethod
	Notes           string
	Tax             *decimal.Decimal
	Shipping        *decimal.Decimal
	Discount        *decimal.Decimal
}

// Service is the order pipeline: it converts carts into immutable orders
// atomically and manages the order status lifecycle. All multi-step writes
// run inside a single storage transaction; the conditional stock decrement
// in the catalog repository is the sole guard against overselling.
type Service struct {
	carts   cart.Repository
	catalog catalog.Repository
	orders  Repository
	users   user.Repository
	tx      Transactor
	pricing Pricing

	now func() time.Time
}

// NewService creates an order Service.
func NewService(
	carts cart.Repository,
	catalogRepo catalog.Repository,
	orders Repository,
	users user.Repository,
	tx Transactor,
	pricing Pricing,
) *Service {
	return &Service{
		carts:   carts,
		catalog: catalogRepo,
		orders:  orders,
		users:   users,
		tx:      tx,
		pricing: pricing,
		now:     time.Now,
	}
}

// PlaceOrder converts the user's cart into an order. Within one transaction
// it revalidates every line against the live catalog, decrements stock
// conditionally, snapshots prices and line totals into the order, persists
// it, and empties the cart. Any failure aborts the whole transaction and
// leaves cart and catalog untouched.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	var placed *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.Get(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(c.Lines) == 0 {
			return ErrEmptyCart
		}

		lines, err := s.buildLines(ctx, c.Lines)
		if err != nil {
			return err
		}

		// Reservation moment: decrement stock for every line in the same
		// transaction as the reads above. The conditional update rejects
		// the whole order if a concurrent purchaser got there first.
		for _, l := range lines {
			if err := s.catalog.DecrementStock(ctx, l.ProductID, l.VariantID, l.Quantity); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return s.stockError(ctx, l.ProductID, l.VariantID)
				}
				return errors.Wrap(err, "decrement stock")
			}
		}

		shipTo, err := s.resolveShippingAddress(ctx, req)
		if err != nil {
			return err
		}

		o := &Order{
			ID:              uuid.New().String(),
			UserID:          req.UserID,
			Lines:           lines,
			ShippingAddress: *shipTo,
			BillingAddress:  req.BillingAddress,
			Payment:         Payment{Method: req.PaymentMethod},
			Status:          StatusPending,
			Notes:           req.Notes,
			CreatedAt:       s.now(),
			UpdatedAt:       s.now(),
		}
		s.applySummary(o, req)

		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := s.carts.Clear(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// buildLines revalidates each cart line against the live catalog and
// snapshots current names, prices and line totals. Cart price snapshots are
// deliberately ignored here: the catalog is the source of truth up to the
// moment the order freezes its own copy.
func (s *Service) buildLines(ctx context.Context, cartLines []cart.Line) ([]Line, error) {
	lines := make([]Line, 0, len(cartLines))
	for _, cl := range cartLines {
		p, err := s.catalog.GetByID(ctx, cl.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: cl.ProductID}
			}
			return nil, errors.Wrap(err, "load product")
		}

		var variant *catalog.Variant
		var variantName string
		if cl.VariantID != "" {
			variant, err = p.Variant(cl.VariantID)
			if err != nil {
				return nil, &VariantNotFoundError{ProductID: cl.ProductID, VariantID: cl.VariantID}
			}
			variantName = variant.Name
		}

		if available := catalog.AvailableStock(p, variant); cl.Quantity > available {
			return nil, &catalog.InsufficientStockError{ProductID: cl.ProductID, Available: available}
		}

		price := catalog.UnitPrice(p, variant)
		lines = append(lines, Line{
			ProductID:   cl.ProductID,
			ProductName: p.Name,
			VariantID:   cl.VariantID,
			VariantName: variantName,
			Quantity:    cl.Quantity,
			UnitPrice:   price,
			LineTotal:   price.Mul(decimal.NewFromInt(int64(cl.Quantity))).Round(2),
		})
	}
	return lines, nil
}

// stockError re-reads current availability so the caller learns how much is
// actually left after losing the race.
func (s *Service) stockError(ctx context.Context, productID, variantID string) error {
	available := 0
	if p, err := s.catalog.GetByID(ctx, productID); err == nil {
		var variant *catalog.Variant
		if variantID != "" {
			variant, _ = p.Variant(variantID)
		}
		available = catalog.AvailableStock(p, variant)
	}
	return &catalog.InsufficientStockError{ProductID: productID, Available: available}
}

// resolveShippingAddress uses the explicit address from the request, falling
// back to the user's profile address.
func (s *Service) resolveShippingAddress(ctx context.Context, req PlaceOrderRequest) (*user.Address, error) {
	if req.ShippingAddress != nil {
		return req.ShippingAddress, nil
	}
	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	if u.Address == nil {
		return nil, ErrNoShippingAddress
	}
	return u.Address, nil
}

// applySummary computes subtotal, tax, shipping, discount and total.
// total = subtotal + tax + shipping - discount, rounded to 2 decimal places
// and stored once, immutably.
func (s *Service) applySummary(o *Order, req PlaceOrderRequest) {
	subtotal := decimal.Zero
	for _, l := range o.Lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	o.Subtotal = subtotal.Round(2)

	if req.Tax != nil {
		o.Tax = req.Tax.Round(2)
	} else {
		o.Tax = o.Subtotal.Mul(s.pricing.TaxRate).Round(2)
	}

	if req.Shipping != nil {
		o.Shipping = req.Shipping.Round(2)
	} else if o.Subtotal.GreaterThanOrEqual(s.pricing.FreeShippingAbove) {
		o.Shipping = decimal.Zero
	} else {
		o.Shipping = s.pricing.ShippingFee.Round(2)
	}

	o.Discount = decimal.Zero
	if req.Discount != nil {
		o.Discount = req.Discount.Round(2)
	}

	o.Total = o.Subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount).Round(2)
}

// CancelOrder cancels an order on behalf of its owner or an administrator,
// restoring stock for every line. Orders that have shipped (or beyond) are
// terminal for cancellation. Restoration, status change and persistence run
// in one transaction so a crash mid-restore cannot leave inventory short.
func (s *Service) CancelOrder(ctx context.Context, actor Actor, orderID string) (*Order, error) {
	var cancelled *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != actor.UserID && !actor.Admin {
			return ErrUnauthorized
		}
		if !o.Status.Cancellable() {
			return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
		}

		for _, l := range o.Lines {
			if err := s.catalog.RestoreStock(ctx, l.ProductID, l.VariantID, l.Quantity); err != nil {
				return errors.Wrap(err, "restore stock")
			}
		}

		prev := o.Status
		o.Status = StatusCancelled
		o.UpdatedAt = s.now()
		if err := s.orders.UpdateStatus(ctx, o, prev); err != nil {
			// A concurrent writer moved the order between our read and the
			// conditional write. The rollback discards the restores above, so
			// a racing double-cancel cannot return stock twice.
			if errors.Is(err, ErrStatusConflict) {
				return s.staleTransition(ctx, orderID, StatusCancelled)
			}
			return errors.Wrap(err, "persist cancellation")
		}

		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// AdvanceStatus moves an order along the admin-driven status machine.
// Reaching delivered settles cash-on-delivery payments: the paid flag flips
// and a paid timestamp is stamped if not already set.
func (s *Service) AdvanceStatus(ctx context.Context, actor Actor, orderID string, next Status) (*Order, error) {
	if !actor.Admin {
		return nil, ErrUnauthorized
	}
	if !next.Valid() {
		return nil, &InvalidTransitionError{To: next}
	}

	var updated *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}

		prev := o.Status
		o.Status = next
		o.UpdatedAt = s.now()
		if next == StatusDelivered && o.Payment.Method == MethodCOD && !o.Payment.Paid {
			now := s.now()
			o.Payment.Paid = true
			o.Payment.PaidAt = &now
		}

		if err := s.orders.UpdateStatus(ctx, o, prev); err != nil {
			if errors.Is(err, ErrStatusConflict) {
				return s.staleTransition(ctx, orderID, next)
			}
			return errors.Wrap(err, "persist status")
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// staleTransition re-reads an order that lost a status race and reports the
// transition that is now invalid. The caller's transaction rolls back either
// way; the re-read only makes the error name the winner's status.
func (s *Service) staleTransition(ctx context.Context, orderID string, to Status) error {
	cur, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return &InvalidTransitionError{To: to}
	}
	return &InvalidTransitionError{From: cur.Status, To: to}
}

// Get returns an order if the actor owns it or is an administrator.
func (s *Service) Get(ctx context.Context, actor Actor, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && !actor.Admin {
		return nil, ErrUnauthorized
	}
	return o, nil
}

// ListForUser returns the actor's own orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
