package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/velano/storefront/internal/domain/user"
)

// PaymentMethod describes how an order is paid. Only cash-on-delivery is
// modeled; card payments are recorded as a descriptor without processing.
type PaymentMethod string

const (
	MethodCOD  PaymentMethod = "cod"
	MethodCard PaymentMethod = "card"
)

// Payment is the order's payment descriptor.
type Payment struct {
	Method PaymentMethod `json:"method"`
	Paid   bool          `json:"paid"`
	PaidAt *time.Time    `json:"paid_at,omitempty"`
}

// Line is an order line snapshot. Every field is captured at order time and
// never recomputed from catalog state, so later price changes cannot alter
// a placed order.
type Line struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantID   string          `json:"variant_id,omitempty"`
	VariantName string          `json:"variant_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Order is an immutable purchase record; only status and payment fields
// change after creation.
type Order struct {
	ID              string
	UserID          string
	Lines           []Line
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress user.Address
	BillingAddress  *user.Address
	Payment         Payment
	Status          Status
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository defines persistence for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatus persists the order's status and payment fields, but only
	// if the stored status still equals from. It returns ErrStatusConflict
	// when a concurrent writer moved the order first, so the read-check-write
	// sequence in the service cannot act on a stale status.
	UpdateStatus(ctx context.Context, o *Order, from Status) error
}

// Transactor runs a function inside one all-or-nothing storage transaction.
// Any error aborts the whole unit with no partial state.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
