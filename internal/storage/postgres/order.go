package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velano/storefront/internal/domain/order"
	"github.com/velano/storefront/internal/domain/user"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, lines, subtotal, tax, shipping, discount, total,
			shipping_address, billing_address, payment_method, paid, paid_at, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	getOrderByIDSQL = `SELECT id, user_id, lines, subtotal, tax, shipping, discount, total,
			shipping_address, billing_address, payment_method, paid, paid_at, status, notes, created_at, updated_at
		FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, user_id, lines, subtotal, tax, shipping, discount, total,
			shipping_address, billing_address, payment_method, paid, paid_at, status, notes, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, paid = $3, paid_at = $4, updated_at = $5
		WHERE id = $1 AND status = $6`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line and
// address snapshots are serialized to JSONB; they are frozen at order time
// and never joined back to the catalog.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}
	shipJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}
	var billJSON []byte
	if o.BillingAddress != nil {
		if billJSON, err = json.Marshal(o.BillingAddress); err != nil {
			return fmt.Errorf("marshaling billing address: %w", err)
		}
	}

	_, err = dbFrom(ctx, r.pool).Exec(ctx, createOrderSQL,
		o.ID, o.UserID, linesJSON, o.Subtotal, o.Tax, o.Shipping, o.Discount, o.Total,
		shipJSON, billJSON, string(o.Payment.Method), o.Payment.Paid, o.Payment.PaidAt,
		string(o.Status), o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order by id, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus persists the status and payment fields of an order. The write
// is conditional on the stored status still matching from: a concurrent
// transition makes the predicate miss and the caller gets ErrStatusConflict.
// Orders are never deleted, so zero affected rows always means a lost race.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order, from order.Status) error {
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, updateOrderStatusSQL,
		o.ID, string(o.Status), o.Payment.Paid, o.Payment.PaidAt, o.UpdatedAt, string(from),
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o          order.Order
		linesJSON  []byte
		shipJSON   []byte
		billJSON   []byte
		method     string
		status     string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &linesJSON, &o.Subtotal, &o.Tax, &o.Shipping, &o.Discount, &o.Total,
		&shipJSON, &billJSON, &method, &o.Payment.Paid, &o.Payment.PaidAt,
		&status, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	if err := json.Unmarshal(shipJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	if len(billJSON) > 0 {
		o.BillingAddress = &user.Address{}
		if err := json.Unmarshal(billJSON, o.BillingAddress); err != nil {
			return o, fmt.Errorf("unmarshaling billing address: %w", err)
		}
	}

	o.Payment.Method = order.PaymentMethod(method)
	o.Status = order.Status(status)
	return o, nil
}
