package order

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velano/storefront/internal/domain/cart"
	"github.com/velano/storefront/internal/domain/catalog"
	"github.com/velano/storefront/internal/domain/user"
)

// --- Mock implementations ---

type mockCartRepo struct {
	carts   map[string]*cart.Cart
	cleared []string
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	return &cart.Cart{UserID: userID}, nil
}

func (m *mockCartRepo) UpsertLine(_ context.Context, _ string, _ cart.Line) error { return nil }

func (m *mockCartRepo) RemoveLine(_ context.Context, _, _, _ string) error { return nil }

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	m.cleared = append(m.cleared, userID)
	delete(m.carts, userID)
	return nil
}

func (m *mockCartRepo) RemoveLinesForProduct(_ context.Context, _, _ string) error { return nil }

type stockKey struct {
	productID string
	variantID string
}

type mockCatalogRepo struct {
	byID        map[string]*catalog.Product
	decremented map[stockKey]int
	restored    map[stockKey]int
	// failDecrement simulates losing the conditional update race for the
	// given key.
	failDecrement map[stockKey]bool
}

func newCatalogRepo(products ...catalog.Product) *mockCatalogRepo {
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockCatalogRepo{
		byID:          byID,
		decremented:   make(map[stockKey]int),
		restored:      make(map[stockKey]int),
		failDecrement: make(map[stockKey]bool),
	}
}

func (m *mockCatalogRepo) List(_ context.Context) ([]catalog.Product, error) { return nil, nil }

func (m *mockCatalogRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalogRepo) Create(_ context.Context, _ *catalog.Product) error { return nil }

func (m *mockCatalogRepo) Delete(_ context.Context, _ string) error { return nil }

func (m *mockCatalogRepo) DecrementStock(_ context.Context, productID, variantID string, qty int) error {
	key := stockKey{productID, variantID}
	if m.failDecrement[key] {
		return catalog.ErrInsufficientStock
	}
	m.decremented[key] += qty
	return nil
}

func (m *mockCatalogRepo) RestoreStock(_ context.Context, productID, variantID string, qty int) error {
	m.restored[stockKey{productID, variantID}] += qty
	return nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	created   *Order
	updated   *Order
	updates   int
	createErr error

	// stale, when set, is served for the next GetByID of that order instead
	// of the live row. It models a snapshot read taken before a concurrent
	// writer committed.
	stale *Order
}

func newOrderRepo(orders ...*Order) *mockOrderRepo {
	byID := make(map[string]*Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	return &mockOrderRepo{byID: byID}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if m.stale != nil && m.stale.ID == id {
		cp := *m.stale
		m.stale = nil
		return &cp, nil
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, o *Order, from Status) error {
	cur, ok := m.byID[o.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrStatusConflict
	}
	m.byID[o.ID] = o
	m.updated = o
	m.updates++
	return nil
}

type mockUserRepo struct {
	byID map[string]*user.User
}

func (m *mockUserRepo) Create(_ context.Context, _ *user.User) error { return nil }

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, _ string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) SetVerified(_ context.Context, _ string) error { return nil }

func (m *mockUserRepo) UpdateAddress(_ context.Context, _ string, _ *user.Address) error { return nil }

// fakeTx runs the function directly; the service's atomicity contract is
// covered by the storage integration tests.
type fakeTx struct {
	calls int
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// --- Helpers ---

func testAddress() *user.Address {
	return &user.Address{
		Name:       "Jo Doe",
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func testProduct(id string, price string, stock int) catalog.Product {
	return catalog.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

type fixture struct {
	carts   *mockCartRepo
	catalog *mockCatalogRepo
	orders  *mockOrderRepo
	users   *mockUserRepo
	tx      *fakeTx
	svc     *Service
}

func newFixture(products ...catalog.Product) *fixture {
	f := &fixture{
		carts:   &mockCartRepo{carts: make(map[string]*cart.Cart)},
		catalog: newCatalogRepo(products...),
		orders:  newOrderRepo(),
		users:   &mockUserRepo{byID: make(map[string]*user.User)},
		tx:      &fakeTx{},
	}
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())
	return f
}

func (f *fixture) withCart(userID string, lines ...cart.Line) *fixture {
	f.carts.carts[userID] = &cart.Cart{UserID: userID, Lines: lines}
	return f
}

// --- PlaceOrder ---

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})

	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(
		testProduct("p1", "10.00", 50),
		testProduct("p2", "20.00", 50),
	).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		cart.Line{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("20.00")},
	)

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.False(t, o.Payment.Paid)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "Product p1", o.Lines[0].ProductName)

	// subtotal 40, tax 5% = 2, shipping 10 (below 100): total 52.
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, decimal.RequireFromString("2.00").Equal(o.Tax), "tax %s", o.Tax)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Shipping), "shipping %s", o.Shipping)
	assert.True(t, decimal.RequireFromString("52.00").Equal(o.Total), "total %s", o.Total)

	assert.Equal(t, 2, f.catalog.decremented[stockKey{"p1", ""}])
	assert.Equal(t, 1, f.catalog.decremented[stockKey{"p2", ""}])
	assert.Equal(t, []string{"u1"}, f.carts.cleared)
	assert.NotNil(t, f.orders.created)
	assert.Equal(t, 1, f.tx.calls)
}

func TestPlaceOrder_SnapshotsLivePrice(t *testing.T) {
	// The cart carries a stale snapshot; the order must use the current
	// catalog price.
	f := newFixture(testProduct("p1", "15.00", 10)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 1, UnitPrice: decimal.RequireFromString("9.99")},
	)

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("15.00").Equal(o.Lines[0].UnitPrice))
}

func TestPlaceOrder_ProductGone(t *testing.T) {
	f := newFixture().withCart("u1",
		cart.Line{ProductID: "ghost", Quantity: 1},
	)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})

	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "ghost", pnf.ProductID)
	assert.Nil(t, f.orders.created)
	assert.Empty(t, f.carts.cleared)
}

func TestPlaceOrder_VariantGone(t *testing.T) {
	p := testProduct("p1", "10.00", 10)
	p.Variants = []catalog.Variant{{ID: "v1", Name: "Small", Stock: 5}}
	f := newFixture(p).withCart("u1",
		cart.Line{ProductID: "p1", VariantID: "v2", Quantity: 1},
	)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})

	var vnf *VariantNotFoundError
	require.ErrorAs(t, err, &vnf)
	assert.Equal(t, "v2", vnf.VariantID)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(testProduct("p1", "10.00", 1)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 3},
	)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})

	var ise *catalog.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "p1", ise.ProductID)
	assert.Equal(t, 1, ise.Available)
}

func TestPlaceOrder_LosesDecrementRace(t *testing.T) {
	// The read sees enough stock but the conditional decrement loses to a
	// concurrent purchaser.
	f := newFixture(testProduct("p1", "10.00", 5)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 2},
	)
	f.catalog.failDecrement[stockKey{"p1", ""}] = true

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})

	var ise *catalog.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Nil(t, f.orders.created)
	assert.Empty(t, f.carts.cleared)
}

func TestPlaceOrder_VariantStockAndPrice(t *testing.T) {
	override := decimal.RequireFromString("12.50")
	p := testProduct("p1", "10.00", 0)
	p.Variants = []catalog.Variant{
		{ID: "v1", Name: "Large", PriceOverride: &override, Stock: 4},
	}
	f := newFixture(p).withCart("u1",
		cart.Line{ProductID: "p1", VariantID: "v1", Quantity: 2},
	)

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCard,
	})
	require.NoError(t, err)

	require.Len(t, o.Lines, 1)
	assert.Equal(t, "Large", o.Lines[0].VariantName)
	assert.True(t, decimal.RequireFromString("12.50").Equal(o.Lines[0].UnitPrice))
	assert.Equal(t, 2, f.catalog.decremented[stockKey{"p1", "v1"}])
}

func TestPlaceOrder_ProfileAddressFallback(t *testing.T) {
	f := newFixture(testProduct("p1", "10.00", 10)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 1},
	)
	f.users.byID["u1"] = &user.User{ID: "u1", Address: testAddress()}

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:        "u1",
		PaymentMethod: MethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", o.ShippingAddress.Line1)
}

func TestPlaceOrder_NoShippingAddress(t *testing.T) {
	f := newFixture(testProduct("p1", "10.00", 10)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 1},
	)
	f.users.byID["u1"] = &user.User{ID: "u1"}

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:        "u1",
		PaymentMethod: MethodCOD,
	})

	require.ErrorIs(t, err, ErrNoShippingAddress)
}

func TestPlaceOrder_FreeShippingAboveThreshold(t *testing.T) {
	f := newFixture(testProduct("p1", "60.00", 10)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 2},
	)

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})
	require.NoError(t, err)

	// subtotal 120 >= 100: fee waived.
	assert.True(t, o.Shipping.IsZero(), "shipping %s", o.Shipping)
	assert.True(t, decimal.RequireFromString("126.00").Equal(o.Total), "total %s", o.Total)
}

func TestPlaceOrder_DiscountOverride(t *testing.T) {
	discount := decimal.RequireFromString("5.00")
	f := newFixture(testProduct("p1", "40.00", 10)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 1},
	)

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
		Discount:        &discount,
	})
	require.NoError(t, err)

	// 40 + 2 tax + 10 shipping - 5 discount = 47.
	assert.True(t, decimal.RequireFromString("5.00").Equal(o.Discount))
	assert.True(t, decimal.RequireFromString("47.00").Equal(o.Total), "total %s", o.Total)
}

func TestPlaceOrder_CreateError(t *testing.T) {
	f := newFixture(testProduct("p1", "10.00", 10)).withCart("u1",
		cart.Line{ProductID: "p1", Quantity: 1},
	)
	f.orders.createErr = errors.New("db write failed")

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:          "u1",
		ShippingAddress: testAddress(),
		PaymentMethod:   MethodCOD,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, f.carts.cleared)
}

// --- CancelOrder ---

func placedOrder(id, userID string, status Status, lines ...Line) *Order {
	return &Order{
		ID:     id,
		UserID: userID,
		Lines:  lines,
		Status: status,
		Payment: Payment{
			Method: MethodCOD,
		},
	}
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending,
		Line{ProductID: "p1", Quantity: 2},
		Line{ProductID: "p2", VariantID: "v1", Quantity: 1},
	))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	o, err := f.svc.CancelOrder(context.Background(), Actor{UserID: "u1"}, "o1")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, 2, f.catalog.restored[stockKey{"p1", ""}])
	assert.Equal(t, 1, f.catalog.restored[stockKey{"p2", "v1"}])
	require.NotNil(t, f.orders.updated)
	assert.Equal(t, StatusCancelled, f.orders.updated.Status)
}

func TestCancelOrder_NotOwner(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	_, err := f.svc.CancelOrder(context.Background(), Actor{UserID: "intruder"}, "o1")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCancelOrder_AdminMayCancelAnyOrder(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusConfirmed))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	o, err := f.svc.CancelOrder(context.Background(), Actor{UserID: "admin", Admin: true}, "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestCancelOrder_TerminalStatuses(t *testing.T) {
	for _, status := range []Status{
		StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusRefunded,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			f.orders = newOrderRepo(placedOrder("o1", "u1", status,
				Line{ProductID: "p1", Quantity: 1},
			))
			f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

			_, err := f.svc.CancelOrder(context.Background(), Actor{UserID: "u1"}, "o1")

			var ite *InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Empty(t, f.catalog.restored)
		})
	}
}

func TestCancelOrder_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CancelOrder(context.Background(), Actor{UserID: "u1"}, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelOrder_StaleReadLosesConditionalWrite(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending,
		Line{ProductID: "p1", Quantity: 3},
	))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	o, err := f.svc.CancelOrder(context.Background(), Actor{UserID: "u1"}, "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	// A second caller raced the first: its read still observed the pending
	// order. The conditional write must reject it instead of cancelling (and
	// restoring stock for) the same order twice.
	f.orders.stale = placedOrder("o1", "u1", StatusPending,
		Line{ProductID: "p1", Quantity: 3},
	)
	_, err = f.svc.CancelOrder(context.Background(), Actor{UserID: "u1"}, "o1")

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusCancelled, ite.From)
	assert.Equal(t, 1, f.orders.updates)
}

func TestAdvanceStatus_StaleReadLosesConditionalWrite(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusCancelled))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	// The admin's read raced a cancellation and still shows pending; the
	// conditional write must not advance an order that is no longer pending.
	f.orders.stale = placedOrder("o1", "u1", StatusPending)

	_, err := f.svc.AdvanceStatus(context.Background(), Actor{UserID: "root", Admin: true}, "o1", StatusConfirmed)

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusCancelled, ite.From)
	assert.Equal(t, 0, f.orders.updates)
}

// --- AdvanceStatus ---

func TestAdvanceStatus_ForwardPath(t *testing.T) {
	path := []Status{
		StatusConfirmed, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered,
	}

	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	admin := Actor{UserID: "root", Admin: true}
	for _, next := range path {
		o, err := f.svc.AdvanceStatus(context.Background(), admin, "o1", next)
		require.NoError(t, err, "advancing to %s", next)
		assert.Equal(t, next, o.Status)
	}
}

func TestAdvanceStatus_NonAdmin(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	_, err := f.svc.AdvanceStatus(context.Background(), Actor{UserID: "u1"}, "o1", StatusConfirmed)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdvanceStatus_SkippingStages(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	_, err := f.svc.AdvanceStatus(context.Background(), Actor{Admin: true}, "o1", StatusDelivered)

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusPending, ite.From)
	assert.Equal(t, StatusDelivered, ite.To)
}

func TestAdvanceStatus_UnknownStatus(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	_, err := f.svc.AdvanceStatus(context.Background(), Actor{Admin: true}, "o1", Status("lost"))

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestAdvanceStatus_DeliveredSettlesCOD(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusOutForDelivery))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	o, err := f.svc.AdvanceStatus(context.Background(), Actor{Admin: true}, "o1", StatusDelivered)
	require.NoError(t, err)

	assert.True(t, o.Payment.Paid)
	require.NotNil(t, o.Payment.PaidAt)
}

func TestAdvanceStatus_DeliveredLeavesCardUnpaid(t *testing.T) {
	o1 := placedOrder("o1", "u1", StatusOutForDelivery)
	o1.Payment.Method = MethodCard

	f := newFixture()
	f.orders = newOrderRepo(o1)
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	o, err := f.svc.AdvanceStatus(context.Background(), Actor{Admin: true}, "o1", StatusDelivered)
	require.NoError(t, err)

	assert.False(t, o.Payment.Paid)
	assert.Nil(t, o.Payment.PaidAt)
}

// --- Get / ListForUser ---

func TestGet_OwnerOrAdmin(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(placedOrder("o1", "u1", StatusPending))
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	_, err := f.svc.Get(context.Background(), Actor{UserID: "u1"}, "o1")
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), Actor{UserID: "other", Admin: true}, "o1")
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), Actor{UserID: "other"}, "o1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListForUser(t *testing.T) {
	f := newFixture()
	f.orders = newOrderRepo(
		placedOrder("o1", "u1", StatusPending),
		placedOrder("o2", "u1", StatusDelivered),
		placedOrder("o3", "u2", StatusPending),
	)
	f.svc = NewService(f.carts, f.catalog, f.orders, f.users, f.tx, DefaultPricing())

	orders, err := f.svc.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, "u1", o.UserID, fmt.Sprintf("order %s", o.ID))
	}
}
