package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gohmolo58-collab/caisse-manger/internal/logger"
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	service   *Service
	store     *memStore
	inventory *memInventory
	publisher *memPublisher
}

func newFixture(taxRate string) *fixture {
	cat := &memCatalog{items: map[string]*models.MenuItemRef{
		"espresso": {
			ID: "espresso", Name: "Espresso", Category: "Beverages",
			Price: dec("2.50"), Available: true,
			Ingredients: []models.IngredientUse{
				{IngredientID: "coffee-beans", Quantity: dec("0.02")},
			},
		},
		"croissant": {
			ID: "croissant", Name: "Croissant", Category: "Pastries",
			Price: dec("3.50"), Available: true,
			Ingredients: []models.IngredientUse{
				{IngredientID: "flour", Quantity: dec("0.1")},
				{IngredientID: "butter", Quantity: dec("0.05")},
			},
		},
		"seasonal-soup": {
			ID: "seasonal-soup", Name: "Seasonal Soup", Category: "Food",
			Price: dec("6.00"), Available: false,
		},
		"mystery-cake": {
			ID: "mystery-cake", Name: "Mystery Cake", Category: "Desserts",
			Price: dec("4.00"), Available: true,
			Ingredients: []models.IngredientUse{
				{IngredientID: "retired-ingredient", Quantity: dec("1")},
			},
		},
	}}

	inv := newMemInventory(map[string]decimal.Decimal{
		"coffee-beans": dec("5"),
		"flour":        dec("20"),
		"butter":       dec("10"),
	})

	store := newMemStore()
	pub := &memPublisher{}

	svc := NewService(store, cat, inv, &memSettings{taxRate: dec(taxRate)}, pub, nil, logger.New("test"))
	svc.now = func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	}

	return &fixture{service: svc, store: store, inventory: inv, publisher: pub}
}

func scenarioRequest(discount string) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		Type: "takeout",
		Items: []models.OrderLineRequest{
			{MenuItemID: "espresso", Quantity: 2},
			{MenuItemID: "croissant", Quantity: 1},
		},
		Discount: dec(discount),
	}
}

func TestCreateOrder_Pricing(t *testing.T) {
	f := newFixture("20")

	// Scenario A: no discount
	o, err := f.service.CreateOrder(context.Background(), scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(dec("8.50")), "subtotal = %s", o.Subtotal)
	assert.True(t, o.Tax.Equal(dec("1.70")), "tax = %s", o.Tax)
	assert.True(t, o.Total.Equal(dec("10.20")), "total = %s", o.Total)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, models.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, "cashier-1", o.Cashier)
	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].Subtotal.Equal(dec("5.00")), "line subtotal = %s", o.Items[0].Subtotal)
	assert.Equal(t, "Espresso", o.Items[0].Name)

	// Scenario B: discount 1.00
	o2, err := f.service.CreateOrder(context.Background(), scenarioRequest("1.00"), "cashier-1", "req-2")
	require.NoError(t, err)
	assert.True(t, o2.Tax.Equal(dec("1.50")), "tax = %s", o2.Tax)
	assert.True(t, o2.Total.Equal(dec("9.00")), "total = %s", o2.Total)
}

func TestCreateOrder_TotalInvariant(t *testing.T) {
	// A tax rate producing more than two decimal places exercises the
	// rounding boundary: total must equal round2((subtotal-discount)+tax).
	f := newFixture("8.25")

	o, err := f.service.CreateOrder(context.Background(), scenarioRequest("0.37"), "cashier-1", "req-1")
	require.NoError(t, err)

	after := o.Subtotal.Sub(o.Discount)
	wantTax := after.Mul(dec("8.25")).Div(dec("100"))
	assert.True(t, o.Tax.Equal(wantTax.Round(2)), "tax = %s, want %s", o.Tax, wantTax.Round(2))
	assert.True(t, o.Total.Equal(after.Add(wantTax).Round(2)), "total = %s", o.Total)
	assert.False(t, o.Total.IsNegative())
}

func TestCreateOrder_DiscountBound(t *testing.T) {
	f := newFixture("20")

	// Above subtotal: rejected, nothing persisted, no stock touched.
	_, err := f.service.CreateOrder(context.Background(), scenarioRequest("8.51"), "cashier-1", "req-1")
	require.ErrorIs(t, err, ErrInvalidDiscount)
	assert.Equal(t, 0, f.store.count())
	assert.True(t, f.inventory.stock["coffee-beans"].Equal(dec("5")))

	// Exactly subtotal: allowed, total collapses to tax on zero.
	o, err := f.service.CreateOrder(context.Background(), scenarioRequest("8.50"), "cashier-1", "req-2")
	require.NoError(t, err)
	assert.True(t, o.Tax.Equal(dec("0.00")), "tax = %s", o.Tax)
	assert.True(t, o.Total.Equal(dec("0.00")), "total = %s", o.Total)
}

func TestCreateOrder_ItemNotFound(t *testing.T) {
	f := newFixture("20")

	req := &models.CreateOrderRequest{
		Type:  "takeout",
		Items: []models.OrderLineRequest{{MenuItemID: "no-such-item", Quantity: 1}},
	}
	_, err := f.service.CreateOrder(context.Background(), req, "cashier-1", "req-1")
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, 0, f.store.count())
}

func TestCreateOrder_ItemUnavailable(t *testing.T) {
	f := newFixture("20")

	// Scenario E: the unavailable line comes after a valid one, but stock for
	// the valid line must still be untouched.
	req := &models.CreateOrderRequest{
		Type: "takeout",
		Items: []models.OrderLineRequest{
			{MenuItemID: "espresso", Quantity: 1},
			{MenuItemID: "seasonal-soup", Quantity: 1},
		},
	}
	_, err := f.service.CreateOrder(context.Background(), req, "cashier-1", "req-1")
	require.ErrorIs(t, err, ErrItemUnavailable)
	assert.Equal(t, 0, f.store.count())
	assert.True(t, f.inventory.stock["coffee-beans"].Equal(dec("5")), "stock mutated on rejected order")
}

func TestCreateOrder_DecrementsInventory(t *testing.T) {
	f := newFixture("20")

	_, err := f.service.CreateOrder(context.Background(), scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	// espresso x2 at 0.02 per unit, croissant x1 at 0.1 flour / 0.05 butter
	assert.True(t, f.inventory.stock["coffee-beans"].Equal(dec("4.96")), "coffee = %s", f.inventory.stock["coffee-beans"])
	assert.True(t, f.inventory.stock["flour"].Equal(dec("19.9")), "flour = %s", f.inventory.stock["flour"])
	assert.True(t, f.inventory.stock["butter"].Equal(dec("9.95")), "butter = %s", f.inventory.stock["butter"])
}

func TestCreateOrder_UnknownIngredientSkipped(t *testing.T) {
	f := newFixture("20")

	req := &models.CreateOrderRequest{
		Type:  "takeout",
		Items: []models.OrderLineRequest{{MenuItemID: "mystery-cake", Quantity: 1}},
	}
	o, err := f.service.CreateOrder(context.Background(), req, "cashier-1", "req-1")
	require.NoError(t, err, "a stale recipe row must not block the sale")
	assert.Equal(t, 1, f.store.count())
	assert.Contains(t, f.inventory.skipped, "retired-ingredient")
	assert.True(t, o.Total.Equal(dec("4.80")), "total = %s", o.Total)
}

func TestCreateOrder_NumberingSequence(t *testing.T) {
	f := newFixture("20")

	seen := map[string]bool{}
	for i := 1; i <= 5; i++ {
		o, err := f.service.CreateOrder(context.Background(), scenarioRequest("0"), "cashier-1", fmt.Sprintf("req-%d", i))
		require.NoError(t, err)

		want := fmt.Sprintf("ORD-20240315-%04d", i)
		assert.Equal(t, want, o.OrderNumber)
		assert.False(t, seen[o.OrderNumber], "duplicate order number %s", o.OrderNumber)
		seen[o.OrderNumber] = true
	}
}

func TestCreateOrder_PublishesEvent(t *testing.T) {
	f := newFixture("20")

	_, err := f.service.CreateOrder(context.Background(), scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "order.created.takeout", f.publisher.events[0])
}

func TestChangeStatus_FullLifecycle(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	for _, status := range []models.OrderStatus{models.StatusPreparing, models.StatusReady, models.StatusCompleted} {
		o, err = f.service.ChangeStatus(ctx, o.ID, status, "kitchen-1", "req-2")
		require.NoError(t, err, "transition to %s", status)
		assert.Equal(t, status, o.Status)
	}

	require.NotNil(t, o.CompletedAt)
	assert.Equal(t, f.service.now(), *o.CompletedAt)
}

func TestChangeStatus_Terminality(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	tests := []struct {
		name     string
		terminal models.OrderStatus
	}{
		{"completed is terminal", models.StatusCompleted},
		{"cancelled is terminal", models.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
			require.NoError(t, err)

			o, err = f.service.ChangeStatus(ctx, o.ID, tt.terminal, "cashier-1", "req-2")
			require.NoError(t, err)
			require.NotNil(t, o.CompletedAt, "completedAt stamped on entering %s", tt.terminal)

			for _, next := range []models.OrderStatus{
				models.StatusPending, models.StatusPreparing, models.StatusReady,
				models.StatusCompleted, models.StatusCancelled,
			} {
				_, err := f.service.ChangeStatus(ctx, o.ID, next, "cashier-1", "req-3")
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.terminal, next)
			}
		})
	}
}

func TestChangeStatus_IdempotentResubmission(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	o, err = f.service.ChangeStatus(ctx, o.ID, models.StatusPreparing, "kitchen-1", "req-2")
	require.NoError(t, err)
	version := o.Version

	// Same target again: no-op success, nothing rewritten.
	again, err := f.service.ChangeStatus(ctx, o.ID, models.StatusPreparing, "kitchen-1", "req-3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, again.Status)
	assert.Equal(t, version, again.Version)
}

func TestChangeStatus_IllegalJump(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	_, err = f.service.ChangeStatus(ctx, o.ID, models.StatusReady, "kitchen-1", "req-2")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.ChangeStatus(ctx, "no-such-order", models.StatusPreparing, "kitchen-1", "req-3")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSettlePayment_Cash(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	// Scenario C: exact cash on Scenario B's order.
	o, err := f.service.CreateOrder(ctx, scenarioRequest("1.00"), "cashier-1", "req-1")
	require.NoError(t, err)
	require.True(t, o.Total.Equal(dec("9.00")))

	paid, change, err := f.service.SettlePayment(ctx, o.ID, models.PaymentCash, dec("9.00"), "req-2")
	require.NoError(t, err)
	assert.True(t, change.Equal(dec("0.00")), "change = %s", change)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, models.PaymentCash, paid.PaymentMethod)
	assert.Equal(t, models.StatusCompleted, paid.Status)
	require.NotNil(t, paid.CompletedAt)
}

func TestSettlePayment_CashChange(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, scenarioRequest("1.00"), "cashier-1", "req-1")
	require.NoError(t, err)

	_, change, err := f.service.SettlePayment(ctx, o.ID, models.PaymentCash, dec("20.00"), "req-2")
	require.NoError(t, err)
	assert.True(t, change.Equal(dec("11.00")), "change = %s", change)
}

func TestSettlePayment_Insufficient(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	// Scenario D: 5.00 cash against a 9.00 total.
	o, err := f.service.CreateOrder(ctx, scenarioRequest("1.00"), "cashier-1", "req-1")
	require.NoError(t, err)

	_, _, err = f.service.SettlePayment(ctx, o.ID, models.PaymentCash, dec("5.00"), "req-2")
	require.ErrorIs(t, err, ErrInsufficientPayment)

	// The order is untouched by the rejected attempt.
	unchanged, err := f.service.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, unchanged.PaymentStatus)
	assert.Equal(t, models.StatusPending, unchanged.Status)
}

func TestSettlePayment_NonCashIgnoresAmount(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	paid, change, err := f.service.SettlePayment(ctx, o.ID, models.PaymentCard, decimal.Zero, "req-2")
	require.NoError(t, err)
	assert.True(t, change.IsZero())
	assert.Equal(t, models.PaymentCard, paid.PaymentMethod)
}

func TestSettlePayment_AlreadyPaid(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	_, _, err = f.service.SettlePayment(ctx, o.ID, models.PaymentCash, dec("20.00"), "req-2")
	require.NoError(t, err)

	_, _, err = f.service.SettlePayment(ctx, o.ID, models.PaymentCash, dec("20.00"), "req-3")
	require.ErrorIs(t, err, ErrAlreadyPaid)

	_, _, err = f.service.SettlePayment(ctx, "no-such-order", models.PaymentCash, dec("20.00"), "req-4")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRefundPayment(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)

	// Refunding an unpaid order is rejected.
	_, err = f.service.RefundPayment(ctx, o.ID, "req-2")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = f.service.SettlePayment(ctx, o.ID, models.PaymentCard, decimal.Zero, "req-3")
	require.NoError(t, err)

	refunded, err := f.service.RefundPayment(ctx, o.ID, "req-4")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.PaymentStatus)
	assert.Equal(t, models.StatusCompleted, refunded.Status, "refund leaves fulfillment status alone")
}

func TestListOrders(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o1, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)
	o2, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-2")
	require.NoError(t, err)
	_, err = f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-3")
	require.NoError(t, err)

	_, _, err = f.service.SettlePayment(ctx, o1.ID, models.PaymentCard, decimal.Zero, "req-4")
	require.NoError(t, err)
	_, err = f.service.ChangeStatus(ctx, o2.ID, models.StatusCancelled, "cashier-1", "req-5")
	require.NoError(t, err)

	all, err := f.service.ListOrders(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	pending, err := f.service.ListOrders(ctx, ListFilter{Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.StatusPending, pending[0].Status)

	paid, err := f.service.ListOrders(ctx, ListFilter{PaymentStatus: models.PaymentPaid})
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, o1.ID, paid[0].ID)

	otherDay := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	none, err := f.service.ListOrders(ctx, ListFilter{Date: &otherDay})
	require.NoError(t, err)
	assert.Empty(t, none)

	sameDay := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	today, err := f.service.ListOrders(ctx, ListFilter{Date: &sameDay})
	require.NoError(t, err)
	assert.Len(t, today, 3)
}

func TestTodaySummary(t *testing.T) {
	f := newFixture("20")
	ctx := context.Background()

	o1, err := f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-1")
	require.NoError(t, err)
	_, err = f.service.CreateOrder(ctx, scenarioRequest("0"), "cashier-1", "req-2")
	require.NoError(t, err)

	_, _, err = f.service.SettlePayment(ctx, o1.ID, models.PaymentCard, decimal.Zero, "req-3")
	require.NoError(t, err)

	sum, err := f.service.TodaySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalOrders)
	assert.Equal(t, 1, sum.PendingOrders)
	assert.Equal(t, 1, sum.CompletedOrders)
	assert.True(t, sum.TotalRevenue.Equal(dec("20.40")), "revenue = %s", sum.TotalRevenue)
}
