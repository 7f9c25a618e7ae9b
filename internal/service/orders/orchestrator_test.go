package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type fixture struct {
	orch     *Orchestrator
	store    *memory.Store
	customer domain.Customer
	address  domain.Address
	widget   domain.Product // 10.00, остаток 10
	gadget   domain.Product // 2.50, остаток 5
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	orch := NewOrchestratorWithoutMetrics(store, store, inventory.NewGuard(nil), nil)

	customer, err := store.Customers().Create(domain.Customer{
		FullName: "Анна Петрова",
		Email:    "anna@example.com",
	})
	require.NoError(t, err)

	address, err := store.Addresses().Create(domain.Address{
		CustomerID: customer.ID,
		Line1:      "Невский проспект, 1",
		City:       "Санкт-Петербург",
		PostalCode: "191186",
		Country:    "RU",
		IsDefault:  true,
	})
	require.NoError(t, err)

	widget, err := store.Products().Create(domain.Product{
		SKU:    "WGT-001",
		Name:   "Widget",
		Price:  decimal.RequireFromString("10.00"),
		Stock:  10,
		Active: true,
	})
	require.NoError(t, err)

	gadget, err := store.Products().Create(domain.Product{
		SKU:    "GDT-001",
		Name:   "Gadget",
		Price:  decimal.RequireFromString("2.50"),
		Stock:  5,
		Active: true,
	})
	require.NoError(t, err)

	return &fixture{
		orch:     orch,
		store:    store,
		customer: customer,
		address:  address,
		widget:   widget,
		gadget:   gadget,
	}
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	product, err := f.store.Products().Get(productID)
	require.NoError(t, err)
	return product.Stock
}

func (f *fixture) pendingEvents(t *testing.T) int {
	t.Helper()
	stats, err := f.store.Outbox().Stats()
	require.NoError(t, err)
	return stats.PendingCount
}

func TestCreate_ComputesExactTotalAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 3},
		{ProductID: f.gadget.ID, Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCreated, order.Status)
	assert.Equal(t, "35", order.Total.String())
	assert.True(t, order.Total.Equal(decimal.RequireFromString("35.00")))
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 7, f.stock(t, f.widget.ID))
	assert.Equal(t, 3, f.stock(t, f.gadget.ID))
	assert.Equal(t, 1, f.pendingEvents(t))
}

func TestCreate_SnapshotsPriceAtOrderTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 1},
	})
	require.NoError(t, err)

	// Подорожание товара не меняет уже созданный заказ.
	product, err := f.store.Products().Get(f.widget.ID)
	require.NoError(t, err)
	product.Price = decimal.RequireFromString("99.99")
	_, err = f.store.Products().Update(product)
	require.NoError(t, err)

	reloaded, err := f.orch.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Total.Equal(decimal.RequireFromString("10.00")))
}

func TestCreate_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 4},
		{ProductID: f.gadget.ID, Quantity: 6}, // остаток 5
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 10, f.stock(t, f.widget.ID), "успевшее списание должно откатиться")
	assert.Equal(t, 5, f.stock(t, f.gadget.ID))

	page, err := f.orch.ListByCustomer(ctx, f.customer.ID, domain.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Zero(t, f.pendingEvents(t))
}

func TestCreate_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Create(ctx, "missing", f.address.ID, nil)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = f.orch.Create(ctx, f.customer.ID, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)

	_, err = f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: "missing", Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 0},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 10, f.stock(t, f.widget.ID))
}

func TestChangeStatus_CancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 4},
	})
	require.NoError(t, err)
	require.Equal(t, 6, f.stock(t, f.widget.ID))

	cancelled, err := f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.stock(t, f.widget.ID))
}

func TestChangeStatus_TransitionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, nil)
	require.NoError(t, err)

	_, err = f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusShipped)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	paid, err := f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)

	shipped, err := f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)

	_, err = f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestChangeStatus_EmptyTargetRejectedBeforeTableLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, nil)
	require.NoError(t, err)

	_, err = f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, "")
	assert.ErrorIs(t, err, domain.ErrStatusRequired)
}

func TestChangeStatus_SameStatusIsIdempotentNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 2},
	})
	require.NoError(t, err)

	paid, err := f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	eventsAfterPay := f.pendingEvents(t)

	again, err := f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)

	assert.Equal(t, paid.Status, again.Status)
	assert.Equal(t, paid.Version, again.Version, "повтор не должен создавать новую версию")
	assert.Equal(t, 8, f.stock(t, f.widget.ID), "повтор не трогает остатки")
	assert.Equal(t, eventsAfterPay, f.pendingEvents(t), "повтор не порождает событий")
}

func TestChangeStatus_OwnershipMismatchLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stranger, err := f.store.Customers().Create(domain.Customer{
		FullName: "Пётр Иванов",
		Email:    "petr@example.com",
	})
	require.NoError(t, err)

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = f.orch.ChangeStatus(ctx, stranger.ID, order.ID, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrOwnershipMismatch)

	reloaded, err := f.orch.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCreated, reloaded.Status)
	assert.Equal(t, 9, f.stock(t, f.widget.ID), "остаток остаётся списанным")
}

func TestReplaceItems_ReleaseThenDecrementSharesThePool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Полный остаток gadget — 5. Заказ удерживает 3, свободно 2.
	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.gadget.ID, Quantity: 3},
	})
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(t, f.gadget.ID))

	// Замена на 5 проходит: сначала вернулись 3, пул снова 5.
	updated, err := f.orch.ReplaceItems(ctx, f.customer.ID, order.ID, []ItemSpec{
		{ProductID: f.gadget.ID, Quantity: 5},
	})
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 0, f.stock(t, f.gadget.ID))
}

func TestReplaceItems_FailedDecrementRestoresReleasedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.gadget.ID, Quantity: 5},
	})
	require.NoError(t, err)
	require.Equal(t, 0, f.stock(t, f.gadget.ID))

	_, err = f.orch.ReplaceItems(ctx, f.customer.ID, order.ID, []ItemSpec{
		{ProductID: f.gadget.ID, Quantity: 6},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Возврат прежних позиций откатился вместе со списанием.
	assert.Equal(t, 0, f.stock(t, f.gadget.ID))

	reloaded, err := f.orch.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 5, reloaded.Items[0].Quantity)
}

func TestReplaceItems_EmptySetClearsOrderAndReleasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 3},
	})
	require.NoError(t, err)

	updated, err := f.orch.ReplaceItems(ctx, f.customer.ID, order.ID, nil)
	require.NoError(t, err)

	assert.Empty(t, updated.Items)
	assert.True(t, updated.Total.IsZero())
	assert.Equal(t, 10, f.stock(t, f.widget.ID))
}

func TestReplaceItems_TerminalOrderIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = f.orch.ReplaceItems(ctx, f.customer.ID, order.ID, []ItemSpec{
		{ProductID: f.gadget.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrOrderImmutable)
}

func TestReplaceItems_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stranger, err := f.store.Customers().Create(domain.Customer{
		FullName: "Пётр Иванов",
		Email:    "petr@example.com",
	})
	require.NoError(t, err)

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, nil)
	require.NoError(t, err)

	_, err = f.orch.ReplaceItems(ctx, stranger.ID, order.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrOwnershipMismatch)
	assert.Equal(t, 10, f.stock(t, f.widget.ID))
}

func TestDelete_ReleasesHeldStockForOpenOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 4},
	})
	require.NoError(t, err)
	require.Equal(t, 6, f.stock(t, f.widget.ID))

	require.NoError(t, f.orch.Delete(ctx, f.customer.ID, order.ID))

	assert.Equal(t, 10, f.stock(t, f.widget.ID))
	_, err = f.orch.Get(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestDelete_ShippedOrderKeepsStockConsumed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, []ItemSpec{
		{ProductID: f.widget.ID, Quantity: 4},
	})
	require.NoError(t, err)

	_, err = f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	_, err = f.orch.ChangeStatus(ctx, f.customer.ID, order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)

	require.NoError(t, f.orch.Delete(ctx, f.customer.ID, order.ID))

	assert.Equal(t, 6, f.stock(t, f.widget.ID), "отгруженный товар не возвращается на склад")
}

func TestListByDateRange_NormalizesReversedBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, nil)
	require.NoError(t, err)

	start := order.OrderDate.Add(-time.Hour)
	end := order.OrderDate.Add(time.Hour)

	page, err := f.orch.ListByDateRange(ctx, end, start, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestListByCustomer_AppliesDefaultSortAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.orch.Create(ctx, f.customer.ID, f.address.ID, nil)
		require.NoError(t, err)
	}

	page, err := f.orch.ListByCustomer(ctx, f.customer.ID, domain.PageRequest{Size: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Size)
}
