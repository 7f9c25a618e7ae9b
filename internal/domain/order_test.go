package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// helper для создания заказа CREATED с одной позицией.
func makeOrder(t *testing.T) domain.Order {
	t.Helper()

	order, err := domain.NewOrder("customer-1", "address-1")
	if err != nil {
		t.Fatalf("new order failed: %v", err)
	}
	order.ID = "order-1"
	if err := order.AddItem(domain.OrderItem{
		ID:        "item-1",
		ProductID: "product-1",
		Quantity:  5,
		UnitPrice: decimal.RequireFromString("1.00"),
	}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	return order
}

func TestNewOrder_InitialState(t *testing.T) {
	order, err := domain.NewOrder("customer-1", "address-1")
	if err != nil {
		t.Fatalf("new order failed: %v", err)
	}
	if order.Status != domain.OrderStatusCreated {
		t.Fatalf("expected status CREATED, got %s", order.Status)
	}
	if !order.Total.Equal(decimal.Zero) {
		t.Fatalf("expected zero total, got %s", order.Total)
	}
	if order.OrderDate.IsZero() {
		t.Fatal("expected order date to be set at construction")
	}
}

func TestNewOrder_RequiredReferences(t *testing.T) {
	if _, err := domain.NewOrder("", "address-1"); !errors.Is(err, domain.ErrCustomerRequired) {
		t.Fatalf("expected ErrCustomerRequired, got %v", err)
	}
	if _, err := domain.NewOrder("customer-1", ""); !errors.Is(err, domain.ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}

func TestOrderTotal_ExactDecimalSum(t *testing.T) {
	order := makeOrder(t)
	order.Items = nil
	order.RecomputeTotal()

	// 10.00 x 3 + 2.50 x 2 = 35.00 без потери точности.
	items := []domain.OrderItem{
		{ProductID: "product-1", Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: "product-2", Quantity: 2, UnitPrice: decimal.RequireFromString("2.50")},
	}
	for _, item := range items {
		if err := order.AddItem(item); err != nil {
			t.Fatalf("add item failed: %v", err)
		}
	}
	if want := decimal.RequireFromString("35.00"); !order.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, order.Total)
	}
}

func TestOrderAddItem_BindsBackref(t *testing.T) {
	order := makeOrder(t)
	for _, item := range order.Items {
		if item.OrderID != order.ID {
			t.Fatalf("expected item bound to %s, got %s", order.ID, item.OrderID)
		}
	}
}

func TestOrderAddItem_Validation(t *testing.T) {
	order := makeOrder(t)

	if err := order.AddItem(domain.OrderItem{ProductID: "", Quantity: 1}); !errors.Is(err, domain.ErrProductRequired) {
		t.Fatalf("expected ErrProductRequired, got %v", err)
	}
	if err := order.AddItem(domain.OrderItem{ProductID: "p", Quantity: 0}); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if err := order.AddItem(domain.OrderItem{
		ProductID: "p",
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("-0.01"),
	}); !errors.Is(err, domain.ErrItemPriceInvalid) {
		t.Fatalf("expected ErrItemPriceInvalid, got %v", err)
	}
}

func TestOrderRemoveItem_RecomputesTotal(t *testing.T) {
	order := makeOrder(t)
	if err := order.AddItem(domain.OrderItem{
		ID:        "item-2",
		ProductID: "product-2",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("2.50"),
	}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	if err := order.RemoveItem("item-1"); err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	if want := decimal.RequireFromString("5.00"); !order.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, order.Total)
	}

	if err := order.RemoveItem("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderReplaceItems(t *testing.T) {
	order := makeOrder(t)

	err := order.ReplaceItems([]domain.OrderItem{
		{ProductID: "product-2", Quantity: 4, UnitPrice: decimal.RequireFromString("3.25")},
		{ProductID: "product-3", Quantity: 1, UnitPrice: decimal.RequireFromString("0.75")},
	})
	if err != nil {
		t.Fatalf("replace items failed: %v", err)
	}

	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if want := decimal.RequireFromString("13.75"); !order.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, order.Total)
	}
	for _, item := range order.Items {
		if item.OrderID != order.ID {
			t.Fatalf("expected item bound to %s, got %s", order.ID, item.OrderID)
		}
	}
}

func TestOrderReplaceItems_Empty(t *testing.T) {
	order := makeOrder(t)
	if err := order.ReplaceItems(nil); err != nil {
		t.Fatalf("replace with empty set failed: %v", err)
	}
	if !order.Total.Equal(decimal.Zero) {
		t.Fatalf("expected zero total after clearing items, got %s", order.Total)
	}
}

func TestOrderChangeStatus_AllowedTransitions(t *testing.T) {
	cases := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
	}{
		{domain.OrderStatusCreated, domain.OrderStatusPaid},
		{domain.OrderStatusCreated, domain.OrderStatusCancelled},
		{domain.OrderStatusPaid, domain.OrderStatusShipped},
		{domain.OrderStatusPaid, domain.OrderStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			order := makeOrder(t)
			order.Status = tc.from
			if err := order.ChangeStatus(tc.to); err != nil {
				t.Fatalf("expected transition %s -> %s to succeed, got %v", tc.from, tc.to, err)
			}
			if order.Status != tc.to {
				t.Fatalf("expected status %s, got %s", tc.to, order.Status)
			}
		})
	}
}

func TestOrderChangeStatus_ForbiddenTransitions(t *testing.T) {
	// Полный перебор пар (from, to) вне таблицы переходов.
	all := []domain.OrderStatus{
		domain.OrderStatusCreated,
		domain.OrderStatusPaid,
		domain.OrderStatusShipped,
		domain.OrderStatusCancelled,
	}
	allowed := map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusCreated: {domain.OrderStatusPaid, domain.OrderStatusCancelled},
		domain.OrderStatusPaid:    {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			if from == to {
				continue
			}
			ok := false
			for _, a := range allowed[from] {
				if a == to {
					ok = true
				}
			}
			if ok {
				continue
			}

			order := makeOrder(t)
			order.Status = from
			if err := order.ChangeStatus(to); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Fatalf("expected %s -> %s to fail with ErrInvalidTransition, got %v", from, to, err)
			}
			if order.Status != from {
				t.Fatalf("expected status to stay %s, got %s", from, order.Status)
			}
		}
	}
}

func TestOrderChangeStatus_SameStatusNoop(t *testing.T) {
	order := makeOrder(t)
	order.Status = domain.OrderStatusPaid
	updatedAt := order.UpdatedAt

	if err := order.ChangeStatus(domain.OrderStatusPaid); err != nil {
		t.Fatalf("same-status transition must be a no-op, got %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected status PAID, got %s", order.Status)
	}
	if !order.UpdatedAt.Equal(updatedAt) {
		t.Fatal("no-op transition must not touch the order")
	}
}

func TestOrderChangeStatus_EmptyTarget(t *testing.T) {
	order := makeOrder(t)
	if err := order.ChangeStatus(""); !errors.Is(err, domain.ErrStatusRequired) {
		t.Fatalf("expected ErrStatusRequired, got %v", err)
	}
	if err := order.ChangeStatus("UNKNOWN"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for unknown status, got %v", err)
	}
}

func TestOrderTerminal_Immutable(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusCancelled} {
		order := makeOrder(t)
		order.Status = status

		item := domain.OrderItem{ProductID: "product-2", Quantity: 1, UnitPrice: decimal.New(1, 0)}
		if err := order.AddItem(item); !errors.Is(err, domain.ErrOrderImmutable) {
			t.Fatalf("expected ErrOrderImmutable on AddItem in %s, got %v", status, err)
		}
		if err := order.RemoveItem("item-1"); !errors.Is(err, domain.ErrOrderImmutable) {
			t.Fatalf("expected ErrOrderImmutable on RemoveItem in %s, got %v", status, err)
		}
		if err := order.ReplaceItems(nil); !errors.Is(err, domain.ErrOrderImmutable) {
			t.Fatalf("expected ErrOrderImmutable on ReplaceItems in %s, got %v", status, err)
		}
	}
}

func TestOrderValidateInvariants(t *testing.T) {
	order := makeOrder(t)
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	order.Total = decimal.RequireFromString("999.99")
	if errs := order.ValidateInvariants(); len(errs) == 0 {
		t.Fatal("expected total mismatch to be reported")
	}
}
