package inventory_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newGuardFixture(t *testing.T, stock int) (*inventory.Guard, domain.ProductRepository, string) {
	t.Helper()

	st := memory.NewStore()
	product, err := st.Products().Create(domain.Product{
		SKU:   "sku-1",
		Name:  "Товар",
		Price: decimal.RequireFromString("1.00"),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	return inventory.NewGuard(nil), st.Products(), product.ID
}

func TestGuardDecrement(t *testing.T) {
	guard, products, productID := newGuardFixture(t, 10)

	if err := guard.Decrement(products, productID, 4); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	product, err := products.Get(productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 6 {
		t.Fatalf("expected stock 6, got %d", product.Stock)
	}
}

func TestGuardDecrement_InvalidQuantity(t *testing.T) {
	guard, products, productID := newGuardFixture(t, 10)

	for _, qty := range []int{0, -1} {
		if err := guard.Decrement(products, productID, qty); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity for qty=%d, got %v", qty, err)
		}
	}
}

func TestGuardDecrement_InsufficientStock(t *testing.T) {
	guard, products, productID := newGuardFixture(t, 3)

	if err := guard.Decrement(products, productID, 4); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	product, err := products.Get(productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 3 {
		t.Fatalf("failed decrement must not change stock, got %d", product.Stock)
	}
}

func TestGuardIncrement(t *testing.T) {
	guard, products, productID := newGuardFixture(t, 0)

	if err := guard.Increment(products, productID, 7); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := guard.Increment(products, productID, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	product, err := products.Get(productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", product.Stock)
	}
}

func TestGuard_UnknownProduct(t *testing.T) {
	guard, products, _ := newGuardFixture(t, 1)

	if err := guard.Decrement(products, "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := guard.Increment(products, "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
