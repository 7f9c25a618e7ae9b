package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func seedProduct(t *testing.T, st *memory.Store, sku string, stock int) domain.Product {
	t.Helper()
	product, err := st.Products().Create(domain.Product{
		SKU:    sku,
		Name:   "Товар " + sku,
		Price:  decimal.RequireFromString("10.00"),
		Stock:  stock,
		Active: true,
	})
	if err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	return product
}

func TestWithinTx_CommitsAllWrites(t *testing.T) {
	st := memory.NewStore()
	product := seedProduct(t, st, "sku-1", 10)

	err := st.WithinTx(context.Background(), func(tx domain.RepositorySet) error {
		if _, err := tx.Products().AdjustStock(product.ID, -4); err != nil {
			return err
		}
		customer, err := tx.Customers().Create(domain.Customer{FullName: "Иван", Email: "ivan@example.com"})
		if err != nil {
			return err
		}
		_, err = tx.Addresses().Create(domain.Address{CustomerID: customer.ID, Line1: "ул. Ленина 1", City: "Москва", PostalCode: "101000", Country: "RU"})
		return err
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	stored, err := st.Products().Get(product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if stored.Stock != 6 {
		t.Fatalf("expected stock 6, got %d", stored.Stock)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	st := memory.NewStore()
	product := seedProduct(t, st, "sku-1", 10)

	sentinel := errors.New("boom")
	err := st.WithinTx(context.Background(), func(tx domain.RepositorySet) error {
		if _, err := tx.Products().AdjustStock(product.ID, -4); err != nil {
			return err
		}
		if _, err := tx.Customers().Create(domain.Customer{FullName: "Иван", Email: "ivan@example.com"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	// Все записи транзакции должны быть откатаны.
	stored, err := st.Products().Get(product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if stored.Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", stored.Stock)
	}
	if _, err := st.Customers().GetByEmail("ivan@example.com"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected customer write to be rolled back, got %v", err)
	}
}

func TestWithinTx_CancelledContext(t *testing.T) {
	st := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.WithinTx(ctx, func(tx domain.RepositorySet) error {
		t.Fatal("fn must not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
