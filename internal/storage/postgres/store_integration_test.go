package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestStore_PostgresAdjustStockIsAtomic(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	product := seedProduct(t, store, "GDT-001", "2.50", 50)

	const workers = 100

	var wg sync.WaitGroup
	succeeded := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Products().AdjustStock(product.ID, -1); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	var wins int
	for range succeeded {
		wins++
	}
	if wins != 50 {
		t.Fatalf("expected exactly 50 successful decrements, got %d", wins)
	}

	final, err := store.Products().Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if final.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", final.Stock)
	}

	if _, err := store.Products().AdjustStock(product.ID, -1); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestStore_PostgresWithinTxRollsBackOnError(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	product := seedProduct(t, store, "WGT-002", "10.00", 10)

	sentinel := errors.New("boom")
	err := store.WithinTx(context.Background(), func(tx domain.RepositorySet) error {
		if _, err := tx.Products().AdjustStock(product.ID, -4); err != nil {
			return err
		}
		if _, err := tx.Outbox().Enqueue(domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   "order-x",
			EventType:     "order.created",
			Payload:       []byte(`{}`),
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	reloaded, err := store.Products().Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if reloaded.Stock != 10 {
		t.Fatalf("expected rollback to restore stock 10, got %d", reloaded.Stock)
	}

	stats, err := store.Outbox().Stats()
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty outbox after rollback, got %d", stats.PendingCount)
	}
}

func TestStore_PostgresMigrationStatus(t *testing.T) {
	store := openStoreForIntegrationTest(t)

	version, count, err := store.MigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if version < 1 || count < 1 {
		t.Fatalf("expected at least one applied migration, got version=%d count=%d", version, count)
	}
}
