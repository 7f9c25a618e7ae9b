package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/customers"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
	"github.com/vladislavdragonenkov/storefront/internal/service/products"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies содержит собранные сервисы приложения.
type Dependencies struct {
	TxManager domain.TxManager
	Repos     domain.RepositorySet
	Orders    *orders.Orchestrator
	Products  *products.Service
	Customers *customers.Service
	Logger    *log.Entry

	// Ping проверяет доступность хранилища (для health checks).
	Ping func(ctx context.Context) error
	// Close освобождает ресурсы хранилища.
	Close func() error
}

// NewDependencies собирает зависимости: PostgreSQL при заданном DSN,
// иначе in-memory хранилище.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Logger: logger,
		Ping:   func(context.Context) error { return nil },
		Close:  func() error { return nil },
	}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		deps.TxManager = store
		deps.Repos = store
		deps.Ping = store.Ping
		deps.Close = store.Close
		logger.Info("postgres storage initialized")
	} else {
		store := memory.NewStore()
		deps.TxManager = store
		deps.Repos = store
		logger.Info("in-memory storage initialized")
	}

	guard := inventory.NewGuard(logger)
	deps.Orders = orders.NewOrchestrator(deps.TxManager, deps.Repos, guard, logger.WithField("component", "orders"))
	deps.Products = products.NewService(deps.Repos, logger.WithField("component", "products"))
	deps.Customers = customers.NewService(deps.TxManager, deps.Repos, logger.WithField("component", "customers"))

	return deps, nil
}
