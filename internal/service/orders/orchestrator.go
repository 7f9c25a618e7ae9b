package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
)

// ItemSpec описывает запрошенную позицию заказа: товар и количество.
// Цена не принимается снаружи — она снимается с товара в момент операции.
type ItemSpec struct {
	ProductID string
	Quantity  int
}

// Orchestrator координирует агрегат заказа, inventory guard и персистентность.
// Каждый use case исполняется одной транзакцией: либо видимы все записи
// (заказ, позиции, корректировки остатков, outbox), либо ни одна.
type Orchestrator struct {
	txm     domain.TxManager
	repos   domain.RepositorySet
	guard   *inventory.Guard
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	txm domain.TxManager,
	repos domain.RepositorySet,
	guard *inventory.Guard,
	logger *log.Entry,
) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	if guard == nil {
		guard = inventory.NewGuard(logger)
	}
	return &Orchestrator{
		txm:     txm,
		repos:   repos,
		guard:   guard,
		logger:  logger,
		metrics: metrics.NewOrderMetrics(),
	}
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	txm domain.TxManager,
	repos domain.RepositorySet,
	guard *inventory.Guard,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(txm, repos, guard, logger)
	o.metrics = nil
	return o
}

// Create строит заказ в статусе CREATED, снимает текущие цены товаров в
// позиции, списывает остатки и сохраняет заказ с позициями. Любая ошибка
// (в том числе нехватка остатка) откатывает операцию целиком: ни частичных
// списаний, ни частичной персистентности.
func (o *Orchestrator) Create(ctx context.Context, customerID, shippingAddressID string, specs []ItemSpec) (domain.Order, error) {
	start := time.Now()
	defer o.observe("create", start)

	var created domain.Order
	err := o.txm.WithinTx(ctx, func(tx domain.RepositorySet) error {
		if _, err := tx.Customers().Get(customerID); err != nil {
			return err
		}
		if _, err := tx.Addresses().Get(shippingAddressID); err != nil {
			return err
		}

		order, err := domain.NewOrder(customerID, shippingAddressID)
		if err != nil {
			return err
		}

		for _, spec := range specs {
			product, err := tx.Products().Get(spec.ProductID)
			if err != nil {
				return err
			}
			if err := o.guard.Decrement(tx.Products(), product.ID, spec.Quantity); err != nil {
				return err
			}
			o.recordStockAdjustment("decrement")
			// Снимок текущей цены: будущие изменения цены товара
			// не затрагивают уже созданные заказы.
			if err := order.AddItem(domain.OrderItem{
				ProductID: product.ID,
				Quantity:  spec.Quantity,
				UnitPrice: product.Price,
			}); err != nil {
				return err
			}
		}

		order.RecomputeTotal()
		created, err = tx.Orders().Create(order)
		if err != nil {
			return err
		}

		return o.enqueueEvent(tx, kafka.EventTypeOrderCreated, created, nil)
	})
	if err != nil {
		o.fail("create order", err, log.Fields{"customer_id": customerID})
		return domain.Order{}, err
	}

	if o.metrics != nil {
		o.metrics.RecordOrderCreated()
	}
	o.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
		"total":       created.Total.String(),
		"items":       len(created.Items),
	}).Info("order created")
	return created, nil
}

// ReplaceItems заменяет коллекцию позиций заказа. Подсчёт дельты остатков
// по товарам сознательно не выполняется: сначала возвращаются остатки всех
// прежних позиций, затем списываются остатки всех новых. Неудачное списание
// откатывает транзакцию, возвращённые остатки восстанавливаются.
func (o *Orchestrator) ReplaceItems(ctx context.Context, customerID, orderID string, specs []ItemSpec) (domain.Order, error) {
	start := time.Now()
	defer o.observe("replace_items", start)

	var updated domain.Order
	err := o.txm.WithinTx(ctx, func(tx domain.RepositorySet) error {
		order, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return domain.ErrOwnershipMismatch
		}
		if order.Status.Terminal() {
			return domain.ErrOrderImmutable
		}

		// Освобождаем остатки по прежним позициям.
		for _, item := range order.Items {
			if err := o.guard.Increment(tx.Products(), item.ProductID, item.Quantity); err != nil {
				return err
			}
			o.recordStockAdjustment("increment")
		}

		newItems := make([]domain.OrderItem, 0, len(specs))
		for _, spec := range specs {
			product, err := tx.Products().Get(spec.ProductID)
			if err != nil {
				return err
			}
			if err := o.guard.Decrement(tx.Products(), product.ID, spec.Quantity); err != nil {
				return err
			}
			o.recordStockAdjustment("decrement")
			newItems = append(newItems, domain.OrderItem{
				ProductID: product.ID,
				Quantity:  spec.Quantity,
				UnitPrice: product.Price,
			})
		}

		if err := order.ReplaceItems(newItems); err != nil {
			return err
		}

		updated, err = tx.Orders().Update(order)
		if err != nil {
			return err
		}
		return o.enqueueEvent(tx, kafka.EventTypeOrderItemsReplaced, updated, map[string]any{
			"items_count": len(updated.Items),
		})
	})
	if err != nil {
		o.fail("replace order items", err, log.Fields{"order_id": orderID, "customer_id": customerID})
		return domain.Order{}, err
	}

	if o.metrics != nil {
		o.metrics.RecordItemsReplaced()
	}
	o.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"total":    updated.Total.String(),
		"items":    len(updated.Items),
	}).Info("order items replaced")
	return updated, nil
}

// ChangeStatus применяет переход статуса по таблице агрегата. Переход в
// CANCELLED возвращает остатки по всем позициям заказа. Переход в текущий
// статус — no-op без записи и без побочных эффектов.
func (o *Orchestrator) ChangeStatus(ctx context.Context, customerID, orderID string, next domain.OrderStatus) (domain.Order, error) {
	start := time.Now()
	defer o.observe("change_status", start)

	var (
		result domain.Order
		noop   bool
	)
	err := o.txm.WithinTx(ctx, func(tx domain.RepositorySet) error {
		order, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return domain.ErrOwnershipMismatch
		}

		prev := order.Status
		if err := order.ChangeStatus(next); err != nil {
			return err
		}
		if prev == order.Status {
			// Идемпотентный повтор: без персистентности и событий.
			result = order
			noop = true
			return nil
		}

		eventType := kafka.EventTypeOrderStatusChanged
		if order.Status == domain.OrderStatusCancelled {
			eventType = kafka.EventTypeOrderCancelled
			// Отмена из нетерминального статуса возвращает остатки.
			for _, item := range order.Items {
				if err := o.guard.Increment(tx.Products(), item.ProductID, item.Quantity); err != nil {
					return err
				}
				o.recordStockAdjustment("increment")
			}
		}

		result, err = tx.Orders().Update(order)
		if err != nil {
			return err
		}
		return o.enqueueEvent(tx, eventType, result, map[string]any{
			"previous_status": string(prev),
		})
	})
	if err != nil {
		o.fail("change order status", err, log.Fields{
			"order_id":    orderID,
			"customer_id": customerID,
			"next_status": string(next),
		})
		return domain.Order{}, err
	}

	if noop {
		o.logger.WithFields(log.Fields{
			"order_id": result.ID,
			"status":   string(result.Status),
		}).Debug("status unchanged, skipping persist")
		return result, nil
	}

	if o.metrics != nil {
		o.metrics.RecordStatusChanged()
	}
	o.logger.WithFields(log.Fields{
		"order_id": result.ID,
		"status":   string(result.Status),
	}).Info("order status changed")
	return result, nil
}

// Delete удаляет заказ вместе с позициями. Если заказ ещё удерживает
// остатки (CREATED или PAID), они возвращаются на склад.
func (o *Orchestrator) Delete(ctx context.Context, customerID, orderID string) error {
	start := time.Now()
	defer o.observe("delete", start)

	err := o.txm.WithinTx(ctx, func(tx domain.RepositorySet) error {
		order, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return domain.ErrOwnershipMismatch
		}

		if order.Status == domain.OrderStatusCreated || order.Status == domain.OrderStatusPaid {
			for _, item := range order.Items {
				if err := o.guard.Increment(tx.Products(), item.ProductID, item.Quantity); err != nil {
					return err
				}
				o.recordStockAdjustment("increment")
			}
		}

		if err := tx.Orders().Delete(order.ID); err != nil {
			return err
		}
		return o.enqueueEvent(tx, kafka.EventTypeOrderDeleted, order, nil)
	})
	if err != nil {
		o.fail("delete order", err, log.Fields{"order_id": orderID, "customer_id": customerID})
		return err
	}

	if o.metrics != nil {
		o.metrics.RecordOrderDeleted()
	}
	o.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

// Get возвращает заказ по идентификатору.
func (o *Orchestrator) Get(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	return o.repos.Orders().Get(orderID)
}

// ListByCustomer возвращает страницу заказов клиента; без явной сортировки
// применяется порядок по умолчанию.
func (o *Orchestrator) ListByCustomer(ctx context.Context, customerID string, page domain.PageRequest) (domain.Page[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Order]{}, err
	}
	effective := domain.WithDefaultSort(page, domain.OrderDefaultSort())
	return o.repos.Orders().ListByCustomer(customerID, effective)
}

// ListByDateRange возвращает страницу заказов в интервале дат.
// Перевёрнутый интервал нормализуется так, чтобы start <= end.
func (o *Orchestrator) ListByDateRange(ctx context.Context, start, end time.Time, page domain.PageRequest) (domain.Page[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Order]{}, err
	}
	start, end = normalizeRange(start, end)
	effective := domain.WithDefaultSort(page, domain.OrderDefaultSort())
	return o.repos.Orders().ListByDateRange(start, end, effective)
}

// ListByCustomerAndDateRange комбинирует фильтр по клиенту и интервалу дат.
func (o *Orchestrator) ListByCustomerAndDateRange(ctx context.Context, customerID string, start, end time.Time, page domain.PageRequest) (domain.Page[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Order]{}, err
	}
	start, end = normalizeRange(start, end)
	effective := domain.WithDefaultSort(page, domain.OrderDefaultSort())
	return o.repos.Orders().ListByCustomerAndDateRange(customerID, start, end, effective)
}

func normalizeRange(start, end time.Time) (time.Time, time.Time) {
	if end.Before(start) {
		return end, start
	}
	return start, end
}

// enqueueEvent кладёт событие заказа в transactional outbox той же транзакцией.
func (o *Orchestrator) enqueueEvent(tx domain.RepositorySet, eventType kafka.EventType, order domain.Order, meta map[string]any) error {
	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, string(order.Status), order.Total.String())
	event.Metadata = meta

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	if _, err := tx.Outbox().Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}

	if o.metrics != nil {
		o.metrics.RecordOutboxEvent()
	}
	return nil
}

func (o *Orchestrator) observe(operation string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

func (o *Orchestrator) recordStockAdjustment(direction string) {
	if o.metrics != nil {
		o.metrics.RecordStockAdjustment(direction)
	}
}

func (o *Orchestrator) fail(action string, err error, fields log.Fields) {
	if o.metrics != nil {
		o.metrics.RecordOperationFailed()
	}
	o.logger.WithError(err).WithFields(fields).Warn(action + " failed")
}
