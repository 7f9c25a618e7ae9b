package inventory

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Guard — единственная санкционированная точка изменения остатков.
// Списание и возврат идут через атомарный AdjustStock репозитория;
// прямое присваивание stock из сценариев заказа вне контракта.
type Guard struct {
	logger *log.Entry
}

// NewGuard создаёт inventory guard.
func NewGuard(logger *log.Entry) *Guard {
	if logger == nil {
		logger = log.WithField("component", "inventory")
	}
	return &Guard{logger: logger}
}

// Decrement списывает qty единиц товара. Количество <= 0 отклоняется,
// нехватка остатка возвращает ErrInsufficientStock без изменения остатка.
// Репозиторий передаётся вызывающим, чтобы списание попадало в его транзакцию.
func (g *Guard) Decrement(products domain.ProductRepository, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	product, err := products.AdjustStock(productID, -qty)
	if err != nil {
		g.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"qty":        qty,
		}).Debug("stock decrement rejected")
		return fmt.Errorf("decrement stock of %s by %d: %w", productID, qty, err)
	}

	g.logger.WithFields(log.Fields{
		"product_id": productID,
		"qty":        qty,
		"stock":      product.Stock,
	}).Debug("stock decremented")
	return nil
}

// Increment возвращает qty единиц товара на склад. Верхней границы нет.
func (g *Guard) Increment(products domain.ProductRepository, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	product, err := products.AdjustStock(productID, qty)
	if err != nil {
		return fmt.Errorf("increment stock of %s by %d: %w", productID, qty, err)
	}

	g.logger.WithFields(log.Fields{
		"product_id": productID,
		"qty":        qty,
		"stock":      product.Stock,
	}).Debug("stock incremented")
	return nil
}
