package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — товар каталога. Остаток (Stock) меняется только через
// явные операции списания/возврата, прямое присваивание из сценариев
// заказа вне контракта.
type Product struct {
	ID string
	// SKU уникален в пределах хранилища.
	SKU  string
	Name string
	// Price — текущая цена за единицу; именно она снимается в позицию
	// заказа при создании.
	Price decimal.Decimal
	// Stock — остаток на складе, всегда >= 0.
	Stock  int
	Active bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
