package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusCreated — заказ создан; единственный начальный статус.
	OrderStatusCreated OrderStatus = "CREATED"
	// OrderStatusPaid — оплата по заказу подтверждена.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusShipped — заказ отгружен; терминальный статус.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusCancelled — заказ отменён; терминальный статус.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// allowedTransitions задаёт таблицу допустимых переходов статуса.
// Отсутствие статуса-источника означает терминальное состояние.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
}

// Terminal сообщает, является ли статус терминальным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusShipped || s == OrderStatusCancelled
}

// Valid проверяет, что значение принадлежит известному набору статусов.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции; присваивается репозиторием при первом сохранении.
	ID string
	// OrderID — обратная ссылка на владеющий заказ. Владение направлено
	// от заказа к позиции: удаление заказа удаляет его позиции явно.
	OrderID string
	// ProductID — ссылка на товар; неизменяема после создания позиции.
	ProductID string
	// Quantity — количество единиц товара, всегда >= 1.
	Quantity int
	// UnitPrice — цена за единицу, зафиксированная в момент создания заказа.
	// Снимок намеренно не перечитывается из товара: исторические заказы
	// не зависят от последующих изменений цены.
	UnitPrice decimal.Decimal
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Subtotal возвращает стоимость позиции: unitPrice * quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order — агрегат заказа: владеет позициями, считает total из позиций
// и контролирует легальность переходов статуса.
type Order struct {
	ID string
	// CustomerID неизменяем после создания заказа.
	CustomerID string
	// ShippingAddressID — ссылка на адрес доставки.
	ShippingAddressID string
	Status            OrderStatus
	// Total — производная величина: точная десятичная сумма subtotal позиций.
	Total decimal.Decimal
	Items []OrderItem
	// OrderDate устанавливается один раз при конструировании и не перезаписывается.
	OrderDate time.Time
	UpdatedAt time.Time
	Version   int64
}

// NewOrder конструирует заказ в начальном статусе CREATED.
// Дата заказа фиксируется здесь, до границы персистентности.
func NewOrder(customerID, shippingAddressID string) (Order, error) {
	if customerID == "" {
		return Order{}, ErrCustomerRequired
	}
	if shippingAddressID == "" {
		return Order{}, ErrAddressRequired
	}
	now := time.Now().UTC()
	return Order{
		CustomerID:        customerID,
		ShippingAddressID: shippingAddressID,
		Status:            OrderStatusCreated,
		Total:             decimal.Zero,
		OrderDate:         now,
		UpdatedAt:         now,
	}, nil
}

// AddItem добавляет позицию, привязывает её к заказу и пересчитывает total.
// Проверка остатков здесь сознательно не выполняется: агрегат не зависит
// от склада, списанием занимается оркестратор.
func (o *Order) AddItem(item OrderItem) error {
	if o.Status.Terminal() {
		return ErrOrderImmutable
	}
	if item.ProductID == "" {
		return ErrProductRequired
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if item.UnitPrice.IsNegative() {
		return ErrItemPriceInvalid
	}
	item.OrderID = o.ID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	o.Items = append(o.Items, item)
	o.RecomputeTotal()
	return nil
}

// RemoveItem убирает позицию из коллекции и пересчитывает total.
// Убранная позиция считается осиротевшей и подлежит удалению при сохранении.
func (o *Order) RemoveItem(itemID string) error {
	if o.Status.Terminal() {
		return ErrOrderImmutable
	}
	for idx, item := range o.Items {
		if item.ID == itemID {
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.RecomputeTotal()
			return nil
		}
	}
	return ErrOrderNotFound
}

// ReplaceItems очищает коллекцию позиций (прежние позиции удаляются при
// сохранении) и добавляет newItems, пересчитывая total один раз в конце.
func (o *Order) ReplaceItems(newItems []OrderItem) error {
	if o.Status.Terminal() {
		return ErrOrderImmutable
	}
	for _, item := range newItems {
		if item.ProductID == "" {
			return ErrProductRequired
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.UnitPrice.IsNegative() {
			return ErrItemPriceInvalid
		}
	}

	o.Items = o.Items[:0]
	now := time.Now().UTC()
	for _, item := range newItems {
		item.OrderID = o.ID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		o.Items = append(o.Items, item)
	}
	o.RecomputeTotal()
	return nil
}

// RecomputeTotal пересчитывает total как точную десятичную сумму позиций.
// Идемпотентен: безопасно вызывать повторно, в том числе перед сохранением.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.Total = total
	o.bindItems()
}

// bindItems восстанавливает обратные ссылки позиций на заказ.
// Инвариант: после любой мутации каждая позиция указывает на свой заказ.
func (o *Order) bindItems() {
	for idx := range o.Items {
		if o.Items[idx].OrderID != o.ID {
			o.Items[idx].OrderID = o.ID
		}
	}
}

// ChangeStatus применяет переход статуса по таблице allowedTransitions.
// Переход в текущий статус — no-op. Пустой целевой статус отклоняется
// до обращения к таблице.
func (o *Order) ChangeStatus(next OrderStatus) error {
	if next == "" {
		return ErrStatusRequired
	}
	if !next.Valid() {
		return ErrInvalidTransition
	}
	if o.Status == next {
		return nil
	}
	for _, allowed := range allowedTransitions[o.Status] {
		if allowed == next {
			o.Status = next
			o.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrInvalidTransition
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.ShippingAddressID == "" {
		errs = append(errs, ErrAddressRequired)
	}
	if o.Total.IsNegative() {
		errs = append(errs, ErrTotalMismatch)
	}

	// Сверяем total с суммой позиций: unitPrice * quantity.
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrInvalidQuantity)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(item.Subtotal())
	}
	if !calc.Equal(o.Total) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
