package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrAddressNotFound возвращается, если адрес не найден.
	ErrAddressNotFound = errors.New("address not found")
	// ErrOwnershipMismatch — заказ не принадлежит указанному клиенту.
	ErrOwnershipMismatch = errors.New("order does not belong to the given customer")
	// ErrInvalidTransition — запрошенный переход статуса не разрешён таблицей переходов.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrStatusRequired — целевой статус перехода не задан.
	ErrStatusRequired = errors.New("target status is required")
	// ErrOrderImmutable — заказ в терминальном статусе нельзя изменять.
	ErrOrderImmutable = errors.New("order in terminal status cannot be modified")
	// ErrInvalidQuantity — количество должно быть строго положительным.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInsufficientStock — списание увело бы остаток товара в минус.
	ErrInsufficientStock = errors.New("insufficient product stock")
	// ErrAlreadyExists — нарушение уникальности (email клиента, SKU товара).
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrVersionConflict = errors.New("order version conflict")
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего адреса доставки.
	ErrAddressRequired = errors.New("shipping_address_id is required")
	// Ошибка отсутствия ссылки на товар в позиции заказа.
	ErrProductRequired = errors.New("item product_id is required")
	// Ошибка отрицательной цены позиции.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match items sum")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound сообщает, относится ли ошибка к классу «сущность не найдена».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrAddressNotFound)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
