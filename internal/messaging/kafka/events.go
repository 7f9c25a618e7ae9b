package kafka

import "time"

// EventType определяет тип события заказа.
type EventType string

const (
	// EventTypeOrderCreated — заказ создан и остатки списаны.
	EventTypeOrderCreated EventType = "order.created"
	// EventTypeOrderItemsReplaced — коллекция позиций заказа заменена.
	EventTypeOrderItemsReplaced EventType = "order.items_replaced"
	// EventTypeOrderStatusChanged — применён переход статуса.
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	// EventTypeOrderCancelled — заказ отменён, остатки возвращены.
	EventTypeOrderCancelled EventType = "order.cancelled"
	// EventTypeOrderDeleted — заказ удалён вместе с позициями.
	EventTypeOrderDeleted EventType = "order.deleted"
)

// Topics для Kafka.
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Kafka headers для DLQ.
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent — payload события заказа, сериализуемый в outbox.
type OrderEvent struct {
	EventType  EventType      `json:"event_type"`
	OrderID    string         `json:"order_id"`
	CustomerID string         `json:"customer_id"`
	Status     string         `json:"status"`
	Total      string         `json:"total"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewOrderEvent создаёт событие заказа с текущей меткой времени.
func NewOrderEvent(eventType EventType, orderID, customerID, status, total string) OrderEvent {
	return OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Total:      total,
		Timestamp:  time.Now().UTC(),
	}
}
