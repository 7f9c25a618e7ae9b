package domain

import (
	"context"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями, присваивая
	// идентификаторы. Возвращает сохранённую копию.
	Create(order Order) (Order, error)
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// Update перезаписывает заказ и его коллекцию позиций с учётом
	// optimistic locking; позиции вне новой коллекции удаляются.
	Update(order Order) (Order, error)
	// Delete удаляет заказ и все его позиции.
	Delete(id string) error
	// ListByCustomer возвращает страницу заказов клиента.
	ListByCustomer(customerID string, page PageRequest) (Page[Order], error)
	// ListByDateRange возвращает страницу заказов в интервале [start, end].
	ListByDateRange(start, end time.Time, page PageRequest) (Page[Order], error)
	// ListByCustomerAndDateRange комбинирует оба фильтра.
	ListByCustomerAndDateRange(customerID string, start, end time.Time, page PageRequest) (Page[Order], error)
}

// ProductRepository описывает требования к хранилищу товаров.
type ProductRepository interface {
	Create(product Product) (Product, error)
	Get(id string) (Product, error)
	GetBySKU(sku string) (Product, error)
	Update(product Product) (Product, error)
	Delete(id string) error
	List(page PageRequest) (Page[Product], error)
	// SearchByName возвращает товары, в названии которых встречается
	// подстрока name без учёта регистра.
	SearchByName(name string) ([]Product, error)
	ListActive() ([]Product, error)
	// AdjustStock атомарно меняет остаток на delta. Результат меньше нуля
	// отклоняется с ErrInsufficientStock без изменения остатка. Реализация
	// обязана сериализовать корректировки по одному товару между
	// конкурентными вызовами.
	AdjustStock(id string, delta int) (Product, error)
}

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	Create(customer Customer) (Customer, error)
	Get(id string) (Customer, error)
	GetByEmail(email string) (Customer, error)
	Update(customer Customer) (Customer, error)
	// Delete удаляет клиента вместе с его адресами.
	Delete(id string) error
	List(page PageRequest) (Page[Customer], error)
}

// AddressRepository описывает требования к хранилищу адресов.
type AddressRepository interface {
	Create(address Address) (Address, error)
	Get(id string) (Address, error)
	Update(address Address) (Address, error)
	Delete(id string) error
	ListByCustomer(customerID string) ([]Address, error)
	// ClearDefault сбрасывает признак адреса по умолчанию у всех адресов клиента.
	ClearDefault(customerID string) error
}

// RepositorySet объединяет репозитории, работающие над одним хранилищем.
// Внутри транзакции все репозитории набора видят одно и то же состояние.
type RepositorySet interface {
	Orders() OrderRepository
	Products() ProductRepository
	Customers() CustomerRepository
	Addresses() AddressRepository
	Outbox() OutboxRepository
}

// TxManager исполняет fn в одной транзакции: либо видимы все записи,
// сделанные через tx, либо ни одна. Ошибка fn откатывает транзакцию.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx RepositorySet) error) error
}
