package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// dataset — всё состояние хранилища. Позиции заказов живут внутри заказов:
// заказ владеет ими эксклюзивно, отдельная таблица не нужна.
type dataset struct {
	orders    map[string]domain.Order
	products  map[string]domain.Product
	customers map[string]domain.Customer
	addresses map[string]domain.Address
	outbox    map[string]outboxRecord
}

func newDataset() *dataset {
	return &dataset{
		orders:    make(map[string]domain.Order),
		products:  make(map[string]domain.Product),
		customers: make(map[string]domain.Customer),
		addresses: make(map[string]domain.Address),
		outbox:    make(map[string]outboxRecord),
	}
}

// clone делает глубокую копию состояния для snapshot-отката транзакций.
func (d *dataset) clone() *dataset {
	c := newDataset()
	for id, order := range d.orders {
		c.orders[id] = cloneOrder(order)
	}
	for id, product := range d.products {
		c.products[id] = product
	}
	for id, customer := range d.customers {
		c.customers[id] = customer
	}
	for id, address := range d.addresses {
		c.addresses[id] = address
	}
	for id, rec := range d.outbox {
		rec.msg.Payload = append([]byte(nil), rec.msg.Payload...)
		c.outbox[id] = rec
	}
	return c
}

// cloneOrder копирует заказ вместе со слайсом позиций, чтобы мутации
// извне не просачивались в хранилище.
func cloneOrder(order domain.Order) domain.Order {
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order
}

// Store — in-memory хранилище для локальной разработки и тестов.
// Одновременно реализует domain.TxManager: транзакция держит общий лок
// и откатывается восстановлением snapshot.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Orders возвращает репозиторий заказов с блокировкой на каждую операцию.
func (s *Store) Orders() domain.OrderRepository { return &orderRepository{st: s} }

// Products возвращает репозиторий товаров.
func (s *Store) Products() domain.ProductRepository { return &productRepository{st: s} }

// Customers возвращает репозиторий клиентов.
func (s *Store) Customers() domain.CustomerRepository { return &customerRepository{st: s} }

// Addresses возвращает репозиторий адресов.
func (s *Store) Addresses() domain.AddressRepository { return &addressRepository{st: s} }

// Outbox возвращает репозиторий transactional outbox.
func (s *Store) Outbox() domain.OutboxRepository { return &outboxRepository{st: s} }

// WithinTx исполняет fn под общим локом хранилища. Ошибка fn откатывает
// все изменения восстановлением snapshot: либо видимы все записи, либо
// ни одна. Лок на время транзакции сериализует и корректировки остатков.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.RepositorySet) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txRepositorySet{st: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// txRepositorySet отдаёт репозитории, работающие без собственного лока:
// лок уже удерживается транзакцией.
type txRepositorySet struct {
	st *Store
}

func (t *txRepositorySet) Orders() domain.OrderRepository       { return &orderRepository{st: t.st, tx: true} }
func (t *txRepositorySet) Products() domain.ProductRepository   { return &productRepository{st: t.st, tx: true} }
func (t *txRepositorySet) Customers() domain.CustomerRepository { return &customerRepository{st: t.st, tx: true} }
func (t *txRepositorySet) Addresses() domain.AddressRepository  { return &addressRepository{st: t.st, tx: true} }
func (t *txRepositorySet) Outbox() domain.OutboxRepository      { return &outboxRepository{st: t.st, tx: true} }

var (
	_ domain.TxManager     = (*Store)(nil)
	_ domain.RepositorySet = (*Store)(nil)
	_ domain.RepositorySet = (*txRepositorySet)(nil)
)
