package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepository — in-memory реализация domain.OrderRepository.
type orderRepository struct {
	st *Store
	tx bool
}

func (r *orderRepository) do(fn func(d *dataset) error) error {
	if !r.tx {
		r.st.mu.Lock()
		defer r.st.mu.Unlock()
	}
	return fn(r.st.data)
}

// Create сохраняет новый заказ, присваивая идентификаторы заказу и позициям.
func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	err := r.do(func(d *dataset) error {
		if order.ID == "" {
			order.ID = uuid.NewString()
		}
		if _, exists := d.orders[order.ID]; exists {
			return domain.ErrAlreadyExists
		}
		order.Items = append([]domain.OrderItem(nil), order.Items...)
		for idx := range order.Items {
			if order.Items[idx].ID == "" {
				order.Items[idx].ID = uuid.NewString()
			}
			order.Items[idx].OrderID = order.ID
		}
		d.orders[order.ID] = cloneOrder(order)
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(id string) (domain.Order, error) {
	var order domain.Order
	err := r.do(func(d *dataset) error {
		stored, ok := d.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order = cloneOrder(stored)
		return nil
	})
	return order, err
}

// Update перезаписывает заказ, проверяя версию (optimistic locking).
// Позиции вне новой коллекции пропадают вместе с перезаписью заказа.
func (r *orderRepository) Update(order domain.Order) (domain.Order, error) {
	err := r.do(func(d *dataset) error {
		current, ok := d.orders[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if current.Version != order.Version {
			return domain.ErrVersionConflict
		}
		order.Items = append([]domain.OrderItem(nil), order.Items...)
		for idx := range order.Items {
			if order.Items[idx].ID == "" {
				order.Items[idx].ID = uuid.NewString()
			}
			order.Items[idx].OrderID = order.ID
		}
		// Инкрементируем версию перед сохранением.
		order.Version++
		d.orders[order.ID] = cloneOrder(order)
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// Delete удаляет заказ вместе с позициями (они живут внутри записи заказа).
func (r *orderRepository) Delete(id string) error {
	return r.do(func(d *dataset) error {
		if _, ok := d.orders[id]; !ok {
			return domain.ErrOrderNotFound
		}
		delete(d.orders, id)
		return nil
	})
}

// ListByCustomer возвращает страницу заказов клиента.
func (r *orderRepository) ListByCustomer(customerID string, page domain.PageRequest) (domain.Page[domain.Order], error) {
	return r.list(page, func(o domain.Order) bool {
		return o.CustomerID == customerID
	})
}

// ListByDateRange возвращает страницу заказов с датой в интервале [start, end].
func (r *orderRepository) ListByDateRange(start, end time.Time, page domain.PageRequest) (domain.Page[domain.Order], error) {
	return r.list(page, func(o domain.Order) bool {
		return !o.OrderDate.Before(start) && !o.OrderDate.After(end)
	})
}

// ListByCustomerAndDateRange комбинирует фильтр по клиенту и интервалу дат.
func (r *orderRepository) ListByCustomerAndDateRange(customerID string, start, end time.Time, page domain.PageRequest) (domain.Page[domain.Order], error) {
	return r.list(page, func(o domain.Order) bool {
		return o.CustomerID == customerID && !o.OrderDate.Before(start) && !o.OrderDate.After(end)
	})
}

func (r *orderRepository) list(page domain.PageRequest, match func(domain.Order) bool) (domain.Page[domain.Order], error) {
	var result []domain.Order
	err := r.do(func(d *dataset) error {
		for _, order := range d.orders {
			if match(order) {
				result = append(result, cloneOrder(order))
			}
		}
		return nil
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	sortOrders(result, page.Sort)
	total := len(result)
	result = paginate(result, page)

	return domain.Page[domain.Order]{
		Items: result,
		Page:  page.Page,
		Size:  page.Size,
		Total: total,
	}, nil
}

// sortOrders применяет запрошенную сортировку; без правил — порядок по умолчанию.
func sortOrders(orders []domain.Order, rules []domain.Sort) {
	if len(rules) == 0 {
		rules = domain.OrderDefaultSort()
	}
	sort.SliceStable(orders, func(i, j int) bool {
		for _, rule := range rules {
			var less, eq bool
			switch rule.Field {
			case domain.SortFieldOrderDate:
				less = orders[i].OrderDate.Before(orders[j].OrderDate)
				eq = orders[i].OrderDate.Equal(orders[j].OrderDate)
			default:
				less = orders[i].ID < orders[j].ID
				eq = orders[i].ID == orders[j].ID
			}
			if eq {
				continue
			}
			if rule.Desc {
				return !less
			}
			return less
		}
		return false
	})
}

// paginate вырезает запрошенную страницу из отсортированного среза.
func paginate[T any](items []T, page domain.PageRequest) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if page.Size > 0 && len(items) > page.Size {
		items = items[:page.Size]
	}
	return items
}

var _ domain.OrderRepository = (*orderRepository)(nil)
