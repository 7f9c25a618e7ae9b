package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// customerRepository — in-memory реализация domain.CustomerRepository.
type customerRepository struct {
	st *Store
	tx bool
}

func (r *customerRepository) do(fn func(d *dataset) error) error {
	if !r.tx {
		r.st.mu.Lock()
		defer r.st.mu.Unlock()
	}
	return fn(r.st.data)
}

// Create сохраняет клиента, отклоняя дубликат email (без учёта регистра).
func (r *customerRepository) Create(customer domain.Customer) (domain.Customer, error) {
	err := r.do(func(d *dataset) error {
		for _, existing := range d.customers {
			if strings.EqualFold(existing.Email, customer.Email) {
				return domain.ErrAlreadyExists
			}
		}
		if customer.ID == "" {
			customer.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		customer.CreatedAt = now
		customer.UpdatedAt = now
		d.customers[customer.ID] = customer
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (r *customerRepository) Get(id string) (domain.Customer, error) {
	var customer domain.Customer
	err := r.do(func(d *dataset) error {
		stored, ok := d.customers[id]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		customer = stored
		return nil
	})
	return customer, err
}

func (r *customerRepository) GetByEmail(email string) (domain.Customer, error) {
	var customer domain.Customer
	err := r.do(func(d *dataset) error {
		for _, stored := range d.customers {
			if strings.EqualFold(stored.Email, email) {
				customer = stored
				return nil
			}
		}
		return domain.ErrCustomerNotFound
	})
	return customer, err
}

func (r *customerRepository) Update(customer domain.Customer) (domain.Customer, error) {
	err := r.do(func(d *dataset) error {
		current, ok := d.customers[customer.ID]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		if !strings.EqualFold(current.Email, customer.Email) {
			for _, existing := range d.customers {
				if existing.ID != customer.ID && strings.EqualFold(existing.Email, customer.Email) {
					return domain.ErrAlreadyExists
				}
			}
		}
		customer.CreatedAt = current.CreatedAt
		customer.UpdatedAt = time.Now().UTC()
		d.customers[customer.ID] = customer
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

// Delete удаляет клиента вместе с его адресами.
func (r *customerRepository) Delete(id string) error {
	return r.do(func(d *dataset) error {
		if _, ok := d.customers[id]; !ok {
			return domain.ErrCustomerNotFound
		}
		delete(d.customers, id)
		for addrID, addr := range d.addresses {
			if addr.CustomerID == id {
				delete(d.addresses, addrID)
			}
		}
		return nil
	})
}

// List возвращает страницу клиентов.
func (r *customerRepository) List(page domain.PageRequest) (domain.Page[domain.Customer], error) {
	var result []domain.Customer
	err := r.do(func(d *dataset) error {
		for _, customer := range d.customers {
			result = append(result, customer)
		}
		return nil
	})
	if err != nil {
		return domain.Page[domain.Customer]{}, err
	}

	sortCustomers(result, page.Sort)
	total := len(result)
	result = paginate(result, page)

	return domain.Page[domain.Customer]{Items: result, Page: page.Page, Size: page.Size, Total: total}, nil
}

func sortCustomers(customers []domain.Customer, rules []domain.Sort) {
	if len(rules) == 0 {
		rules = domain.CustomerDefaultSort()
	}
	sort.SliceStable(customers, func(i, j int) bool {
		for _, rule := range rules {
			var less, eq bool
			switch rule.Field {
			case domain.SortFieldFullName:
				less = customers[i].FullName < customers[j].FullName
				eq = customers[i].FullName == customers[j].FullName
			default:
				less = customers[i].ID < customers[j].ID
				eq = customers[i].ID == customers[j].ID
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

var _ domain.CustomerRepository = (*customerRepository)(nil)
