package memory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// addressRepository — in-memory реализация domain.AddressRepository.
type addressRepository struct {
	st *Store
	tx bool
}

func (r *addressRepository) do(fn func(d *dataset) error) error {
	if !r.tx {
		r.st.mu.Lock()
		defer r.st.mu.Unlock()
	}
	return fn(r.st.data)
}

// Create сохраняет адрес; клиент-владелец должен существовать.
func (r *addressRepository) Create(address domain.Address) (domain.Address, error) {
	err := r.do(func(d *dataset) error {
		if _, ok := d.customers[address.CustomerID]; !ok {
			return domain.ErrCustomerNotFound
		}
		if address.ID == "" {
			address.ID = uuid.NewString()
		}
		d.addresses[address.ID] = address
		return nil
	})
	if err != nil {
		return domain.Address{}, err
	}
	return address, nil
}

func (r *addressRepository) Get(id string) (domain.Address, error) {
	var address domain.Address
	err := r.do(func(d *dataset) error {
		stored, ok := d.addresses[id]
		if !ok {
			return domain.ErrAddressNotFound
		}
		address = stored
		return nil
	})
	return address, err
}

func (r *addressRepository) Update(address domain.Address) (domain.Address, error) {
	err := r.do(func(d *dataset) error {
		current, ok := d.addresses[address.ID]
		if !ok {
			return domain.ErrAddressNotFound
		}
		// Адрес не переезжает между клиентами.
		address.CustomerID = current.CustomerID
		d.addresses[address.ID] = address
		return nil
	})
	if err != nil {
		return domain.Address{}, err
	}
	return address, nil
}

func (r *addressRepository) Delete(id string) error {
	return r.do(func(d *dataset) error {
		if _, ok := d.addresses[id]; !ok {
			return domain.ErrAddressNotFound
		}
		delete(d.addresses, id)
		return nil
	})
}

// ListByCustomer возвращает адреса клиента в стабильном порядке.
func (r *addressRepository) ListByCustomer(customerID string) ([]domain.Address, error) {
	var result []domain.Address
	err := r.do(func(d *dataset) error {
		for _, address := range d.addresses {
			if address.CustomerID == customerID {
				result = append(result, address)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ClearDefault сбрасывает признак адреса по умолчанию у всех адресов клиента.
func (r *addressRepository) ClearDefault(customerID string) error {
	return r.do(func(d *dataset) error {
		for id, address := range d.addresses {
			if address.CustomerID == customerID && address.IsDefault {
				address.IsDefault = false
				d.addresses[id] = address
			}
		}
		return nil
	})
}

var _ domain.AddressRepository = (*addressRepository)(nil)
