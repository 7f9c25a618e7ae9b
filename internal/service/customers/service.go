package customers

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service управляет клиентами и их адресами доставки.
type Service struct {
	txm    domain.TxManager
	repos  domain.RepositorySet
	logger *log.Entry
}

func NewService(txm domain.TxManager, repos domain.RepositorySet, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "customers")
	}
	return &Service{txm: txm, repos: repos, logger: logger}
}

// Create регистрирует клиента. Email обязателен и уникален.
func (s *Service) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	if err := validateCustomer(customer); err != nil {
		return domain.Customer{}, err
	}

	created, err := s.repos.Customers().Create(customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithFields(log.Fields{
		"customer_id": created.ID,
		"email":       created.Email,
	}).Info("customer created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	return s.repos.Customers().Get(id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	return s.repos.Customers().GetByEmail(email)
}

func (s *Service) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	if err := validateCustomer(customer); err != nil {
		return domain.Customer{}, err
	}
	return s.repos.Customers().Update(customer)
}

// Delete удаляет клиента вместе с его адресами.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.repos.Customers().Delete(id); err != nil {
		return err
	}
	s.logger.WithField("customer_id", id).Info("customer deleted")
	return nil
}

// List возвращает страницу клиентов с сортировкой по умолчанию (имя, id).
func (s *Service) List(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Customer], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Customer]{}, err
	}
	effective := domain.WithDefaultSort(page, domain.CustomerDefaultSort())
	return s.repos.Customers().List(effective)
}

// AddAddress добавляет адрес доставки. Если адрес помечен основным,
// прежний основной адрес клиента теряет флаг в той же транзакции:
// у клиента всегда не больше одного основного адреса.
func (s *Service) AddAddress(ctx context.Context, address domain.Address) (domain.Address, error) {
	if err := validateAddress(address); err != nil {
		return domain.Address{}, err
	}

	var created domain.Address
	err := s.txm.WithinTx(ctx, func(tx domain.RepositorySet) error {
		if address.IsDefault {
			if err := tx.Addresses().ClearDefault(address.CustomerID); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.Addresses().Create(address)
		return err
	})
	if err != nil {
		return domain.Address{}, err
	}

	s.logger.WithFields(log.Fields{
		"address_id":  created.ID,
		"customer_id": created.CustomerID,
	}).Info("address added")
	return created, nil
}

// UpdateAddress правит адрес с сохранением правила единственного основного.
func (s *Service) UpdateAddress(ctx context.Context, address domain.Address) (domain.Address, error) {
	if err := validateAddress(address); err != nil {
		return domain.Address{}, err
	}

	var updated domain.Address
	err := s.txm.WithinTx(ctx, func(tx domain.RepositorySet) error {
		current, err := tx.Addresses().Get(address.ID)
		if err != nil {
			return err
		}
		if current.CustomerID != address.CustomerID {
			return domain.ErrOwnershipMismatch
		}
		if address.IsDefault && !current.IsDefault {
			if err := tx.Addresses().ClearDefault(address.CustomerID); err != nil {
				return err
			}
		}
		updated, err = tx.Addresses().Update(address)
		return err
	})
	if err != nil {
		return domain.Address{}, err
	}
	return updated, nil
}

func (s *Service) RemoveAddress(ctx context.Context, customerID, addressID string) error {
	return s.txm.WithinTx(ctx, func(tx domain.RepositorySet) error {
		address, err := tx.Addresses().Get(addressID)
		if err != nil {
			return err
		}
		if address.CustomerID != customerID {
			return domain.ErrOwnershipMismatch
		}
		return tx.Addresses().Delete(addressID)
	})
}

func (s *Service) ListAddresses(ctx context.Context, customerID string) ([]domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repos.Addresses().ListByCustomer(customerID)
}

func validateCustomer(customer domain.Customer) error {
	if strings.TrimSpace(customer.FullName) == "" {
		return domain.ErrCustomerRequired
	}
	if !strings.Contains(customer.Email, "@") {
		return domain.ErrCustomerRequired
	}
	return nil
}

func validateAddress(address domain.Address) error {
	if strings.TrimSpace(address.CustomerID) == "" {
		return domain.ErrCustomerRequired
	}
	if strings.TrimSpace(address.Line1) == "" || strings.TrimSpace(address.City) == "" {
		return domain.ErrAddressRequired
	}
	return nil
}
