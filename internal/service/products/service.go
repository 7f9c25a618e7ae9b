package products

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service реализует операции каталога товаров поверх репозитория.
type Service struct {
	repos  domain.RepositorySet
	logger *log.Entry
}

func NewService(repos domain.RepositorySet, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "products")
	}
	return &Service{repos: repos, logger: logger}
}

// Create регистрирует товар в каталоге. SKU обязателен и уникален,
// цена не может быть отрицательной.
func (s *Service) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if err := validate(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repos.Products().Create(product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"sku":        created.SKU,
	}).Info("product created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	return s.repos.Products().Get(id)
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	return s.repos.Products().GetBySKU(sku)
}

func (s *Service) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if err := validate(product); err != nil {
		return domain.Product{}, err
	}
	return s.repos.Products().Update(product)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.repos.Products().Delete(id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

// List возвращает страницу каталога с сортировкой по умолчанию (имя, id).
func (s *Service) List(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Product], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Product]{}, err
	}
	effective := domain.WithDefaultSort(page, domain.ProductDefaultSort())
	return s.repos.Products().List(effective)
}

// SearchByName ищет товары по вхождению подстроки без учёта регистра.
func (s *Service) SearchByName(ctx context.Context, name string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repos.Products().SearchByName(strings.TrimSpace(name))
}

// ListActive возвращает товары, доступные к заказу.
func (s *Service) ListActive(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repos.Products().ListActive()
}

func validate(product domain.Product) error {
	if strings.TrimSpace(product.SKU) == "" {
		return domain.ErrProductRequired
	}
	if strings.TrimSpace(product.Name) == "" {
		return domain.ErrProductRequired
	}
	if product.Price.LessThan(decimal.Zero) {
		return domain.ErrItemPriceInvalid
	}
	if product.Stock < 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}
