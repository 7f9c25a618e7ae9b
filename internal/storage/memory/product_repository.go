package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// productRepository — in-memory реализация domain.ProductRepository.
type productRepository struct {
	st *Store
	tx bool
}

func (r *productRepository) do(fn func(d *dataset) error) error {
	if !r.tx {
		r.st.mu.Lock()
		defer r.st.mu.Unlock()
	}
	return fn(r.st.data)
}

// Create сохраняет товар, отклоняя дубликат SKU.
func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	err := r.do(func(d *dataset) error {
		for _, existing := range d.products {
			if existing.SKU == product.SKU {
				return domain.ErrAlreadyExists
			}
		}
		if product.ID == "" {
			product.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		product.CreatedAt = now
		product.UpdatedAt = now
		d.products[product.ID] = product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	var product domain.Product
	err := r.do(func(d *dataset) error {
		stored, ok := d.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		product = stored
		return nil
	})
	return product, err
}

func (r *productRepository) GetBySKU(sku string) (domain.Product, error) {
	var product domain.Product
	err := r.do(func(d *dataset) error {
		for _, stored := range d.products {
			if stored.SKU == sku {
				product = stored
				return nil
			}
		}
		return domain.ErrProductNotFound
	})
	return product, err
}

func (r *productRepository) Update(product domain.Product) (domain.Product, error) {
	err := r.do(func(d *dataset) error {
		current, ok := d.products[product.ID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if product.SKU != current.SKU {
			for _, existing := range d.products {
				if existing.ID != product.ID && existing.SKU == product.SKU {
					return domain.ErrAlreadyExists
				}
			}
		}
		product.CreatedAt = current.CreatedAt
		product.UpdatedAt = time.Now().UTC()
		d.products[product.ID] = product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *productRepository) Delete(id string) error {
	return r.do(func(d *dataset) error {
		if _, ok := d.products[id]; !ok {
			return domain.ErrProductNotFound
		}
		delete(d.products, id)
		return nil
	})
}

// List возвращает страницу товаров.
func (r *productRepository) List(page domain.PageRequest) (domain.Page[domain.Product], error) {
	var result []domain.Product
	err := r.do(func(d *dataset) error {
		for _, product := range d.products {
			result = append(result, product)
		}
		return nil
	})
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}

	sortProducts(result, page.Sort)
	total := len(result)
	result = paginate(result, page)

	return domain.Page[domain.Product]{Items: result, Page: page.Page, Size: page.Size, Total: total}, nil
}

// SearchByName ищет подстроку в названии без учёта регистра.
func (r *productRepository) SearchByName(name string) ([]domain.Product, error) {
	needle := strings.ToLower(name)
	var result []domain.Product
	err := r.do(func(d *dataset) error {
		for _, product := range d.products {
			if strings.Contains(strings.ToLower(product.Name), needle) {
				result = append(result, product)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortProducts(result, nil)
	return result, nil
}

func (r *productRepository) ListActive() ([]domain.Product, error) {
	var result []domain.Product
	err := r.do(func(d *dataset) error {
		for _, product := range d.products {
			if product.Active {
				result = append(result, product)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortProducts(result, nil)
	return result, nil
}

// AdjustStock атомарно меняет остаток на delta. Лок хранилища сериализует
// конкурентные корректировки по одному товару: два заказа на последнюю
// единицу не могут пройти оба.
func (r *productRepository) AdjustStock(id string, delta int) (domain.Product, error) {
	var product domain.Product
	err := r.do(func(d *dataset) error {
		stored, ok := d.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		next := stored.Stock + delta
		if next < 0 {
			return domain.ErrInsufficientStock
		}
		stored.Stock = next
		stored.UpdatedAt = time.Now().UTC()
		d.products[id] = stored
		product = stored
		return nil
	})
	return product, err
}

func sortProducts(products []domain.Product, rules []domain.Sort) {
	if len(rules) == 0 {
		rules = domain.ProductDefaultSort()
	}
	sort.SliceStable(products, func(i, j int) bool {
		for _, rule := range rules {
			var less, eq bool
			switch rule.Field {
			case domain.SortFieldName:
				less = products[i].Name < products[j].Name
				eq = products[i].Name == products[j].Name
			default:
				less = products[i].ID < products[j].ID
				eq = products[i].ID == products[j].ID
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

var _ domain.ProductRepository = (*productRepository)(nil)
