package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var productSortColumns = map[string]string{
	domain.SortFieldID:   "id",
	domain.SortFieldName: "name",
}

type productRepository struct {
	q querier
}

const productColumns = "id, sku, name, price, stock, active, created_at, updated_at"

func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = product.CreatedAt

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, price, stock, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		product.ID, product.SKU, product.Name, product.Price,
		product.Stock, product.Active, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrAlreadyExists
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	return r.getBy("id = $1", id)
}

func (r *productRepository) GetBySKU(sku string) (domain.Product, error) {
	return r.getBy("sku = $1", sku)
}

func (r *productRepository) getBy(where string, arg any) (domain.Product, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var product domain.Product
	err := r.q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE "+where, arg,
	).Scan(
		&product.ID, &product.SKU, &product.Name, &product.Price,
		&product.Stock, &product.Active, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *productRepository) Update(product domain.Product) (domain.Product, error) {
	ctx, cancel := opCtx()
	defer cancel()

	product.UpdatedAt = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET sku = $1, name = $2, price = $3, stock = $4, active = $5, updated_at = $6
		WHERE id = $7
	`,
		product.SKU, product.Name, product.Price, product.Stock,
		product.Active, product.UpdatedAt, product.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrAlreadyExists
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepository) Delete(id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) List(page domain.PageRequest) (domain.Page[domain.Product], error) {
	ctx, cancel := opCtx()
	defer cancel()

	page = domain.WithDefaultSort(page, domain.ProductDefaultSort())

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&total); err != nil {
		return domain.Page[domain.Product]{}, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM products%s LIMIT $1 OFFSET $2",
		productColumns, orderClause(page.Sort, productSortColumns))
	rows, err := r.q.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return domain.Page[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}

	return domain.Page[domain.Product]{
		Items: products,
		Page:  page.Page,
		Size:  page.Size,
		Total: total,
	}, nil
}

func (r *productRepository) SearchByName(name string) ([]domain.Product, error) {
	ctx, cancel := opCtx()
	defer cancel()

	rows, err := r.q.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE name ILIKE '%' || $1 || '%' ORDER BY name ASC, id DESC",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *productRepository) ListActive() ([]domain.Product, error) {
	ctx, cancel := opCtx()
	defer cancel()

	rows, err := r.q.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE active ORDER BY name ASC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// AdjustStock атомарно смещает остаток: guard-условие в WHERE не даёт
// уйти в минус даже при конкурентных корректировках одного товара.
func (r *productRepository) AdjustStock(id string, delta int) (domain.Product, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var product domain.Product
	err := r.q.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
		  AND stock + $1 >= 0
		RETURNING `+productColumns,
		delta, id,
	).Scan(
		&product.ID, &product.SKU, &product.Name, &product.Price,
		&product.Stock, &product.Active, &product.CreatedAt, &product.UpdatedAt,
	)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("adjust stock: %w", err)
	}

	// Ни одной строки: либо товара нет, либо не хватило остатка.
	if _, getErr := r.Get(id); getErr != nil {
		return domain.Product{}, getErr
	}
	return domain.Product{}, domain.ErrInsufficientStock
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.SKU, &product.Name, &product.Price,
			&product.Stock, &product.Active, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
