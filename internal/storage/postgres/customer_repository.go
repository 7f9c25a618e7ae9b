package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var customerSortColumns = map[string]string{
	domain.SortFieldID:       "id",
	domain.SortFieldFullName: "full_name",
}

type customerRepository struct {
	q querier
}

const customerColumns = "id, full_name, email, phone, created_at, updated_at"

func (r *customerRepository) Create(customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	customer.UpdatedAt = customer.CreatedAt

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO customers (id, full_name, email, phone, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		customer.ID, customer.FullName, customer.Email, customer.Phone,
		customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrAlreadyExists
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return customer, nil
}

func (r *customerRepository) Get(id string) (domain.Customer, error) {
	return r.getBy("id = $1", id)
}

func (r *customerRepository) GetByEmail(email string) (domain.Customer, error) {
	return r.getBy("LOWER(email) = LOWER($1)", email)
}

func (r *customerRepository) getBy(where string, arg any) (domain.Customer, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var customer domain.Customer
	err := r.q.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE "+where, arg,
	).Scan(
		&customer.ID, &customer.FullName, &customer.Email, &customer.Phone,
		&customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return customer, nil
}

func (r *customerRepository) Update(customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := opCtx()
	defer cancel()

	customer.UpdatedAt = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE customers
		SET full_name = $1, email = $2, phone = $3, updated_at = $4
		WHERE id = $5
	`,
		customer.FullName, customer.Email, customer.Phone, customer.UpdatedAt, customer.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrAlreadyExists
		}
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Customer{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// Delete удаляет клиента; адреса уходят каскадом по внешнему ключу.
func (r *customerRepository) Delete(id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *customerRepository) List(page domain.PageRequest) (domain.Page[domain.Customer], error) {
	ctx, cancel := opCtx()
	defer cancel()

	page = domain.WithDefaultSort(page, domain.CustomerDefaultSort())

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&total); err != nil {
		return domain.Page[domain.Customer]{}, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM customers%s LIMIT $1 OFFSET $2",
		customerColumns, orderClause(page.Sort, customerSortColumns))
	rows, err := r.q.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return domain.Page[domain.Customer]{}, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID, &customer.FullName, &customer.Email, &customer.Phone,
			&customer.CreatedAt, &customer.UpdatedAt,
		); err != nil {
			return domain.Page[domain.Customer]{}, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Customer]{}, fmt.Errorf("iterate customer rows: %w", err)
	}

	return domain.Page[domain.Customer]{
		Items: customers,
		Page:  page.Page,
		Size:  page.Size,
		Total: total,
	}, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
