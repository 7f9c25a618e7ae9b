package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var orderSortColumns = map[string]string{
	domain.SortFieldID:        "id",
	domain.SortFieldOrderDate: "order_date",
}

type orderRepository struct {
	q querier
}

func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now().UTC()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.OrderDate
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, shipping_address_id, status, total, order_date, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.CustomerID, order.ShippingAddressID, string(order.Status),
		order.Total, order.OrderDate, order.UpdatedAt, order.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrAlreadyExists
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = order.OrderDate
		}
		if err := r.insertItem(ctx, *item); err != nil {
			return domain.Order{}, err
		}
	}

	return order, nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := opCtx()
	defer cancel()

	order, err := r.scanOne(ctx, `
		SELECT id, customer_id, shipping_address_id, status, total, order_date, updated_at, version
		FROM orders
		WHERE id = $1
	`, id)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

// Update перезаписывает заказ и полностью заменяет коллекцию позиций.
// Optimistic locking: несовпадение версии даёт ErrVersionConflict.
func (r *orderRepository) Update(order domain.Order) (domain.Order, error) {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET customer_id = $1,
		    shipping_address_id = $2,
		    status = $3,
		    total = $4,
		    updated_at = $5,
		    version = version + 1
		WHERE id = $6
		  AND version = $7
	`,
		order.CustomerID, order.ShippingAddressID, string(order.Status),
		order.Total, order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, order.ID)
		if err != nil {
			return domain.Order{}, err
		}
		if !exists {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, domain.ErrVersionConflict
	}
	order.Version++

	if _, err := r.q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return domain.Order{}, fmt.Errorf("clear order items: %w", err)
	}
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now().UTC()
		}
		if err := r.insertItem(ctx, *item); err != nil {
			return domain.Order{}, err
		}
	}

	return order, nil
}

func (r *orderRepository) Delete(id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) ListByCustomer(customerID string, page domain.PageRequest) (domain.Page[domain.Order], error) {
	return r.list("WHERE customer_id = $1", []any{customerID}, page)
}

func (r *orderRepository) ListByDateRange(start, end time.Time, page domain.PageRequest) (domain.Page[domain.Order], error) {
	return r.list("WHERE order_date BETWEEN $1 AND $2", []any{start, end}, page)
}

func (r *orderRepository) ListByCustomerAndDateRange(customerID string, start, end time.Time, page domain.PageRequest) (domain.Page[domain.Order], error) {
	return r.list("WHERE customer_id = $1 AND order_date BETWEEN $2 AND $3", []any{customerID, start, end}, page)
}

func (r *orderRepository) list(where string, args []any, page domain.PageRequest) (domain.Page[domain.Order], error) {
	ctx, cancel := opCtx()
	defer cancel()

	page = domain.WithDefaultSort(page, domain.OrderDefaultSort())

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, customer_id, shipping_address_id, status, total, order_date, updated_at, version
		FROM orders
		%s%s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(page.Sort, orderSortColumns), len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
		order.Items = items
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("iterate order rows: %w", err)
	}

	return domain.Page[domain.Order]{
		Items: orders,
		Page:  page.Page,
		Size:  page.Size,
		Total: total,
	}, nil
}

func (r *orderRepository) scanOne(ctx context.Context, query string, args ...any) (domain.Order, error) {
	var order domain.Order
	var status string
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&order.ID, &order.CustomerID, &order.ShippingAddressID, &status,
		&order.Total, &order.OrderDate, &order.UpdatedAt, &order.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func scanOrder(rows *sql.Rows) (domain.Order, error) {
	var order domain.Order
	var status string
	if err := rows.Scan(
		&order.ID, &order.CustomerID, &order.ShippingAddressID, &status,
		&order.Total, &order.OrderDate, &order.UpdatedAt, &order.Version,
	); err != nil {
		return domain.Order{}, fmt.Errorf("scan order row: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (r *orderRepository) insertItem(ctx context.Context, item domain.OrderItem) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.CreatedAt); err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) exists(ctx context.Context, id string) (bool, error) {
	var found string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

var _ domain.OrderRepository = (*orderRepository)(nil)
