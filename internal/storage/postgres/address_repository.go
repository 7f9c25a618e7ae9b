package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type addressRepository struct {
	q querier
}

const addressColumns = "id, customer_id, line1, line2, city, postal_code, country, is_default"

func (r *addressRepository) Create(address domain.Address) (domain.Address, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if address.ID == "" {
		address.ID = uuid.NewString()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO addresses (id, customer_id, line1, line2, city, postal_code, country, is_default)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		address.ID, address.CustomerID, address.Line1, address.Line2,
		address.City, address.PostalCode, address.Country, address.IsDefault,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Address{}, domain.ErrCustomerNotFound
		}
		if isUniqueViolation(err) {
			return domain.Address{}, domain.ErrAlreadyExists
		}
		return domain.Address{}, fmt.Errorf("insert address: %w", err)
	}
	return address, nil
}

func (r *addressRepository) Get(id string) (domain.Address, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var address domain.Address
	err := r.q.QueryRowContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE id = $1", id,
	).Scan(
		&address.ID, &address.CustomerID, &address.Line1, &address.Line2,
		&address.City, &address.PostalCode, &address.Country, &address.IsDefault,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("select address: %w", err)
	}
	return address, nil
}

// Update правит данные адреса; владелец адреса не меняется.
func (r *addressRepository) Update(address domain.Address) (domain.Address, error) {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE addresses
		SET line1 = $1, line2 = $2, city = $3, postal_code = $4, country = $5, is_default = $6
		WHERE id = $7
	`,
		address.Line1, address.Line2, address.City, address.PostalCode,
		address.Country, address.IsDefault, address.ID,
	)
	if err != nil {
		return domain.Address{}, fmt.Errorf("update address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Address{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return address, nil
}

func (r *addressRepository) Delete(id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrAddressNotFound
	}
	return nil
}

func (r *addressRepository) ListByCustomer(customerID string) ([]domain.Address, error) {
	ctx, cancel := opCtx()
	defer cancel()

	rows, err := r.q.QueryContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE customer_id = $1 ORDER BY id ASC",
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]domain.Address, 0)
	for rows.Next() {
		var address domain.Address
		if err := rows.Scan(
			&address.ID, &address.CustomerID, &address.Line1, &address.Line2,
			&address.City, &address.PostalCode, &address.Country, &address.IsDefault,
		); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}
	return addresses, nil
}

func (r *addressRepository) ClearDefault(customerID string) error {
	ctx, cancel := opCtx()
	defer cancel()

	if _, err := r.q.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE WHERE customer_id = $1 AND is_default`,
		customerID,
	); err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

var _ domain.AddressRepository = (*addressRepository)(nil)
