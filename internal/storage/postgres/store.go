package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	opTimeout = 5 * time.Second
)

// querier покрывает общие query-методы *sql.DB и *sql.Tx, чтобы один и
// тот же репозиторий работал и напрямую с базой, и внутри транзакции.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store оборачивает SQL-подключение к PostgreSQL и реализует
// domain.RepositorySet и domain.TxManager.
type Store struct {
	db *sql.DB
}

// Open открывает подключение к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает raw SQL DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Orders() domain.OrderRepository       { return &orderRepository{q: s.db} }
func (s *Store) Products() domain.ProductRepository   { return &productRepository{q: s.db} }
func (s *Store) Customers() domain.CustomerRepository { return &customerRepository{q: s.db} }
func (s *Store) Addresses() domain.AddressRepository  { return &addressRepository{q: s.db} }
func (s *Store) Outbox() domain.OutboxRepository      { return &outboxRepository{q: s.db} }

// WithinTx исполняет fn внутри одной SQL-транзакции: переданный набор
// репозиториев привязан к ней, ошибка fn откатывает все изменения.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.RepositorySet) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&txRepositorySet{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback tx: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txRepositorySet struct {
	tx *sql.Tx
}

func (t *txRepositorySet) Orders() domain.OrderRepository       { return &orderRepository{q: t.tx} }
func (t *txRepositorySet) Products() domain.ProductRepository   { return &productRepository{q: t.tx} }
func (t *txRepositorySet) Customers() domain.CustomerRepository { return &customerRepository{q: t.tx} }
func (t *txRepositorySet) Addresses() domain.AddressRepository  { return &addressRepository{q: t.tx} }
func (t *txRepositorySet) Outbox() domain.OutboxRepository      { return &outboxRepository{q: t.tx} }

var (
	_ domain.RepositorySet = (*Store)(nil)
	_ domain.TxManager     = (*Store)(nil)
	_ domain.RepositorySet = (*txRepositorySet)(nil)
)

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// orderClause строит ORDER BY из правил сортировки, пропуская поля вне
// whitelist колонок. Поля приходят из доменных констант, не от клиента напрямую.
func orderClause(rules []domain.Sort, allowed map[string]string) string {
	clause := ""
	for _, rule := range rules {
		column, ok := allowed[rule.Field]
		if !ok {
			continue
		}
		if clause != "" {
			clause += ", "
		}
		clause += column
		if rule.Desc {
			clause += " DESC"
		} else {
			clause += " ASC"
		}
	}
	if clause == "" {
		return ""
	}
	return " ORDER BY " + clause
}
