// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrStaffExists возвращается при попытке создать сотрудника с уже существующим логином.
var (
	ErrStaffExists = errors.New("staff already exists")
	// ErrStaffNotFound возвращается, если сотрудник не найден.
	ErrStaffNotFound = errors.New("staff not found")
	// ErrServiceNotFound возвращается, если услуга не найдена в каталоге точки.
	ErrServiceNotFound = errors.New("service not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientPoints возвращается при попытке списать больше баллов, чем есть на счёте.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrInvalidTransition возвращается, если статус заказа изменился параллельно.
	ErrInvalidTransition = errors.New("order status changed concurrently")
	// ErrAlreadyPaid возвращается при повторной оплате заказа.
	ErrAlreadyPaid = errors.New("order already paid")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool      *pgxpool.Pool
	retryBase time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, retryBase: time.Second}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликтах сериализации, взаимных блокировках и обрывах соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(r.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateStaff создаёт нового сотрудника точки.
func (r *PostgresRepository) CreateStaff(ctx context.Context, login string, passwordHash []byte, storeID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO staff (login, password_hash, store_id) VALUES ($1, $2, $3) RETURNING id`,
		login, passwordHash, storeID,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrStaffExists, login)
		}
		return 0, fmt.Errorf("create staff: %w", err)
	}
	return id, nil
}

// GetStaffByLogin возвращает сотрудника по логину.
func (r *PostgresRepository) GetStaffByLogin(ctx context.Context, login string) (*model.Staff, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, store_id, created_at FROM staff WHERE login = $1`,
		login,
	)

	var s model.Staff
	err := row.Scan(&s.ID, &s.Login, &s.PasswordHash, &s.StoreID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}

	return &s, nil
}

// CreateService добавляет услугу в каталог точки.
func (r *PostgresRepository) CreateService(ctx context.Context, s model.ServiceLine) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO services (store_id, name, pricing_mode, unit_price, kilo_price, duration_value, duration_unit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		s.StoreID, s.Name, string(s.PricingMode), s.UnitPrice, s.KiloPrice, s.Duration.Value, string(s.Duration.Unit),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create service: %w", err)
	}
	return id, nil
}

const serviceColumns = `id, store_id, name, pricing_mode, unit_price, kilo_price, duration_value, duration_unit`

func scanService(row pgx.Row) (model.ServiceLine, error) {
	var (
		s            model.ServiceLine
		pricingMode  string
		durationUnit string
	)
	err := row.Scan(&s.ID, &s.StoreID, &s.Name, &pricingMode, &s.UnitPrice, &s.KiloPrice, &s.Duration.Value, &durationUnit)
	s.PricingMode = model.PricingMode(pricingMode)
	s.Duration.Unit = model.DurationUnit(durationUnit)
	return s, err
}

// ListServices возвращает каталог услуг точки.
func (r *PostgresRepository) ListServices(ctx context.Context, storeID int64) ([]model.ServiceLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE store_id = $1 ORDER BY name`,
		storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	var res []model.ServiceLine
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetServices возвращает услуги точки по идентификаторам. При отсутствии любой из них возвращается ErrServiceNotFound.
func (r *PostgresRepository) GetServices(ctx context.Context, storeID int64, ids []int64) (map[int64]model.ServiceLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE store_id = $1 AND id = ANY($2)`,
		storeID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	res := make(map[int64]model.ServiceLine, len(ids))
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		res[s.ID] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for _, id := range ids {
		if _, ok := res[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrServiceNotFound, id)
		}
	}

	return res, nil
}

// UpsertCustomer создаёт клиента или обновляет его имя.
func (r *PostgresRepository) UpsertCustomer(ctx context.Context, c model.Customer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO customers (phone, store_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (phone, store_id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`,
		c.Phone, c.StoreID, c.Name,
	)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}
