package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

const orderColumns = `id, idempotency_key, store_id, customer_name, customer_phone, drop_off_at,
	estimated_completion, subtotal, discount_amount, points_redeemed, total_amount,
	execution_status, payment_status, payment_method, cash_received, change_amount,
	points_earned, paid_at, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o               model.Order
		executionStatus string
		paymentStatus   string
		paymentMethod   *string
		cashReceived    decimal.NullDecimal
		changeAmount    decimal.NullDecimal
	)

	err := row.Scan(
		&o.ID, &o.IdempotencyKey, &o.StoreID, &o.CustomerName, &o.CustomerPhone, &o.DropOffAt,
		&o.EstimatedCompletion, &o.Subtotal, &o.DiscountAmount, &o.PointsRedeemed, &o.TotalAmount,
		&executionStatus, &paymentStatus, &paymentMethod, &cashReceived, &changeAmount,
		&o.PointsEarned, &o.PaidAt, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ExecutionStatus = model.ExecutionStatus(executionStatus)
	o.PaymentStatus = model.PaymentStatus(paymentStatus)
	if paymentMethod != nil {
		o.PaymentMethod = model.PaymentMethod(*paymentMethod)
	}
	if cashReceived.Valid {
		o.CashReceived = &cashReceived.Decimal
	}
	if changeAmount.Valid {
		o.ChangeAmount = &changeAmount.Decimal
	}

	return &o, nil
}

func nullablePaymentMethod(m model.PaymentMethod) *string {
	if m == "" {
		return nil
	}
	s := string(m)
	return &s
}

// CreateOrder сохраняет заказ вместе со строками и возвращает признак того, что заказ с таким
// ключом идемпотентности уже существовал. Баллы за заказ, оплаченный при создании, начисляются
// в той же транзакции.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (bool, error) {
	var alreadyExists bool

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		cmdTag, err := tx.Exec(ctx,
			`INSERT INTO orders (id, idempotency_key, store_id, customer_name, customer_phone, drop_off_at,
				estimated_completion, subtotal, discount_amount, points_redeemed, total_amount,
				execution_status, payment_status, payment_method, cash_received, change_amount,
				points_earned, paid_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			 ON CONFLICT (store_id, idempotency_key) DO NOTHING`,
			o.ID, o.IdempotencyKey, o.StoreID, o.CustomerName, o.CustomerPhone, o.DropOffAt,
			o.EstimatedCompletion, o.Subtotal, o.DiscountAmount, o.PointsRedeemed, o.TotalAmount,
			string(o.ExecutionStatus), string(o.PaymentStatus), nullablePaymentMethod(o.PaymentMethod),
			o.CashReceived, o.ChangeAmount, o.PointsEarned, o.PaidAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if cmdTag.RowsAffected() == 0 {
			alreadyExists = true
			return nil
		}

		batch := &pgx.Batch{}
		for i, l := range o.Lines {
			var serviceID *int64
			if l.Service.ID != 0 {
				serviceID = &l.Service.ID
			}
			batch.Queue(
				`INSERT INTO order_lines (order_id, position, service_id, service_name, pricing_mode,
					unit_price, kilo_price, duration_value, duration_unit, quantity, weight, items,
					line_total, estimated_completion)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
				o.ID, i, serviceID, l.Service.Name, string(l.Service.PricingMode),
				l.Service.UnitPrice, l.Service.KiloPrice, l.Service.Duration.Value, string(l.Service.Duration.Unit),
				l.Quantity, l.Weight, l.Items, l.LineTotal, l.EstimatedCompletion,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}

		if o.PaymentStatus == model.PaymentCompleted && o.PointsEarned > 0 {
			if err := earnPoints(ctx, tx, o.CustomerPhone, o.StoreID, o.ID, o.PointsEarned); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})

	return alreadyExists, err
}

// GetOrderByIdempotencyKey возвращает заказ, созданный с указанным ключом идемпотентности.
func (r *PostgresRepository) GetOrderByIdempotencyKey(ctx context.Context, storeID int64, key uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE store_id = $1 AND idempotency_key = $2`,
		storeID, key,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by key: %w", err)
	}

	return r.withLines(ctx, o)
}

// GetOrder возвращает заказ точки вместе со строками.
func (r *PostgresRepository) GetOrder(ctx context.Context, storeID int64, id uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE store_id = $1 AND id = $2`,
		storeID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return r.withLines(ctx, o)
}

func (r *PostgresRepository) withLines(ctx context.Context, o *model.Order) (*model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT service_id, service_name, pricing_mode, unit_price, kilo_price, duration_value,
			duration_unit, quantity, weight, items, line_total, estimated_completion
		 FROM order_lines
		 WHERE order_id = $1
		 ORDER BY position`,
		o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l            model.OrderLine
			serviceID    *int64
			pricingMode  string
			durationUnit string
		)
		if err := rows.Scan(&serviceID, &l.Service.Name, &pricingMode, &l.Service.UnitPrice, &l.Service.KiloPrice,
			&l.Service.Duration.Value, &durationUnit, &l.Quantity, &l.Weight, &l.Items, &l.LineTotal,
			&l.EstimatedCompletion); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if serviceID != nil {
			l.Service.ID = *serviceID
		}
		l.Service.StoreID = o.StoreID
		l.Service.PricingMode = model.PricingMode(pricingMode)
		l.Service.Duration.Unit = model.DurationUnit(durationUnit)
		o.Lines = append(o.Lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return o, nil
}

// ListOrdersByPhone возвращает последние заказы клиента без строк.
func (r *PostgresRepository) ListOrdersByPhone(ctx context.Context, storeID int64, phone string, limit int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE store_id = $1 AND customer_phone = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		storeID, phone, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// OrderFilter задаёт условия выборки заказов точки. Пустые поля не ограничивают выборку.
type OrderFilter struct {
	ExecutionStatus  model.ExecutionStatus
	PaymentStatus    model.PaymentStatus
	ExcludeCancelled bool
	CreatedFrom      time.Time
	CreatedTo        time.Time
	OldestFirst      bool
}

// where собирает условие WHERE для f. Первым аргументом всегда идёт storeID.
func (f OrderFilter) where(storeID int64) (string, []any) {
	var b strings.Builder
	args := []any{storeID}
	b.WriteString("store_id = $1")

	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&b, " AND "+cond, len(args))
	}

	if f.ExecutionStatus != "" {
		add("execution_status = $%d", string(f.ExecutionStatus))
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", string(f.PaymentStatus))
	}
	if f.ExcludeCancelled {
		add("execution_status <> $%d", string(model.ExecutionCancelled))
	}
	if !f.CreatedFrom.IsZero() {
		add("created_at >= $%d", f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		add("created_at < $%d", f.CreatedTo)
	}

	return b.String(), args
}

// ListOrders возвращает заказы точки, подходящие под фильтр, без строк.
func (r *PostgresRepository) ListOrders(ctx context.Context, storeID int64, f OrderFilter, limit int) ([]model.Order, error) {
	where, args := f.where(storeID)
	order := "DESC"
	if f.OldestFirst {
		order = "ASC"
	}
	args = append(args, limit)

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where+
			` ORDER BY created_at `+order+fmt.Sprintf(` LIMIT $%d`, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// UpdateExecutionStatus меняет статус выполнения, только если текущий статус равен from.
func (r *PostgresRepository) UpdateExecutionStatus(ctx context.Context, storeID int64, id uuid.UUID, from, to model.ExecutionStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET execution_status = $4, updated_at = now()
		 WHERE store_id = $1 AND id = $2 AND execution_status = $3`,
		storeID, id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update execution status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Payment содержит данные об оплате заказа.
type Payment struct {
	Method       model.PaymentMethod
	CashReceived *decimal.Decimal
	ChangeAmount *decimal.Decimal
	PointsEarned int64
	PaidAt       time.Time
}

// MarkOrderPaid переводит заказ в оплаченные и начисляет за него баллы одной транзакцией.
// Повторная оплата возвращает ErrAlreadyPaid.
func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, storeID int64, id uuid.UUID, p Payment) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var phone string
		err = tx.QueryRow(ctx,
			`UPDATE orders
			 SET payment_status = $3, payment_method = $4, cash_received = $5, change_amount = $6,
			     points_earned = $7, paid_at = $8, updated_at = now()
			 WHERE store_id = $1 AND id = $2 AND payment_status = $9
			 RETURNING customer_phone`,
			storeID, id, string(model.PaymentCompleted), nullablePaymentMethod(p.Method), p.CashReceived,
			p.ChangeAmount, p.PointsEarned, p.PaidAt, string(model.PaymentPending),
		).Scan(&phone)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyPaid
			}
			return fmt.Errorf("mark order paid: %w", err)
		}

		if p.PointsEarned > 0 {
			if err := earnPoints(ctx, tx, phone, storeID, id, p.PointsEarned); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// DailySummary считает сводку по точке за интервал [from, to).
func (r *PostgresRepository) DailySummary(ctx context.Context, storeID int64, from, to time.Time) (*model.DailySummary, error) {
	var s model.DailySummary

	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $3),
			COUNT(*) FILTER (WHERE paid_at >= $2 AND paid_at < $3),
			COALESCE(SUM(total_amount) FILTER (WHERE paid_at >= $2 AND paid_at < $3), 0),
			COALESCE(SUM(discount_amount) FILTER (WHERE created_at >= $2 AND created_at < $3), 0)
		 FROM orders
		 WHERE store_id = $1 AND execution_status <> $4
		   AND ((created_at >= $2 AND created_at < $3) OR (paid_at >= $2 AND paid_at < $3))`,
		storeID, from, to, string(model.ExecutionCancelled),
	).Scan(&s.OrdersCreated, &s.OrdersPaid, &s.Revenue, &s.Discounts)
	if err != nil {
		return nil, fmt.Errorf("sum orders: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT
			COALESCE(-SUM(delta) FILTER (WHERE kind = $4), 0) - COALESCE(SUM(delta) FILTER (WHERE kind = $5), 0),
			COALESCE(SUM(delta) FILTER (WHERE kind = $6), 0)
		 FROM points_transactions
		 WHERE store_id = $1 AND created_at >= $2 AND created_at < $3`,
		storeID, from, to,
		string(model.PointsRedemption), string(model.PointsReversal), string(model.PointsEarning),
	).Scan(&s.PointsRedeemed, &s.PointsEarned)
	if err != nil {
		return nil, fmt.Errorf("sum points: %w", err)
	}

	return &s, nil
}
