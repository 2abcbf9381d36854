package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

// GetPointsAccount возвращает бонусный счёт клиента. Для клиента без счёта возвращается пустой счёт.
func (r *PostgresRepository) GetPointsAccount(ctx context.Context, phone string, storeID int64) (*model.PointsAccount, error) {
	acc := &model.PointsAccount{CustomerPhone: phone, StoreID: storeID}

	err := r.pool.QueryRow(ctx,
		`SELECT accumulated_points, current_points FROM points_accounts WHERE customer_phone = $1 AND store_id = $2`,
		phone, storeID,
	).Scan(&acc.AccumulatedPoints, &acc.CurrentPoints)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get points account: %w", err)
	}

	return acc, nil
}

// DecrementPoints списывает баллы одной условной операцией: баланс проверяется и уменьшается
// атомарно, поэтому параллельные списания не могут увести его в минус.
func (r *PostgresRepository) DecrementPoints(ctx context.Context, phone string, storeID int64, points int64) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE points_accounts
			 SET current_points = current_points - $3, updated_at = now()
			 WHERE customer_phone = $1 AND store_id = $2 AND current_points >= $3`,
			phone, storeID, points,
		)
		if err != nil {
			return fmt.Errorf("decrement points: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrInsufficientPoints
		}
		return nil
	})
}

// RestorePoints возвращает ранее списанные баллы на текущий баланс.
func (r *PostgresRepository) RestorePoints(ctx context.Context, phone string, storeID int64, points int64) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`UPDATE points_accounts
			 SET current_points = current_points + $3, updated_at = now()
			 WHERE customer_phone = $1 AND store_id = $2`,
			phone, storeID, points,
		)
		if err != nil {
			return fmt.Errorf("restore points: %w", err)
		}
		return nil
	})
}

// AddPointsTransaction записывает операцию в журнал баллов.
func (r *PostgresRepository) AddPointsTransaction(ctx context.Context, t model.PointsTransaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO points_transactions (customer_phone, store_id, order_id, kind, delta) VALUES ($1, $2, $3, $4, $5)`,
		t.CustomerPhone, t.StoreID, t.OrderID, string(t.Kind), t.Delta,
	)
	if err != nil {
		return fmt.Errorf("insert points transaction: %w", err)
	}
	return nil
}

// earnPoints начисляет баллы за заказ внутри транзакции tx: увеличивает накопленный и текущий
// баланс и пишет запись в журнал. Счёт создаётся при первом начислении.
func earnPoints(ctx context.Context, tx pgx.Tx, phone string, storeID int64, orderID uuid.UUID, points int64) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO points_accounts (customer_phone, store_id, accumulated_points, current_points)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (customer_phone, store_id) DO UPDATE
		 SET accumulated_points = points_accounts.accumulated_points + EXCLUDED.accumulated_points,
		     current_points = points_accounts.current_points + EXCLUDED.current_points,
		     updated_at = now()`,
		phone, storeID, points,
	)
	if err != nil {
		return fmt.Errorf("upsert points account: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO points_transactions (customer_phone, store_id, order_id, kind, delta) VALUES ($1, $2, $3, $4, $5)`,
		phone, storeID, orderID, string(model.PointsEarning), points,
	)
	if err != nil {
		return fmt.Errorf("insert points transaction: %w", err)
	}

	return nil
}

// ListPointsTransactions возвращает журнал операций по счёту, новые записи первыми.
func (r *PostgresRepository) ListPointsTransactions(ctx context.Context, phone string, storeID int64, limit int) ([]model.PointsTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_phone, store_id, order_id, kind, delta, created_at
		 FROM points_transactions
		 WHERE customer_phone = $1 AND store_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		phone, storeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select points transactions: %w", err)
	}
	defer rows.Close()

	var res []model.PointsTransaction
	for rows.Next() {
		var (
			t    model.PointsTransaction
			kind string
		)
		if err := rows.Scan(&t.ID, &t.CustomerPhone, &t.StoreID, &t.OrderID, &kind, &t.Delta, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan points transaction: %w", err)
		}
		t.Kind = model.PointsTransactionKind(kind)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
