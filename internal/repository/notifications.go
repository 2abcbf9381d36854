package repository

import (
	"context"
	"fmt"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

// EnqueueNotification ставит сообщение клиенту в очередь на отправку.
func (r *PostgresRepository) EnqueueNotification(ctx context.Context, n model.Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (order_id, kind, phone, message) VALUES ($1, $2, $3, $4)`,
		n.OrderID, string(n.Kind), n.Phone, n.Message,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// GetPendingNotifications возвращает неотправленные сообщения с числом попыток меньше maxAttempts.
func (r *PostgresRepository) GetPendingNotifications(ctx context.Context, limit, maxAttempts int) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, kind, phone, message, attempts
		 FROM notifications
		 WHERE sent_at IS NULL AND attempts < $1
		 ORDER BY created_at
		 LIMIT $2`,
		maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var res []model.Notification
	for rows.Next() {
		var (
			n    model.Notification
			kind string
		)
		if err := rows.Scan(&n.ID, &n.OrderID, &kind, &n.Phone, &n.Message, &n.Attempts); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = model.NotificationKind(kind)
		res = append(res, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkNotificationSent отмечает сообщение как отправленное.
func (r *PostgresRepository) MarkNotificationSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET sent_at = now(), attempts = attempts + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkNotificationFailed увеличивает счётчик неудачных попыток отправки.
func (r *PostgresRepository) MarkNotificationFailed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET attempts = attempts + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
