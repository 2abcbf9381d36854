package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

// PeriodRevenue считает выручку по заказам точки, созданным в интервале [from, to).
func (r *PostgresRepository) PeriodRevenue(ctx context.Context, storeID int64, from, to time.Time) (*model.RevenueReport, error) {
	var rep model.RevenueReport

	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE payment_status = $5),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE payment_status = $5), 0),
			COALESCE(SUM(discount_amount), 0)
		 FROM orders
		 WHERE store_id = $1 AND created_at >= $2 AND created_at < $3 AND execution_status <> $4`,
		storeID, from, to, string(model.ExecutionCancelled), string(model.PaymentCompleted),
	).Scan(&rep.Orders, &rep.OrdersPaid, &rep.Revenue, &rep.PaidRevenue, &rep.Discounts)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	return &rep, nil
}

// PopularServices возвращает услуги точки, отсортированные по числу заказов в интервале [from, to).
func (r *PostgresRepository) PopularServices(ctx context.Context, storeID int64, from, to time.Time, limit int) ([]model.ServiceStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.service_name,
			COUNT(DISTINCT l.order_id),
			COALESCE(SUM(l.quantity), 0),
			COALESCE(SUM(l.weight), 0),
			COALESCE(SUM(l.line_total), 0)
		 FROM order_lines l
		 JOIN orders o ON o.id = l.order_id
		 WHERE o.store_id = $1 AND o.created_at >= $2 AND o.created_at < $3 AND o.execution_status <> $4
		 GROUP BY l.service_name
		 ORDER BY 2 DESC, 5 DESC, l.service_name
		 LIMIT $5`,
		storeID, from, to, string(model.ExecutionCancelled), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select popular services: %w", err)
	}
	defer rows.Close()

	var res []model.ServiceStat
	for rows.Next() {
		var st model.ServiceStat
		if err := rows.Scan(&st.ServiceName, &st.Orders, &st.Quantity, &st.Weight, &st.Revenue); err != nil {
			return nil, fmt.Errorf("scan service stat: %w", err)
		}
		res = append(res, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
