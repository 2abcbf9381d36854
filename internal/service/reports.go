package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/repository"
)

const (
	dateLayout = "2006-01-02"

	storeOrdersLimit     = 200
	defaultPeriodDays    = 7
	defaultServicesLimit = 10
	maxServicesLimit     = 50
)

// parseDay возвращает начало дня date в часовом поясе точки. Пустая дата означает сегодня.
func (s *Service) parseDay(date string) (time.Time, error) {
	if date == "" {
		now := s.now().In(s.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc), nil
	}

	day, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

// parsePeriod возвращает интервал [from, to) по датам from и to включительно.
// Без дат берётся неделя по сегодняшний день.
func (s *Service) parsePeriod(from, to string) (time.Time, time.Time, error) {
	end, err := s.parseDay(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := end.AddDate(0, 0, 1-defaultPeriodDays)
	if from != "" {
		if start, err = s.parseDay(from); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}

	return start, end.AddDate(0, 0, 1), nil
}

// ListUnpaidOrders возвращает неотменённые неоплаченные заказы, созданные раньше чем olderThan назад,
// старые первыми.
func (s *Service) ListUnpaidOrders(ctx context.Context, storeID int64, olderThan time.Duration) ([]model.Order, error) {
	if olderThan < 0 {
		olderThan = 0
	}
	return s.repo.ListOrders(ctx, storeID, repository.OrderFilter{
		PaymentStatus:    model.PaymentPending,
		ExcludeCancelled: true,
		CreatedTo:        s.now().Add(-olderThan),
		OldestFirst:      true,
	}, storeOrdersLimit)
}

// ListReadyOrders возвращает заказы, готовые к выдаче.
func (s *Service) ListReadyOrders(ctx context.Context, storeID int64) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, storeID, repository.OrderFilter{
		ExecutionStatus: model.ExecutionReadyForPickup,
	}, storeOrdersLimit)
}

// ListOrdersByDate возвращает заказы, принятые в день date, с необязательным фильтром по статусу.
func (s *Service) ListOrdersByDate(ctx context.Context, storeID int64, date string, status model.ExecutionStatus) ([]model.Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	day, err := s.parseDay(date)
	if err != nil {
		return nil, err
	}

	return s.repo.ListOrders(ctx, storeID, repository.OrderFilter{
		ExecutionStatus: status,
		CreatedFrom:     day,
		CreatedTo:       day.AddDate(0, 0, 1),
	}, storeOrdersLimit)
}

// RevenueReport возвращает выручку точки за период с from по to включительно.
func (s *Service) RevenueReport(ctx context.Context, storeID int64, from, to string) (*model.RevenueReport, error) {
	start, end, err := s.parsePeriod(from, to)
	if err != nil {
		return nil, err
	}

	rep, err := s.repo.PeriodRevenue(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}

	rep.From = start.Format(dateLayout)
	rep.To = end.AddDate(0, 0, -1).Format(dateLayout)
	if rep.Orders > 0 {
		rep.AverageOrder = rep.Revenue.Div(decimal.NewFromInt(rep.Orders)).Round(0)
	}

	return rep, nil
}

// PopularServices возвращает самые заказываемые услуги точки за период с from по to включительно.
func (s *Service) PopularServices(ctx context.Context, storeID int64, from, to string, limit int) ([]model.ServiceStat, error) {
	start, end, err := s.parsePeriod(from, to)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultServicesLimit
	}
	limit = min(limit, maxServicesLimit)

	return s.repo.PopularServices(ctx, storeID, start, end, limit)
}
