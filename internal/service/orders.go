package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/pricing"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/repository"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/validation"
)

const ordersHistoryLimit = 50

// LineInput описывает строку заказа, ссылающуюся на услугу каталога.
type LineInput struct {
	ServiceID int64
	Quantity  decimal.Decimal
	Weight    decimal.Decimal
	Items     []model.SubLine
}

// PaymentInput содержит данные об оплате.
type PaymentInput struct {
	Method       model.PaymentMethod
	CashReceived *decimal.Decimal
}

// OrderInput содержит данные для расчёта и создания заказа.
type OrderInput struct {
	IdempotencyKey uuid.UUID
	CustomerName   string
	CustomerPhone  string
	Lines          []LineInput
	Discount       pricing.Discount
	DropOffAt      time.Time
	Payment        *PaymentInput
}

var transitions = map[model.ExecutionStatus][]model.ExecutionStatus{
	model.ExecutionPending:        {model.ExecutionInProgress, model.ExecutionCancelled},
	model.ExecutionInProgress:     {model.ExecutionReadyForPickup, model.ExecutionCancelled},
	model.ExecutionReadyForPickup: {model.ExecutionCompleted, model.ExecutionCancelled},
}

// CanTransition сообщает, допустим ли переход статуса выполнения from → to.
func CanTransition(from, to model.ExecutionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func customerKey(storeID int64, phone string) string {
	return strconv.FormatInt(storeID, 10) + ":" + phone
}

func normalizePhone(raw string) (string, error) {
	phone := validation.CleanPhone(raw)
	if !validation.IsValidPhone(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

func validatePayment(p *PaymentInput) error {
	switch p.Method {
	case model.PaymentCash:
		if p.CashReceived == nil {
			return ErrCashRequired
		}
	case model.PaymentQRIS, model.PaymentTransfer:
	default:
		return ErrInvalidPaymentMethod
	}
	return nil
}

func (s *Service) resolveLines(ctx context.Context, storeID int64, in []LineInput) ([]model.OrderLine, error) {
	if len(in) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(in))
	seen := make(map[int64]struct{}, len(in))
	for _, l := range in {
		if _, ok := seen[l.ServiceID]; !ok {
			seen[l.ServiceID] = struct{}{}
			ids = append(ids, l.ServiceID)
		}
	}

	services, err := s.repo.GetServices(ctx, storeID, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]model.OrderLine, len(in))
	for i, l := range in {
		lines[i] = model.OrderLine{
			Service:  services[l.ServiceID],
			Quantity: l.Quantity,
			Weight:   l.Weight,
			Items:    l.Items,
		}
	}
	return lines, nil
}

func (s *Service) quote(ctx context.Context, storeID int64, phone string, in OrderInput) (*pricing.Quote, error) {
	lines, err := s.resolveLines(ctx, storeID, in.Lines)
	if err != nil {
		return nil, err
	}

	var available int64
	if in.Discount.Mode == pricing.DiscountPoints && phone != "" {
		acc, err := s.repo.GetPointsAccount(ctx, phone, storeID)
		if err != nil {
			return nil, err
		}
		available = acc.CurrentPoints
	}

	req := pricing.QuoteRequest{
		Lines:           lines,
		DropOffAt:       in.DropOffAt,
		Discount:        in.Discount,
		AvailablePoints: available,
	}
	if req.DropOffAt.IsZero() {
		req.DropOffAt = s.now()
	}
	if in.Payment != nil {
		req.CashReceived = in.Payment.CashReceived
	}

	return s.calc.Quote(req)
}

// Quote рассчитывает заказ без сохранения. Телефон нужен только для списания баллов.
func (s *Service) Quote(ctx context.Context, storeID int64, in OrderInput) (*pricing.Quote, error) {
	var phone string
	if in.CustomerPhone != "" || in.Discount.Mode == pricing.DiscountPoints {
		var err error
		if phone, err = normalizePhone(in.CustomerPhone); err != nil {
			return nil, err
		}
	}
	return s.quote(ctx, storeID, phone, in)
}

// CreateOrder рассчитывает и сохраняет заказ. Повторный запрос с тем же ключом идемпотентности
// возвращает уже созданный заказ и true.
func (s *Service) CreateOrder(ctx context.Context, storeID int64, in OrderInput) (*model.Order, bool, error) {
	clientKey := in.IdempotencyKey != uuid.Nil
	if clientKey {
		existing, err := s.findByKey(ctx, storeID, in.IdempotencyKey)
		if existing != nil || err != nil {
			return existing, existing != nil, err
		}
	} else {
		in.IdempotencyKey = uuid.New()
	}

	phone, err := normalizePhone(in.CustomerPhone)
	if err != nil {
		return nil, false, err
	}
	if in.Payment != nil {
		if err := validatePayment(in.Payment); err != nil {
			return nil, false, err
		}
	}

	now := s.now()
	if in.DropOffAt.IsZero() {
		in.DropOffAt = now
	}

	unlock := s.locks.Lock(customerKey(storeID, phone))
	defer unlock()

	// параллельный запрос с тем же ключом мог завершиться, пока ждали блокировку
	if clientKey {
		existing, err := s.findByKey(ctx, storeID, in.IdempotencyKey)
		if existing != nil || err != nil {
			return existing, existing != nil, err
		}
	}

	q, err := s.quote(ctx, storeID, phone, in)
	if err != nil {
		return nil, false, err
	}

	o := &model.Order{
		ID:                  uuid.New(),
		IdempotencyKey:      in.IdempotencyKey,
		StoreID:             storeID,
		CustomerName:        in.CustomerName,
		CustomerPhone:       phone,
		Lines:               q.Lines,
		DropOffAt:           in.DropOffAt,
		EstimatedCompletion: q.EstimatedCompletion,
		Subtotal:            q.Subtotal,
		DiscountAmount:      q.DiscountAmount,
		PointsRedeemed:      q.PointsRedeemed,
		TotalAmount:         q.TotalAmount,
		ExecutionStatus:     model.ExecutionPending,
		PaymentStatus:       model.PaymentPending,
		CreatedAt:           now,
	}
	if in.Payment != nil {
		paidAt := now
		o.PaymentStatus = model.PaymentCompleted
		o.PaymentMethod = in.Payment.Method
		o.CashReceived = in.Payment.CashReceived
		o.ChangeAmount = q.ChangeAmount
		o.PointsEarned = q.PointsEarned
		o.PaidAt = &paidAt
	}

	if err := s.repo.UpsertCustomer(ctx, model.Customer{Phone: phone, Name: in.CustomerName, StoreID: storeID}); err != nil {
		return nil, false, err
	}

	if o.PointsRedeemed > 0 {
		if err := s.redeemPoints(ctx, o); err != nil {
			return nil, false, err
		}
	}

	alreadyExists, err := s.repo.CreateOrder(ctx, o)
	if err != nil || alreadyExists {
		if o.PointsRedeemed > 0 {
			if rerr := s.reverseRedemption(ctx, o); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
		if err != nil {
			return nil, false, fmt.Errorf("create order: %w", err)
		}
		existing, err := s.repo.GetOrderByIdempotencyKey(ctx, storeID, in.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}

	s.enqueue(ctx, model.NotifyOrderCreated, o)

	return o, false, nil
}

// findByKey возвращает заказ с ключом идемпотентности key или nil, если такого заказа нет.
func (s *Service) findByKey(ctx context.Context, storeID int64, key uuid.UUID) (*model.Order, error) {
	existing, err := s.repo.GetOrderByIdempotencyKey(ctx, storeID, key)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, nil
	}
	return existing, err
}

// GetOrder возвращает заказ точки.
func (s *Service) GetOrder(ctx context.Context, storeID int64, id uuid.UUID) (*model.Order, error) {
	return s.repo.GetOrder(ctx, storeID, id)
}

// ListOrdersByPhone возвращает историю заказов клиента, новые первыми.
func (s *Service) ListOrdersByPhone(ctx context.Context, storeID int64, rawPhone string) ([]model.Order, error) {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByPhone(ctx, storeID, phone, ordersHistoryLimit)
}

// UpdateStatus переводит заказ в статус выполнения to. Отмена неоплаченного заказа
// возвращает клиенту списанные баллы.
func (s *Service) UpdateStatus(ctx context.Context, storeID int64, id uuid.UUID, to model.ExecutionStatus) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, storeID, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.ExecutionStatus, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.ExecutionStatus, to)
	}

	refund := to == model.ExecutionCancelled && o.PointsRedeemed > 0 && o.PaymentStatus == model.PaymentPending
	if refund {
		unlock := s.locks.Lock(customerKey(storeID, o.CustomerPhone))
		defer unlock()
	}

	if err := s.repo.UpdateExecutionStatus(ctx, storeID, id, o.ExecutionStatus, to); err != nil {
		return nil, err
	}
	o.ExecutionStatus = to

	if refund {
		if err := s.reverseRedemption(ctx, o); err != nil {
			s.logger.Error("failed to refund points of cancelled order",
				zap.String("order_id", o.ID.String()), zap.Error(err))
		}
	}

	switch to {
	case model.ExecutionReadyForPickup:
		s.enqueue(ctx, model.NotifyOrderReady, o)
	case model.ExecutionCompleted:
		s.enqueue(ctx, model.NotifyOrderCompleted, o)
	}

	return o, nil
}

// CompletePayment оплачивает заказ и начисляет за него баллы. Оплата и начисление сохраняются
// вместе: при ошибке заказ остаётся неоплаченным и оплату можно повторить. Повторная оплата
// возвращает repository.ErrAlreadyPaid.
func (s *Service) CompletePayment(ctx context.Context, storeID int64, id uuid.UUID, p PaymentInput) (*model.Order, error) {
	if err := validatePayment(&p); err != nil {
		return nil, err
	}

	o, err := s.repo.GetOrder(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == model.PaymentCompleted {
		return nil, repository.ErrAlreadyPaid
	}
	if o.ExecutionStatus == model.ExecutionCancelled {
		return nil, ErrOrderCancelled
	}

	payment := repository.Payment{
		Method:       p.Method,
		PointsEarned: s.calc.PointsEarned(o.Lines),
		PaidAt:       s.now(),
	}
	if p.CashReceived != nil {
		change, err := pricing.Change(*p.CashReceived, o.TotalAmount)
		if err != nil {
			return nil, err
		}
		payment.CashReceived = p.CashReceived
		payment.ChangeAmount = &change
	}

	unlock := s.locks.Lock(customerKey(storeID, o.CustomerPhone))
	defer unlock()

	if err := s.repo.MarkOrderPaid(ctx, storeID, id, payment); err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}

	o.PaymentStatus = model.PaymentCompleted
	o.PaymentMethod = payment.Method
	o.CashReceived = payment.CashReceived
	o.ChangeAmount = payment.ChangeAmount
	o.PointsEarned = payment.PointsEarned
	o.PaidAt = &payment.PaidAt

	return o, nil
}
