package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

// ErrEmptyOrder возвращается для заказа без строк.
var ErrEmptyOrder = errors.New("order has no lines")

// QuoteRequest содержит исходные данные для расчёта заказа.
type QuoteRequest struct {
	Lines           []model.OrderLine
	DropOffAt       time.Time
	Discount        Discount
	AvailablePoints int64
	CashReceived    *decimal.Decimal
}

// Quote содержит результат расчёта заказа.
type Quote struct {
	Lines               []model.OrderLine
	Subtotal            decimal.Decimal
	DiscountAmount      decimal.Decimal
	PointsRedeemed      int64
	TotalAmount         decimal.Decimal
	EstimatedCompletion *time.Time
	PointsEarned        int64
	ChangeAmount        *decimal.Decimal
}

// Quote нормализует и проверяет строки, считает суммы, скидку, сдачу и сроки.
// Баллы к начислению считаются всегда, начисляются они только после оплаты.
func (c *Calculator) Quote(req QuoteRequest) (*Quote, error) {
	if len(req.Lines) == 0 {
		return nil, invalid(ErrInvalidLine, ErrEmptyOrder.Error())
	}

	lines := make([]model.OrderLine, len(req.Lines))
	for i, l := range req.Lines {
		l = NormalizeLine(l)
		if err := ValidateLine(l); err != nil {
			return nil, err
		}
		l.Service.Duration = c.EffectiveDuration(l.Service)
		l.LineTotal = LineTotal(l)
		l.EstimatedCompletion = ComputeFinish(l.Service.Duration, req.DropOffAt)
		lines[i] = l
	}

	subtotal := Subtotal(lines)
	if subtotal.IsNegative() {
		return nil, &ConsistencyError{What: "negative subtotal " + subtotal.String()}
	}

	discount, redeemed, err := c.ResolveDiscount(req.Discount, subtotal, req.AvailablePoints)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Lines:               lines,
		Subtotal:            subtotal,
		DiscountAmount:      discount,
		PointsRedeemed:      redeemed,
		TotalAmount:         OrderTotal(subtotal, discount),
		EstimatedCompletion: ComputeOrderCompletion(lines, req.DropOffAt),
		PointsEarned:        c.PointsEarned(lines),
	}

	if req.CashReceived != nil {
		change, err := Change(*req.CashReceived, q.TotalAmount)
		if err != nil {
			return nil, err
		}
		q.ChangeAmount = &change
	}

	return q, nil
}
