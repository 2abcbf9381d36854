package pricing

import (
	"github.com/shopspring/decimal"
)

// DiscountMode задаёт способ ввода скидки. Ручная сумма и списание баллов взаимоисключающие.
type DiscountMode string

const (
	DiscountNone   DiscountMode = ""
	DiscountManual DiscountMode = "manual"
	DiscountPoints DiscountMode = "points"
)

// Discount описывает скидку, запрошенную оператором.
type Discount struct {
	Mode   DiscountMode    `json:"mode"`
	Amount decimal.Decimal `json:"amount"`
	Points int64           `json:"points"`
}

// DiscountFromManualAmount проверяет ручную скидку. Сумма больше подытога отклоняется, а не подрезается.
func DiscountFromManualAmount(amount, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, invalid(ErrNonPositiveDiscount, amount.String())
	}
	if amount.GreaterThan(subtotal) {
		return decimal.Zero, invalid(ErrDiscountExceedsTotal, amount.String()+" > "+subtotal.String())
	}
	return amount, nil
}

// DiscountFromPoints переводит баллы в сумму скидки по курсу точки.
func (c *Calculator) DiscountFromPoints(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(c.opts.ConversionRate)
}

// ValidateRedemption проверяет, можно ли списать points баллов при балансе available
// для заказа на сумму orderTotal.
func (c *Calculator) ValidateRedemption(points, available int64, orderTotal decimal.Decimal) error {
	if !c.opts.PointsEnabled {
		return invalid(ErrPointsDisabled, "")
	}
	if points <= 0 {
		return invalid(ErrNonPositivePoints, "")
	}
	if points > available {
		return &ValidationError{Reason: ErrInsufficientPoints, Available: &available}
	}
	if c.DiscountFromPoints(points).GreaterThan(orderTotal) {
		return invalid(ErrDiscountExceedsTotal, c.DiscountFromPoints(points).String()+" > "+orderTotal.String())
	}
	return nil
}

// ResolveDiscount возвращает сумму скидки и число списываемых баллов для выбранного способа.
func (c *Calculator) ResolveDiscount(d Discount, subtotal decimal.Decimal, available int64) (decimal.Decimal, int64, error) {
	switch d.Mode {
	case DiscountNone:
		return decimal.Zero, 0, nil
	case DiscountManual:
		amount, err := DiscountFromManualAmount(d.Amount, subtotal)
		if err != nil {
			return decimal.Zero, 0, err
		}
		return amount, 0, nil
	case DiscountPoints:
		if err := c.ValidateRedemption(d.Points, available, subtotal); err != nil {
			return decimal.Zero, 0, err
		}
		return c.DiscountFromPoints(d.Points), d.Points, nil
	default:
		return decimal.Zero, 0, invalid(ErrUnknownDiscountMode, string(d.Mode))
	}
}
