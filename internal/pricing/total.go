package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

var one = decimal.NewFromInt(1)

// RoundWeight округляет вес до одного знака. Применяется при каждом вводе веса,
// и именно округлённый вес участвует в расчёте суммы.
func RoundWeight(w decimal.Decimal) decimal.Decimal {
	return w.Round(1)
}

// RoundQuantity округляет штучное количество вверх до целого.
func RoundQuantity(q decimal.Decimal) decimal.Decimal {
	return q.Ceil()
}

// NormalizeLine применяет правила округления к строке заказа.
func NormalizeLine(l model.OrderLine) model.OrderLine {
	l.Weight = RoundWeight(l.Weight)
	l.Quantity = RoundQuantity(l.Quantity)
	if len(l.Items) > 0 {
		items := make([]model.SubLine, len(l.Items))
		for i, it := range l.Items {
			it.Quantity = RoundQuantity(it.Quantity)
			items[i] = it
		}
		l.Items = items
	}
	return l
}

// ValidateService проверяет описание услуги из каталога.
func ValidateService(s model.ServiceLine) error {
	if s.Name == "" {
		return invalid(ErrInvalidService, "name is required")
	}
	if s.Duration.Value <= 0 {
		return invalid(ErrInvalidService, "duration must be positive")
	}
	if s.Duration.Unit != model.DurationHours && s.Duration.Unit != model.DurationDays {
		return invalid(ErrInvalidService, fmt.Sprintf("unknown duration unit %q", s.Duration.Unit))
	}

	switch s.PricingMode {
	case model.PricingUnit:
		if !s.UnitPrice.IsPositive() {
			return invalid(ErrInvalidService, "unit price is required")
		}
	case model.PricingKilo:
		if !s.KiloPrice.IsPositive() {
			return invalid(ErrInvalidService, "kilo price is required")
		}
	case model.PricingCombined:
		if !s.UnitPrice.IsPositive() || !s.KiloPrice.IsPositive() {
			return invalid(ErrInvalidService, "unit and kilo prices are required")
		}
	default:
		return invalid(ErrInvalidService, fmt.Sprintf("unknown pricing mode %q", s.PricingMode))
	}

	return nil
}

// ValidateLine проверяет, что строка заказа содержит обязательные для её режима значения.
func ValidateLine(l model.OrderLine) error {
	if err := ValidateService(l.Service); err != nil {
		return invalid(ErrInvalidLine, err.Error())
	}

	switch l.Service.PricingMode {
	case model.PricingUnit:
		if l.Quantity.LessThan(one) {
			return invalid(ErrInvalidLine, l.Service.Name+": quantity must be at least 1")
		}
	case model.PricingKilo:
		if !l.Weight.IsPositive() {
			return invalid(ErrInvalidLine, l.Service.Name+": weight must be positive")
		}
	case model.PricingCombined:
		if l.Weight.IsNegative() {
			return invalid(ErrInvalidLine, l.Service.Name+": weight must not be negative")
		}
		if unitQuantity(l).LessThan(one) {
			return invalid(ErrInvalidLine, l.Service.Name+": quantity must be at least 1")
		}
		for _, it := range l.Items {
			if it.PricePerUnit.IsNegative() || !it.Quantity.IsPositive() {
				return invalid(ErrInvalidLine, l.Service.Name+": invalid item "+it.Name)
			}
		}
	}

	return nil
}

// unitQuantity возвращает штучную часть строки: сумму позиций, если они есть, иначе количество строки.
func unitQuantity(l model.OrderLine) decimal.Decimal {
	if len(l.Items) == 0 {
		return l.Quantity
	}
	sum := decimal.Zero
	for _, it := range l.Items {
		sum = sum.Add(it.Quantity)
	}
	return sum
}

// LineTotal считает сумму строки заказа.
func LineTotal(l model.OrderLine) decimal.Decimal {
	switch l.Service.PricingMode {
	case model.PricingKilo:
		return l.Service.KiloPrice.Mul(l.Weight)
	case model.PricingCombined:
		total := l.Service.KiloPrice.Mul(l.Weight)
		if len(l.Items) == 0 {
			return total.Add(l.Service.UnitPrice.Mul(l.Quantity))
		}
		for _, it := range l.Items {
			total = total.Add(it.PricePerUnit.Mul(it.Quantity))
		}
		return total
	default:
		return l.Service.UnitPrice.Mul(l.Quantity)
	}
}

// Subtotal суммирует строки заказа.
func Subtotal(lines []model.OrderLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l))
	}
	return sum
}

// OrderTotal возвращает сумму к оплате, не опускающуюся ниже нуля.
func OrderTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, subtotal.Sub(discount))
}

// Change считает сдачу. При недостатке наличных возвращает ValidationError с недостающей суммой.
func Change(cashReceived, orderTotal decimal.Decimal) (decimal.Decimal, error) {
	if cashReceived.LessThan(orderTotal) {
		shortfall := orderTotal.Sub(cashReceived)
		return decimal.Zero, &ValidationError{Reason: ErrInsufficientCash, Shortfall: &shortfall}
	}
	return cashReceived.Sub(orderTotal), nil
}

// PointsEarned считает баллы за оплаченный заказ: округлённый вес плюс штучное количество,
// округлённое вверх. Комбинированные строки дают баллы по обеим частям.
func (c *Calculator) PointsEarned(lines []model.OrderLine) int64 {
	if !c.opts.PointsEnabled {
		return 0
	}

	var points int64
	for _, l := range lines {
		switch l.Service.PricingMode {
		case model.PricingKilo:
			points += l.Weight.Round(0).IntPart()
		case model.PricingUnit:
			points += l.Quantity.Ceil().IntPart()
		case model.PricingCombined:
			points += l.Weight.Round(0).IntPart()
			points += unitQuantity(l).Ceil().IntPart()
		}
	}
	return points
}
