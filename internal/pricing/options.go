// Package pricing реализует расчёт заказа: сроки выполнения, скидки и списание баллов, итоговые суммы.
// Все функции пакета чистые и не выполняют ввода-вывода.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

// DefaultConversionRate задаёт стоимость одного балла в рупиях.
const DefaultConversionRate = 100

// Options содержит настройки точки, влияющие на расчёт.
type Options struct {
	ConversionRate       decimal.Decimal
	PointsEnabled        bool
	DurationTypesEnabled bool
	DefaultDuration      model.Duration
}

// DefaultOptions возвращает настройки по умолчанию.
func DefaultOptions() Options {
	return Options{
		ConversionRate:       decimal.NewFromInt(DefaultConversionRate),
		PointsEnabled:        true,
		DurationTypesEnabled: true,
		DefaultDuration:      model.Duration{Value: 3, Unit: model.DurationDays},
	}
}

// Calculator выполняет расчёты с учётом настроек точки.
type Calculator struct {
	opts Options
}

// NewCalculator создаёт калькулятор с указанными настройками.
func NewCalculator(opts Options) *Calculator {
	if opts.ConversionRate.IsZero() {
		opts.ConversionRate = decimal.NewFromInt(DefaultConversionRate)
	}
	if opts.DefaultDuration.Value <= 0 {
		opts.DefaultDuration = DefaultOptions().DefaultDuration
	}
	return &Calculator{opts: opts}
}

// Options возвращает настройки калькулятора.
func (c *Calculator) Options() Options {
	return c.opts
}
