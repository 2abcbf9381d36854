package pricing

import (
	"time"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
)

// ComputeFinish возвращает момент готовности услуги, начатой в start.
// Дни прибавляются по календарю в часовом поясе start.
func ComputeFinish(d model.Duration, start time.Time) time.Time {
	if d.Unit == model.DurationHours {
		return start.Add(time.Duration(d.Value) * time.Hour)
	}
	return start.AddDate(0, 0, d.Value)
}

// ComputeOrderCompletion возвращает самый поздний срок готовности среди строк заказа
// или nil для пустого заказа.
func ComputeOrderCompletion(lines []model.OrderLine, start time.Time) *time.Time {
	var latest *time.Time
	for _, l := range lines {
		finish := ComputeFinish(l.Service.Duration, start)
		if latest == nil || finish.After(*latest) {
			latest = &finish
		}
	}
	return latest
}

// EffectiveDuration возвращает срок, по которому считается строка.
// Если типы сроков в точке отключены, используется срок по умолчанию.
func (c *Calculator) EffectiveDuration(s model.ServiceLine) model.Duration {
	if !c.opts.DurationTypesEnabled {
		return c.opts.DefaultDuration
	}
	return s.Duration
}

// OrderCompletion считает срок готовности заказа с учётом настроек точки.
func (c *Calculator) OrderCompletion(lines []model.OrderLine, start time.Time) *time.Time {
	effective := make([]model.OrderLine, len(lines))
	for i, l := range lines {
		l.Service.Duration = c.EffectiveDuration(l.Service)
		effective[i] = l
	}
	return ComputeOrderCompletion(effective, start)
}
