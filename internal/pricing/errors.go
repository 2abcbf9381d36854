package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Причины отказа, которые показываются оператору кассы.
var (
	ErrNonPositiveDiscount  = errors.New("non-positive discount")
	ErrNonPositivePoints    = errors.New("non-positive points requested")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrDiscountExceedsTotal = errors.New("discount exceeds order total")
	ErrInsufficientCash     = errors.New("cash received below order total")
	ErrPointsDisabled       = errors.New("points are disabled")
	ErrInvalidLine          = errors.New("invalid order line")
	ErrInvalidService       = errors.New("invalid service")
	ErrUnknownDiscountMode  = errors.New("unknown discount mode")
)

// ValidationError описывает ошибку ввода, которую оператор должен исправить сам.
// Значения никогда не подрезаются автоматически.
type ValidationError struct {
	Reason    error
	Detail    string
	Available *int64
	Shortfall *decimal.Decimal
}

func (e *ValidationError) Error() string {
	switch {
	case e.Available != nil:
		return fmt.Sprintf("%s: available %d", e.Reason, *e.Available)
	case e.Shortfall != nil:
		return fmt.Sprintf("%s: short by %s", e.Reason, e.Shortfall.String())
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return e.Reason.Error()
}

// Unwrap позволяет сравнивать ошибку с причинами через errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Reason
}

func invalid(reason error, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

// ConsistencyError сигнализирует о нарушении инварианта, который при корректном вводе недостижим.
type ConsistencyError struct {
	What string
}

func (e *ConsistencyError) Error() string {
	return "consistency violation: " + e.What
}

// IsValidation сообщает, является ли err ошибкой ввода.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
