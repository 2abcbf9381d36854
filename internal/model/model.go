// Package model содержит доменные сущности сервиса приёма заказов прачечной.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Staff представляет сотрудника точки, работающего с кассой.
type Staff struct {
	ID           int64
	Login        string
	PasswordHash []byte
	StoreID      int64
	CreatedAt    time.Time
}

// PricingMode определяет способ тарификации услуги.
type PricingMode string

const (
	PricingUnit     PricingMode = "unit"
	PricingKilo     PricingMode = "kilo"
	PricingCombined PricingMode = "combined"
)

// DurationUnit задаёт единицу длительности выполнения услуги.
type DurationUnit string

const (
	DurationHours DurationUnit = "hours"
	DurationDays  DurationUnit = "days"
)

// Duration описывает срок выполнения услуги.
type Duration struct {
	Value int          `json:"value"`
	Unit  DurationUnit `json:"unit"`
}

// ServiceLine описывает услугу из каталога точки.
type ServiceLine struct {
	ID          int64           `json:"id"`
	StoreID     int64           `json:"-"`
	Name        string          `json:"name"`
	Duration    Duration        `json:"duration"`
	PricingMode PricingMode     `json:"pricing_mode"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	KiloPrice   decimal.Decimal `json:"kilo_price"`
}

// SubLine описывает поштучную позицию внутри комбинированной строки заказа.
type SubLine struct {
	Name         string          `json:"name"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// OrderLine описывает услугу в составе конкретного заказа.
type OrderLine struct {
	Service             ServiceLine     `json:"service"`
	Quantity            decimal.Decimal `json:"quantity"`
	Weight              decimal.Decimal `json:"weight"`
	Items               []SubLine       `json:"items,omitempty"`
	LineTotal           decimal.Decimal `json:"line_total"`
	EstimatedCompletion time.Time       `json:"estimated_completion"`
}

// ExecutionStatus описывает ход выполнения заказа.
type ExecutionStatus string

const (
	ExecutionPending        ExecutionStatus = "pending"
	ExecutionInProgress     ExecutionStatus = "in_progress"
	ExecutionReadyForPickup ExecutionStatus = "ready_for_pickup"
	ExecutionCompleted      ExecutionStatus = "completed"
	ExecutionCancelled      ExecutionStatus = "cancelled"
)

// Valid сообщает, является ли s известным статусом выполнения.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionPending, ExecutionInProgress, ExecutionReadyForPickup, ExecutionCompleted, ExecutionCancelled:
		return true
	}
	return false
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// PaymentMethod задаёт способ оплаты.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentQRIS     PaymentMethod = "qris"
	PaymentTransfer PaymentMethod = "transfer"
)

// Customer идентифицируется телефоном в пределах точки.
type Customer struct {
	Phone   string
	Name    string
	StoreID int64
}

// Order описывает заказ клиента со всеми рассчитанными суммами.
type Order struct {
	ID                  uuid.UUID
	IdempotencyKey      uuid.UUID
	StoreID             int64
	CustomerName        string
	CustomerPhone       string
	Lines               []OrderLine
	DropOffAt           time.Time
	EstimatedCompletion *time.Time
	Subtotal            decimal.Decimal
	DiscountAmount      decimal.Decimal
	PointsRedeemed      int64
	TotalAmount         decimal.Decimal
	ExecutionStatus     ExecutionStatus
	PaymentStatus       PaymentStatus
	PaymentMethod       PaymentMethod
	CashReceived        *decimal.Decimal
	ChangeAmount        *decimal.Decimal
	PointsEarned        int64
	PaidAt              *time.Time
	CreatedAt           time.Time
}

// PointsAccount хранит бонусный счёт клиента в конкретной точке.
type PointsAccount struct {
	CustomerPhone     string `json:"customer_phone"`
	StoreID           int64  `json:"store_id"`
	AccumulatedPoints int64  `json:"accumulated_points"`
	CurrentPoints     int64  `json:"current_points"`
}

// PointsTransactionKind задаёт тип операции по бонусному счёту.
type PointsTransactionKind string

const (
	PointsEarning    PointsTransactionKind = "earning"
	PointsRedemption PointsTransactionKind = "redemption"
	PointsReversal   PointsTransactionKind = "reversal"
)

// PointsTransaction описывает запись журнала бонусных операций. Delta отрицательна при списании.
type PointsTransaction struct {
	ID            int64
	CustomerPhone string
	StoreID       int64
	OrderID       uuid.UUID
	Kind          PointsTransactionKind
	Delta         int64
	CreatedAt     time.Time
}

// NotificationKind задаёт тип уведомления клиенту.
type NotificationKind string

const (
	NotifyOrderCreated    NotificationKind = "order_created"
	NotifyOrderReady      NotificationKind = "order_ready"
	NotifyOrderCompleted  NotificationKind = "order_completed"
	NotifyPaymentReminder NotificationKind = "payment_reminder"
)

// Notification описывает сообщение в очереди на отправку.
type Notification struct {
	ID       int64
	OrderID  uuid.UUID
	Kind     NotificationKind
	Phone    string
	Message  string
	Attempts int
}

// DailySummary содержит сводку по точке за день.
type DailySummary struct {
	Date           string          `json:"date"`
	OrdersCreated  int64           `json:"orders_created"`
	OrdersPaid     int64           `json:"orders_paid"`
	Revenue        decimal.Decimal `json:"revenue"`
	Discounts      decimal.Decimal `json:"discounts"`
	PointsRedeemed int64           `json:"points_redeemed"`
	PointsEarned   int64           `json:"points_earned"`
}

// RevenueReport содержит выручку точки за период. Отменённые заказы не учитываются.
type RevenueReport struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Orders       int64           `json:"orders"`
	OrdersPaid   int64           `json:"orders_paid"`
	Revenue      decimal.Decimal `json:"revenue"`
	PaidRevenue  decimal.Decimal `json:"paid_revenue"`
	Discounts    decimal.Decimal `json:"discounts"`
	AverageOrder decimal.Decimal `json:"average_order"`
}

// ServiceStat содержит показатели услуги за период.
type ServiceStat struct {
	ServiceName string          `json:"service_name"`
	Orders      int64           `json:"orders"`
	Quantity    decimal.Decimal `json:"quantity"`
	Weight      decimal.Decimal `json:"weight"`
	Revenue     decimal.Decimal `json:"revenue"`
}
