// Package service реализует бизнес-логику кассы прачечной: приём и оплату заказов,
// бонусные баллы клиентов и уведомления.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/pricing"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/repository"
)

var (
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPhone возвращается для некорректного номера телефона клиента.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrInvalidStatusTransition возвращается для недопустимой смены статуса выполнения.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	// ErrInvalidPaymentMethod возвращается для неизвестного способа оплаты.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrCashRequired возвращается, если при оплате наличными не указана полученная сумма.
	ErrCashRequired = errors.New("cash received is required for cash payment")
	// ErrOrderCancelled возвращается при попытке оплатить отменённый заказ.
	ErrOrderCancelled = errors.New("order is cancelled")
	// ErrInvalidDate возвращается для даты отчёта в неверном формате или перевёрнутого периода.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidStatus возвращается для неизвестного статуса выполнения в фильтре.
	ErrInvalidStatus = errors.New("invalid order status")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateStaff(ctx context.Context, login string, passwordHash []byte, storeID int64) (int64, error)
	GetStaffByLogin(ctx context.Context, login string) (*model.Staff, error)

	CreateService(ctx context.Context, s model.ServiceLine) (int64, error)
	ListServices(ctx context.Context, storeID int64) ([]model.ServiceLine, error)
	GetServices(ctx context.Context, storeID int64, ids []int64) (map[int64]model.ServiceLine, error)

	UpsertCustomer(ctx context.Context, c model.Customer) error
	CreateOrder(ctx context.Context, o *model.Order) (bool, error)
	GetOrderByIdempotencyKey(ctx context.Context, storeID int64, key uuid.UUID) (*model.Order, error)
	GetOrder(ctx context.Context, storeID int64, id uuid.UUID) (*model.Order, error)
	ListOrdersByPhone(ctx context.Context, storeID int64, phone string, limit int) ([]model.Order, error)
	ListOrders(ctx context.Context, storeID int64, f repository.OrderFilter, limit int) ([]model.Order, error)
	UpdateExecutionStatus(ctx context.Context, storeID int64, id uuid.UUID, from, to model.ExecutionStatus) error
	MarkOrderPaid(ctx context.Context, storeID int64, id uuid.UUID, p repository.Payment) error
	DailySummary(ctx context.Context, storeID int64, from, to time.Time) (*model.DailySummary, error)
	PeriodRevenue(ctx context.Context, storeID int64, from, to time.Time) (*model.RevenueReport, error)
	PopularServices(ctx context.Context, storeID int64, from, to time.Time, limit int) ([]model.ServiceStat, error)

	GetPointsAccount(ctx context.Context, phone string, storeID int64) (*model.PointsAccount, error)
	DecrementPoints(ctx context.Context, phone string, storeID int64, points int64) error
	RestorePoints(ctx context.Context, phone string, storeID int64, points int64) error
	AddPointsTransaction(ctx context.Context, t model.PointsTransaction) error
	ListPointsTransactions(ctx context.Context, phone string, storeID int64, limit int) ([]model.PointsTransaction, error)

	EnqueueNotification(ctx context.Context, n model.Notification) error
	GetPendingNotifications(ctx context.Context, limit, maxAttempts int) ([]model.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64) error
	MarkNotificationFailed(ctx context.Context, id int64) error
}

// Sender отправляет сообщение клиенту. Возвращает код ответа шлюза и время ожидания при 429.
type Sender interface {
	Send(ctx context.Context, phone, message string) (int, time.Duration, error)
}

// Service содержит бизнес-логику кассы.
type Service struct {
	repo   Repository
	sender Sender
	calc   *pricing.Calculator
	loc    *time.Location
	logger *zap.Logger
	locks  *keyLock
	now    func() time.Time
}

// NewService создаёт сервис. sender может быть nil: тогда уведомления копятся в очереди, но не отправляются.
func NewService(repo Repository, sender Sender, calc *pricing.Calculator, loc *time.Location, logger *zap.Logger) *Service {
	if calc == nil {
		calc = pricing.NewCalculator(pricing.DefaultOptions())
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		sender: sender,
		calc:   calc,
		loc:    loc,
		logger: logger,
		locks:  newKeyLock(),
		now:    time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterStaff регистрирует сотрудника точки storeID.
func (s *Service) RegisterStaff(ctx context.Context, login, password string, storeID int64) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateStaff(ctx, login, hashed, storeID)
	if err != nil {
		if errors.Is(err, repository.ErrStaffExists) {
			return 0, repository.ErrStaffExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateStaff проверяет логин и пароль сотрудника.
func (s *Service) AuthenticateStaff(ctx context.Context, login, password string) (*model.Staff, error) {
	st, err := s.repo.GetStaffByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrStaffNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if subtle.ConstantTimeCompare(hashed, st.PasswordHash) != 1 {
		return nil, ErrInvalidCredentials
	}

	return st, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// CreateService добавляет услугу в каталог точки.
func (s *Service) CreateService(ctx context.Context, storeID int64, line model.ServiceLine) (*model.ServiceLine, error) {
	line.StoreID = storeID
	if err := pricing.ValidateService(line); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateService(ctx, line)
	if err != nil {
		return nil, err
	}
	line.ID = id

	return &line, nil
}

// ListServices возвращает каталог услуг точки.
func (s *Service) ListServices(ctx context.Context, storeID int64) ([]model.ServiceLine, error) {
	return s.repo.ListServices(ctx, storeID)
}

// DailySummary возвращает сводку по точке за день date (YYYY-MM-DD) в часовом поясе точки.
func (s *Service) DailySummary(ctx context.Context, storeID int64, date string) (*model.DailySummary, error) {
	day, err := s.parseDay(date)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.DailySummary(ctx, storeID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	summary.Date = day.Format(dateLayout)

	return summary, nil
}
