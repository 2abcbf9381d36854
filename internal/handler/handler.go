// Package handler содержит HTTP-обработчики API кассы прачечной.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/middleware"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/pricing"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/repository"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterStaff(ctx context.Context, login, password string, storeID int64) (int64, error)
	AuthenticateStaff(ctx context.Context, login, password string) (*model.Staff, error)

	CreateService(ctx context.Context, storeID int64, line model.ServiceLine) (*model.ServiceLine, error)
	ListServices(ctx context.Context, storeID int64) ([]model.ServiceLine, error)

	Quote(ctx context.Context, storeID int64, in service.OrderInput) (*pricing.Quote, error)
	CreateOrder(ctx context.Context, storeID int64, in service.OrderInput) (*model.Order, bool, error)
	GetOrder(ctx context.Context, storeID int64, id uuid.UUID) (*model.Order, error)
	ListOrdersByPhone(ctx context.Context, storeID int64, phone string) ([]model.Order, error)
	ListUnpaidOrders(ctx context.Context, storeID int64, olderThan time.Duration) ([]model.Order, error)
	ListReadyOrders(ctx context.Context, storeID int64) ([]model.Order, error)
	ListOrdersByDate(ctx context.Context, storeID int64, date string, status model.ExecutionStatus) ([]model.Order, error)
	UpdateStatus(ctx context.Context, storeID int64, id uuid.UUID, to model.ExecutionStatus) (*model.Order, error)
	CompletePayment(ctx context.Context, storeID int64, id uuid.UUID, p service.PaymentInput) (*model.Order, error)
	Remind(ctx context.Context, storeID int64, id uuid.UUID) error

	GetPointsAccount(ctx context.Context, storeID int64, phone string) (*model.PointsAccount, error)
	ListPointsTransactions(ctx context.Context, storeID int64, phone string) ([]model.PointsTransaction, error)

	DailySummary(ctx context.Context, storeID int64, date string) (*model.DailySummary, error)
	RevenueReport(ctx context.Context, storeID int64, from, to string) (*model.RevenueReport, error)
	PopularServices(ctx context.Context, storeID int64, from, to string, limit int) ([]model.ServiceStat, error)
}

// Handler реализует HTTP-обработчики API кассы.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Error     string           `json:"error"`
	Reason    string           `json:"reason,omitempty"`
	Available *int64           `json:"available,omitempty"`
	Shortfall *decimal.Decimal `json:"shortfall,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку бизнес-логики в HTTP-ответ. Непредвиденные ошибки журналируются.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	var vErr *pricing.ValidationError
	if errors.As(err, &vErr) {
		status := http.StatusUnprocessableEntity
		if errors.Is(vErr.Reason, pricing.ErrInsufficientPoints) {
			status = http.StatusPaymentRequired
		}
		writeJSON(w, status, errorResponse{
			Error:     vErr.Error(),
			Reason:    vErr.Reason.Error(),
			Available: vErr.Available,
			Shortfall: vErr.Shortfall,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrCashRequired):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidStatus):
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	case errors.Is(err, repository.ErrInsufficientPoints):
		http.Error(w, http.StatusText(http.StatusPaymentRequired), http.StatusPaymentRequired)
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrServiceNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrAlreadyPaid),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrOrderCancelled):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return s, ok
}

type registerRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	StoreID  int64  `json:"store_id"`
}

// Register регистрирует сотрудника точки и открывает для него сессию.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" || req.StoreID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	staffID, err := h.service.RegisterStaff(r.Context(), req.Login, req.Password, req.StoreID)
	if err != nil {
		if errors.Is(err, repository.ErrStaffExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register staff error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, middleware.Session{StaffID: staffID, StoreID: req.StoreID})
	w.WriteHeader(http.StatusOK)
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login проверяет логин и пароль сотрудника и выставляет cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	st, err := h.service.AuthenticateStaff(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login staff error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, middleware.Session{StaffID: st.ID, StoreID: st.StoreID})
	w.WriteHeader(http.StatusOK)
}

// CreateService добавляет услугу в каталог точки.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req model.ServiceLine
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateService(r.Context(), sess.StoreID, req)
	if err != nil {
		h.writeError(w, err, "create service error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListServices возвращает каталог услуг точки.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	services, err := h.service.ListServices(r.Context(), sess.StoreID)
	if err != nil {
		h.writeError(w, err, "list services error", zap.Int64("storeID", sess.StoreID))
		return
	}

	if len(services) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, services)
}

// GetPoints возвращает бонусный баланс клиента.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	acc, err := h.service.GetPointsAccount(r.Context(), sess.StoreID, phoneParam(r))
	if err != nil {
		h.writeError(w, err, "get points error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeJSON(w, http.StatusOK, acc)
}

type pointsTransactionResponse struct {
	OrderID   uuid.UUID `json:"order_id"`
	Kind      string    `json:"kind"`
	Delta     int64     `json:"delta"`
	CreatedAt string    `json:"created_at"`
}

// GetPointsTransactions возвращает журнал бонусных операций клиента.
func (h *Handler) GetPointsTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	txs, err := h.service.ListPointsTransactions(r.Context(), sess.StoreID, phoneParam(r))
	if err != nil {
		h.writeError(w, err, "get points transactions error", zap.Int64("storeID", sess.StoreID))
		return
	}

	if len(txs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]pointsTransactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, pointsTransactionResponse{
			OrderID:   t.OrderID,
			Kind:      string(t.Kind),
			Delta:     t.Delta,
			CreatedAt: t.CreatedAt.Format(timeLayout),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// DailyReport возвращает сводку точки за день.
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	summary, err := h.service.DailySummary(r.Context(), sess.StoreID, r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err, "daily report error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// RevenueReport возвращает выручку точки за период from..to включительно.
func (h *Handler) RevenueReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	rep, err := h.service.RevenueReport(r.Context(), sess.StoreID, q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, err, "revenue report error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// PopularServices возвращает самые заказываемые услуги точки за период.
func (h *Handler) PopularServices(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var limit int
	if raw := q.Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	stats, err := h.service.PopularServices(r.Context(), sess.StoreID, q.Get("from"), q.Get("to"), limit)
	if err != nil {
		h.writeError(w, err, "popular services error", zap.Int64("storeID", sess.StoreID))
		return
	}

	if len(stats) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
