package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/pricing"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/service"
)

const (
	timeLayout           = time.RFC3339
	idempotencyKeyHeader = "Idempotency-Key"
)

type lineRequest struct {
	ServiceID int64           `json:"service_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Weight    decimal.Decimal `json:"weight"`
	Items     []model.SubLine `json:"items,omitempty"`
}

type paymentRequest struct {
	Method       model.PaymentMethod `json:"method"`
	CashReceived *decimal.Decimal    `json:"cash_received,omitempty"`
}

type orderRequest struct {
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	Lines         []lineRequest     `json:"lines"`
	Discount      *pricing.Discount `json:"discount,omitempty"`
	DropOffAt     *time.Time        `json:"drop_off_at,omitempty"`
	Payment       *paymentRequest   `json:"payment,omitempty"`
}

func (req orderRequest) toInput() service.OrderInput {
	in := service.OrderInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Lines:         make([]service.LineInput, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, service.LineInput{
			ServiceID: l.ServiceID,
			Quantity:  l.Quantity,
			Weight:    l.Weight,
			Items:     l.Items,
		})
	}
	if req.Discount != nil {
		in.Discount = *req.Discount
	}
	if req.DropOffAt != nil {
		in.DropOffAt = *req.DropOffAt
	}
	if req.Payment != nil {
		in.Payment = &service.PaymentInput{Method: req.Payment.Method, CashReceived: req.Payment.CashReceived}
	}
	return in
}

type lineResponse struct {
	ServiceID           int64           `json:"service_id,omitempty"`
	ServiceName         string          `json:"service_name"`
	PricingMode         string          `json:"pricing_mode"`
	Quantity            decimal.Decimal `json:"quantity"`
	Weight              decimal.Decimal `json:"weight"`
	Items               []model.SubLine `json:"items,omitempty"`
	LineTotal           decimal.Decimal `json:"line_total"`
	EstimatedCompletion string          `json:"estimated_completion"`
}

func toLineResponses(lines []model.OrderLine) []lineResponse {
	resp := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		resp = append(resp, lineResponse{
			ServiceID:           l.Service.ID,
			ServiceName:         l.Service.Name,
			PricingMode:         string(l.Service.PricingMode),
			Quantity:            l.Quantity,
			Weight:              l.Weight,
			Items:               l.Items,
			LineTotal:           l.LineTotal,
			EstimatedCompletion: l.EstimatedCompletion.Format(timeLayout),
		})
	}
	return resp
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

type quoteResponse struct {
	Lines               []lineResponse   `json:"lines"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	DiscountAmount      decimal.Decimal  `json:"discount_amount"`
	PointsRedeemed      int64            `json:"points_redeemed"`
	TotalAmount         decimal.Decimal  `json:"total_amount"`
	ChangeAmount        *decimal.Decimal `json:"change_amount,omitempty"`
	EstimatedCompletion string           `json:"estimated_completion,omitempty"`
	PointsEarned        int64            `json:"points_earned"`
}

type orderResponse struct {
	ID                  uuid.UUID        `json:"id"`
	CustomerName        string           `json:"customer_name"`
	CustomerPhone       string           `json:"customer_phone"`
	Lines               []lineResponse   `json:"lines,omitempty"`
	DropOffAt           string           `json:"drop_off_at"`
	EstimatedCompletion string           `json:"estimated_completion,omitempty"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	DiscountAmount      decimal.Decimal  `json:"discount_amount"`
	PointsRedeemed      int64            `json:"points_redeemed"`
	TotalAmount         decimal.Decimal  `json:"total_amount"`
	ExecutionStatus     string           `json:"execution_status"`
	PaymentStatus       string           `json:"payment_status"`
	PaymentMethod       string           `json:"payment_method,omitempty"`
	CashReceived        *decimal.Decimal `json:"cash_received,omitempty"`
	ChangeAmount        *decimal.Decimal `json:"change_amount,omitempty"`
	PointsEarned        int64            `json:"points_earned"`
	PaidAt              string           `json:"paid_at,omitempty"`
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:                  o.ID,
		CustomerName:        o.CustomerName,
		CustomerPhone:       o.CustomerPhone,
		Lines:               toLineResponses(o.Lines),
		DropOffAt:           o.DropOffAt.Format(timeLayout),
		EstimatedCompletion: formatTime(o.EstimatedCompletion),
		Subtotal:            o.Subtotal,
		DiscountAmount:      o.DiscountAmount,
		PointsRedeemed:      o.PointsRedeemed,
		TotalAmount:         o.TotalAmount,
		ExecutionStatus:     string(o.ExecutionStatus),
		PaymentStatus:       string(o.PaymentStatus),
		PaymentMethod:       string(o.PaymentMethod),
		CashReceived:        o.CashReceived,
		ChangeAmount:        o.ChangeAmount,
		PointsEarned:        o.PointsEarned,
		PaidAt:              formatTime(o.PaidAt),
	}
}

func phoneParam(r *http.Request) string {
	return chi.URLParam(r, "phone")
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// QuoteOrder рассчитывает заказ без сохранения.
func (h *Handler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	q, err := h.service.Quote(r.Context(), sess.StoreID, req.toInput())
	if err != nil {
		h.writeError(w, err, "quote order error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Lines:               toLineResponses(q.Lines),
		Subtotal:            q.Subtotal,
		DiscountAmount:      q.DiscountAmount,
		PointsRedeemed:      q.PointsRedeemed,
		TotalAmount:         q.TotalAmount,
		ChangeAmount:        q.ChangeAmount,
		EstimatedCompletion: formatTime(q.EstimatedCompletion),
		PointsEarned:        q.PointsEarned,
	})
}

// CreateOrder создаёт заказ. Повтор с тем же Idempotency-Key возвращает существующий заказ с кодом 200.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	in := req.toInput()
	if key := r.Header.Get(idempotencyKeyHeader); key != "" {
		parsed, err := uuid.Parse(key)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		in.IdempotencyKey = parsed
	}

	o, alreadyExists, err := h.service.CreateOrder(r.Context(), sess.StoreID, in)
	if err != nil {
		h.writeError(w, err, "create order error",
			zap.Int64("storeID", sess.StoreID), zap.Int64("staffID", sess.StaffID))
		return
	}

	if alreadyExists {
		writeJSON(w, http.StatusOK, toOrderResponse(o))
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), sess.StoreID, id)
	if err != nil {
		h.writeError(w, err, "get order error", zap.String("orderID", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListOrders возвращает историю заказов клиента по номеру телефона.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	orders, err := h.service.ListOrdersByPhone(r.Context(), sess.StoreID, phone)
	if err != nil {
		h.writeError(w, err, "list orders error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeOrders(w, orders)
}

const defaultUnpaidAge = 24 * time.Hour

// ListUnpaidOrders возвращает неоплаченные заказы старше older_than_hours часов (по умолчанию 24).
func (h *Handler) ListUnpaidOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	olderThan := defaultUnpaidAge
	if raw := r.URL.Query().Get("older_than_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		olderThan = time.Duration(hours) * time.Hour
	}

	orders, err := h.service.ListUnpaidOrders(r.Context(), sess.StoreID, olderThan)
	if err != nil {
		h.writeError(w, err, "list unpaid orders error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeOrders(w, orders)
}

// ListReadyOrders возвращает заказы, готовые к выдаче.
func (h *Handler) ListReadyOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListReadyOrders(r.Context(), sess.StoreID)
	if err != nil {
		h.writeError(w, err, "list ready orders error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeOrders(w, orders)
}

// ListDailyOrders возвращает заказы, принятые за день (?date, по умолчанию сегодня), с фильтром ?status.
func (h *Handler) ListDailyOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	orders, err := h.service.ListOrdersByDate(r.Context(), sess.StoreID, q.Get("date"), model.ExecutionStatus(q.Get("status")))
	if err != nil {
		h.writeError(w, err, "list daily orders error", zap.Int64("storeID", sess.StoreID))
		return
	}

	writeOrders(w, orders)
}

func writeOrders(w http.ResponseWriter, orders []model.Order) {
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

type statusRequest struct {
	Status model.ExecutionStatus `json:"status"`
}

// UpdateStatus меняет статус выполнения заказа.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.service.UpdateStatus(r.Context(), sess.StoreID, id, req.Status)
	if err != nil {
		h.writeError(w, err, "update status error", zap.String("orderID", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Pay оплачивает заказ.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.service.CompletePayment(r.Context(), sess.StoreID, id,
		service.PaymentInput{Method: req.Method, CashReceived: req.CashReceived})
	if err != nil {
		h.writeError(w, err, "payment error", zap.String("orderID", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Remind ставит в очередь напоминание клиенту об оплате.
func (h *Handler) Remind(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Remind(r.Context(), sess.StoreID, id); err != nil {
		h.writeError(w, err, "remind error", zap.String("orderID", id.String()))
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
