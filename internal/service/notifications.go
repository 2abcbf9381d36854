package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/notify"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/repository"
)

const (
	notificationBatchSize   = 50
	notificationMaxAttempts = 5
	dispatchInterval        = 2 * time.Second
)

// enqueue ставит уведомление в очередь. Ошибка только журналируется: заказ от неё не зависит.
func (s *Service) enqueue(ctx context.Context, kind model.NotificationKind, o *model.Order) {
	err := s.repo.EnqueueNotification(ctx, model.Notification{
		OrderID: o.ID,
		Kind:    kind,
		Phone:   o.CustomerPhone,
		Message: notify.Message(kind, o, s.loc),
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("order_id", o.ID.String()), zap.String("kind", string(kind)), zap.Error(err))
	}
}

// Remind ставит в очередь напоминание об оплате заказа.
func (s *Service) Remind(ctx context.Context, storeID int64, id uuid.UUID) error {
	o, err := s.repo.GetOrder(ctx, storeID, id)
	if err != nil {
		return err
	}
	if o.PaymentStatus == model.PaymentCompleted {
		return repository.ErrAlreadyPaid
	}
	if o.ExecutionStatus == model.ExecutionCancelled {
		return ErrOrderCancelled
	}

	return s.repo.EnqueueNotification(ctx, model.Notification{
		OrderID: o.ID,
		Kind:    model.NotifyPaymentReminder,
		Phone:   o.CustomerPhone,
		Message: notify.Message(model.NotifyPaymentReminder, o, s.loc),
	})
}

// StartNotificationDispatch запускает фоновую отправку уведомлений из очереди.
func (s *Service) StartNotificationDispatch(ctx context.Context) {
	if s.sender == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(dispatchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processNotificationBatch(ctx)
			}
		}
	}()
}

func (s *Service) processNotificationBatch(ctx context.Context) {
	pending, err := s.repo.GetPendingNotifications(ctx, notificationBatchSize, notificationMaxAttempts)
	if err != nil {
		s.logger.Warn("failed to load pending notifications", zap.Error(err))
		return
	}

	for _, n := range pending {
		statusCode, retryAfter, err := s.sender.Send(ctx, n.Phone, n.Message)

		if statusCode == http.StatusTooManyRequests {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			return
		}

		if err != nil {
			s.logger.Warn("failed to send notification",
				zap.Int64("id", n.ID), zap.String("kind", string(n.Kind)), zap.Int("attempt", n.Attempts+1), zap.Error(err))
			if mErr := s.repo.MarkNotificationFailed(ctx, n.ID); mErr != nil {
				s.logger.Warn("failed to mark notification", zap.Int64("id", n.ID), zap.Error(mErr))
			}
			continue
		}

		if mErr := s.repo.MarkNotificationSent(ctx, n.ID); mErr != nil {
			s.logger.Warn("failed to mark notification", zap.Int64("id", n.ID), zap.Error(mErr))
		}
	}
}
