package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/pricing"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/repository"
)

const pointsHistoryLimit = 100

// redeemPoints списывает баллы заказа и пишет операцию в журнал. Если запись в журнал
// не удалась, списание откатывается. Вызывается под блокировкой клиента.
func (s *Service) redeemPoints(ctx context.Context, o *model.Order) error {
	err := s.repo.DecrementPoints(ctx, o.CustomerPhone, o.StoreID, o.PointsRedeemed)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientPoints) {
			var available int64
			if acc, aerr := s.repo.GetPointsAccount(ctx, o.CustomerPhone, o.StoreID); aerr == nil {
				available = acc.CurrentPoints
			}
			return &pricing.ValidationError{Reason: pricing.ErrInsufficientPoints, Available: &available}
		}
		return fmt.Errorf("redeem points: %w", err)
	}

	err = s.repo.AddPointsTransaction(ctx, model.PointsTransaction{
		CustomerPhone: o.CustomerPhone,
		StoreID:       o.StoreID,
		OrderID:       o.ID,
		Kind:          model.PointsRedemption,
		Delta:         -o.PointsRedeemed,
	})
	if err != nil {
		if rerr := s.repo.RestorePoints(ctx, o.CustomerPhone, o.StoreID, o.PointsRedeemed); rerr != nil {
			s.logger.Error("failed to restore points after redemption error",
				zap.String("phone", o.CustomerPhone), zap.Int64("points", o.PointsRedeemed), zap.Error(rerr))
			return fmt.Errorf("record redemption: %w", errors.Join(err, rerr))
		}
		return fmt.Errorf("record redemption: %w", err)
	}

	return nil
}

// reverseRedemption возвращает списанные по заказу баллы и пишет компенсирующую операцию.
func (s *Service) reverseRedemption(ctx context.Context, o *model.Order) error {
	if err := s.repo.RestorePoints(ctx, o.CustomerPhone, o.StoreID, o.PointsRedeemed); err != nil {
		s.logger.Error("failed to reverse redemption",
			zap.String("phone", o.CustomerPhone), zap.Int64("points", o.PointsRedeemed), zap.Error(err))
		return fmt.Errorf("reverse redemption: %w", err)
	}

	err := s.repo.AddPointsTransaction(ctx, model.PointsTransaction{
		CustomerPhone: o.CustomerPhone,
		StoreID:       o.StoreID,
		OrderID:       o.ID,
		Kind:          model.PointsReversal,
		Delta:         o.PointsRedeemed,
	})
	if err != nil {
		return fmt.Errorf("record reversal: %w", err)
	}

	return nil
}

// GetPointsAccount возвращает бонусный счёт клиента.
func (s *Service) GetPointsAccount(ctx context.Context, storeID int64, rawPhone string) (*model.PointsAccount, error) {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	return s.repo.GetPointsAccount(ctx, phone, storeID)
}

// ListPointsTransactions возвращает журнал бонусных операций клиента.
func (s *Service) ListPointsTransactions(ctx context.Context, storeID int64, rawPhone string) ([]model.PointsTransaction, error) {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPointsTransactions(ctx, phone, storeID, pointsHistoryLimit)
}
