// Package main запускает HTTP-сервер кассы прачечной.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/config"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/handler"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/middleware"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/pricing"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/repository"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/service"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/whatsapp"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var sender service.Sender
	if cfg.WhatsAppEnabled && cfg.WhatsAppAPIURL != "" {
		sender = whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIKey, logger)
	} else {
		sugar.Infow("whatsapp notifications disabled")
	}

	calc := pricing.NewCalculator(cfg.PricingOptions())

	svc := service.NewService(repo, sender, calc, cfg.Location(), logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Отправка уведомлений из очереди
	g.Go(func() error {
		svc.StartNotificationDispatch(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting laundry pos server",
			"addr", cfg.RunAddress,
			"points_enabled", cfg.PointsEnabled,
			"timezone", cfg.Timezone,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
