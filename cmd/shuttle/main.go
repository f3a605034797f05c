// Package main запускает HTTP-сервер сервиса бронирования трансферов.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/shuttle-booking/internal/config"
	"github.com/mmeshcher/shuttle-booking/internal/handler"
	"github.com/mmeshcher/shuttle-booking/internal/middleware"
	"github.com/mmeshcher/shuttle-booking/internal/payment"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
	"github.com/mmeshcher/shuttle-booking/internal/service"
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

	// без адреса платёжной системы оплата картой недоступна, наличные работают
	var payments service.PaymentProvider
	if cfg.PaymentSystemAddress != "" {
		payments = payment.NewClient(cfg.PaymentSystemAddress, cfg.PaymentAPIKey)
	} else {
		sugar.Warn("payment system address is not set, card payments are disabled")
	}

	svc := service.NewService(repo, payments, logger,
		service.WithBcryptCost(cfg.BcryptCost),
		service.WithCurrency(cfg.PaymentCurrency),
		service.WithSetupKey(cfg.AdminSetupKey),
		service.WithSyncInterval(cfg.PaymentSyncInterval),
	)
	defer svc.Close()

	if cfg.AdminJWTSecret == "" {
		sugar.Warn("admin jwt secret is not set, using a random key; admin sessions end on restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AdminJWTSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.CORSAllowedOrigins,
		handler.WithTrustProxyHeaders(cfg.TrustProxyHeaders),
	)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Сверка ожидающих оплат картой
	g.Go(func() error {
		return svc.StartPaymentSync(ctx)
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting shuttle booking server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
