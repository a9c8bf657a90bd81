// Package main запускает HTTP-сервер инвестиционной платформы.
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

	"github.com/mmeshcher/investplatform/internal/accrual"
	"github.com/mmeshcher/investplatform/internal/config"
	"github.com/mmeshcher/investplatform/internal/handler"
	"github.com/mmeshcher/investplatform/internal/metrics"
	"github.com/mmeshcher/investplatform/internal/middleware"
	"github.com/mmeshcher/investplatform/internal/repository"
	"github.com/mmeshcher/investplatform/internal/service"
	"github.com/mmeshcher/investplatform/internal/storage"
)

const limiterCleanupInterval = 5 * time.Minute

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is empty, using in-memory repository")
		repo = repository.NewMemoryRepository()
	}

	loc := cfg.Location()
	svc := service.NewService(repo, service.Settings{
		Location:         loc,
		ReferralBonus:    cfg.ReferralBonus,
		MinWithdrawal:    cfg.MinWithdrawal,
		WithdrawalTax:    cfg.WithdrawalTaxPercent,
		WheelDailySpins:  cfg.WheelDailySpins,
		InviteCodeLength: cfg.InviteCodeLength,
		SkipWeekends:     cfg.AccrualSkipWeekends,
	}, logger)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.S3.Enabled() {
		store, err := storage.NewS3ProofStore(ctx, storage.Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			sugar.Fatalw("proof storage initialization error", "error", err.Error())
		}
		svc.SetProofStore(store)
	}

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is empty, sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret, cfg.CookieSecure)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	h := handler.NewHandler(svc, logger, authMiddleware,
		handler.WithAdminToken(cfg.AdminToken),
		handler.WithRateLimiter(limiter),
		handler.WithTrustedProxy(cfg.TrustProxy),
		handler.WithMetrics(metrics.Handler()),
	)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновый обход начислений включается расписанием ACCRUAL_SCHEDULE.
	if cfg.AccrualSchedule != "" {
		scheduler, err := accrual.NewScheduler(cfg.AccrualSchedule, loc, svc, logger)
		if err != nil {
			sugar.Fatalw("accrual scheduler error", "error", err.Error())
		}
		g.Go(func() error {
			return scheduler.Run(ctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting investment platform server",
			"addr", cfg.RunAddress,
			"timezone", loc.String(),
			"admin_api", cfg.AdminToken != "",
			"proof_storage", cfg.S3.Enabled(),
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
