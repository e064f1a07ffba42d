package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/muelab/lessonbook/internal/app"
	"github.com/muelab/lessonbook/internal/config"
	"github.com/muelab/lessonbook/internal/feed"
	"github.com/muelab/lessonbook/internal/handler"
	"github.com/muelab/lessonbook/internal/payment"
	"github.com/muelab/lessonbook/internal/repository"
	"github.com/muelab/lessonbook/internal/router"
	"github.com/muelab/lessonbook/internal/service"
	"github.com/muelab/lessonbook/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, migrations.FS)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	publisher := feed.NewPublisher(rdb, logger)

	var payments payment.Processor
	if cfg.StripeSecretKey != "" {
		payments = payment.NewStripeProcessor(cfg.StripeSecretKey, logger)
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set, using fake payment processor")
		payments = payment.NewFakeProcessor()
	}

	slotRepo := repository.NewSlotRepository(pool)
	resRepo := repository.NewReservationRepository(pool)

	slotService := service.NewSlotService(slotRepo, resRepo, publisher, logger)
	bookingService := service.NewBookingService(pool, slotRepo, resRepo, payments, publisher, logger)

	scheduler := app.NewScheduler(bookingService, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	e := router.New(
		handler.NewSlotHandler(slotService),
		handler.NewReservationHandler(bookingService, slotService),
	)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server")
		if err := e.Shutdown(context.Background()); err != nil {
			logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting lessonbook server",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
	)

	if err := e.Start(cfg.HTTPAddr); err != nil {
		logger.Info("HTTP server stopped", zap.Error(err))
	}
}
