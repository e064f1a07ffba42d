package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muelab/lessonbook/internal/app"
	"github.com/muelab/lessonbook/internal/config"
	"github.com/muelab/lessonbook/internal/feed"
	"github.com/muelab/lessonbook/internal/reconcile"
)

// Клиент синхронизации: держит локальный снимок слотов и броней пользователя
// согласованным с сервером. События Redis-канала только триггерят refetch,
// источник истины всегда HTTP API
func main() {
	cfg, err := config.LoadWatch()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	userID, err := uuid.Parse(cfg.WatchUserID)
	if err != nil {
		log.Fatalf("WATCH_USER_ID must be a UUID: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	events, err := feed.NewSubscriber(rdb, logger).Subscribe(ctx)
	if err != nil {
		logger.Fatal("Failed to subscribe to change feed", zap.Error(err))
	}

	fetcher := reconcile.NewAPIFetcher(cfg.APIBaseURL, userID, nil)
	loop := reconcile.NewLoop(fetcher, reconcile.DefaultDebounce, logger)

	logger.Info("Starting sync client",
		zap.String("api", cfg.APIBaseURL),
		zap.String("user_id", userID.String()),
	)

	if err := loop.Run(ctx, events); err != nil && err != context.Canceled {
		logger.Error("Sync loop stopped", zap.Error(err))
	}
}
