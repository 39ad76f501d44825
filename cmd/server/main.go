package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mpesa-payment-service/config"
	"mpesa-payment-service/internal/cache"
	"mpesa-payment-service/internal/handler"
	"mpesa-payment-service/internal/provider/mpesa"
	"mpesa-payment-service/internal/repository"
	"mpesa-payment-service/internal/router"
	"mpesa-payment-service/internal/usecase"
	"mpesa-payment-service/pkg/client"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting mpesa payment service")

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	dbPool, err := pgxpool.New(ctx, cfg.Database.ConnString())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := repository.Migrate(ctx, dbPool); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	logger.Info("connected to database", zap.String("database", cfg.Database.DBName))

	// Redis shares the gateway token between instances. Unreachable Redis
	// degrades to per-request token fetches rather than failing startup.
	var tokenCache cache.TokenCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, token caching disabled", zap.Error(err))
	} else {
		tokenCache = cache.NewRedisTokenCache(redisClient)
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	paymentRepo := repository.NewPaymentRepository(dbPool)
	mpesaClient := mpesa.NewClient(cfg.Mpesa, tokenCache, logger)
	orderClient := client.NewOrderClient(cfg.Order, logger)

	initiateUC := usecase.NewInitiateUsecase(paymentRepo, mpesaClient, logger)
	callbackUC := usecase.NewCallbackUsecase(paymentRepo, orderClient, logger)
	statusUC := usecase.NewStatusUsecase(paymentRepo, mpesaClient, orderClient, logger)

	paymentHandler := handler.NewPaymentHandler(initiateUC, statusUC, logger)
	callbackHandler := handler.NewCallbackHandler(callbackUC, logger)

	r := router.SetupRoutes(paymentHandler, callbackHandler, cfg.APIKey, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
