package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/meliznube/backend/internal/application/annotation"
	"github.com/meliznube/backend/internal/domain/allocation"
	"github.com/meliznube/backend/internal/infrastructure/auth"
	"github.com/meliznube/backend/internal/infrastructure/config"
	"github.com/meliznube/backend/internal/infrastructure/inventory"
	"github.com/meliznube/backend/internal/infrastructure/lock"
	"github.com/meliznube/backend/internal/infrastructure/logger"
	"github.com/meliznube/backend/internal/infrastructure/marketplace"
	"github.com/meliznube/backend/internal/interfaces/http/handler"
	"github.com/meliznube/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting order annotation service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Redis backs the credential store and the pack lock
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	cancelPing()
	log.Info("Redis connected successfully")

	// Credential store and upstream auth
	tokenStore := auth.NewRedisTokenStore(redisClient, cfg.Auth.TokenKey)
	meliAuth := auth.NewMeliAuth(auth.MeliConfig{
		BaseURL:       cfg.Marketplace.BaseURL,
		ClientID:      cfg.Marketplace.ClientID,
		ClientSecret:  cfg.Marketplace.ClientSecret,
		RedirectURI:   cfg.Marketplace.RedirectURI,
		RefreshMargin: cfg.Auth.RefreshMargin,
	}, tokenStore, &http.Client{Timeout: cfg.Marketplace.Timeout}, log)
	inventoryTokens := auth.NewInventoryTokens(tokenStore)

	// Upstream clients
	meliClient := marketplace.NewClient(marketplace.Config{
		BaseURL:          cfg.Marketplace.BaseURL,
		SellerID:         cfg.Marketplace.SellerID,
		FullLogisticType: cfg.Marketplace.FullLogisticType,
		FlexLogisticType: cfg.Marketplace.FlexLogisticType,
	}, meliAuth, &http.Client{Timeout: cfg.Marketplace.Timeout}, log)

	inventoryClient := inventory.NewClient(
		cfg.Inventory.BaseURL,
		inventoryTokens,
		&http.Client{Timeout: cfg.Inventory.Timeout},
		log,
	)

	// Core services
	consolidator := allocation.NewConsolidator(inventoryClient)
	packLocks := lock.NewRedisPackLockStore(redisClient, cfg.Lock.KeyPrefix)

	processor := annotation.NewProcessor(meliClient, consolidator, packLocks, annotation.Config{
		SellerID:             cfg.Marketplace.SellerID,
		UpsertNoteEnabled:    cfg.Note.UpsertEnabled,
		SendBuyerMessage:     cfg.Note.SendBuyerMessage,
		BuyerMessageTemplate: cfg.Note.BuyerMessageTemplate,
	}, log)

	// HTTP surface
	engine := router.New(cfg, log, router.Handlers{
		Webhook: handler.NewWebhookHandler(processor),
		OAuth:   handler.NewOAuthHandler(meliAuth),
		System:  handler.NewSystemHandler(redisClient),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
