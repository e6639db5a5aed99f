package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storefront-plugins/product-reviews/internal/config"
	httpDelivery "github.com/storefront-plugins/product-reviews/internal/delivery/http"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/handler"
	"github.com/storefront-plugins/product-reviews/internal/delivery/events"
	"github.com/storefront-plugins/product-reviews/internal/pkg/auth"
	"github.com/storefront-plugins/product-reviews/internal/pkg/cache"
	"github.com/storefront-plugins/product-reviews/internal/pkg/database"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
	"github.com/storefront-plugins/product-reviews/internal/pkg/storage"
	cacheRepo "github.com/storefront-plugins/product-reviews/internal/repository/cache"
	"github.com/storefront-plugins/product-reviews/internal/repository/postgres"
	"github.com/storefront-plugins/product-reviews/internal/usecase/image"
	"github.com/storefront-plugins/product-reviews/internal/usecase/importer"
	"github.com/storefront-plugins/product-reviews/internal/usecase/review"

	_ "github.com/storefront-plugins/product-reviews/docs"
)

// @title Product Reviews API
// @version 1.0
// @description Customer product reviews for an e-commerce storefront: verified-purchase reviews with images, merchant replies, aggregate statistics and CSV batch imports.

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name Store
// @tag.description Storefront review endpoints

// @tag.name Admin
// @tag.description Merchant review management endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Product Reviews API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	streamConfig := events.NewStreamConfig(publisher.JetStream(), appLogger)
	if err := streamConfig.EnsureReviewStream(); err != nil {
		appLogger.Fatal("Failed to ensure review stream", err)
	}
	if err := streamConfig.EnsureImportStream(); err != nil {
		appLogger.Fatal("Failed to ensure import stream", err)
	}

	appLogger.Info("Connecting to object storage...")
	fileStore, err := storage.NewS3Store(&cfg.Storage)
	if err != nil {
		appLogger.Fatal("Failed to create object storage client", err)
	}
	if err := fileStore.EnsureBucket(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure storage bucket", err)
	}

	reviewRepo := postgres.NewReviewRepository(db)
	imageRepo := postgres.NewImageRepository(db)
	jobRepo := postgres.NewBatchJobRepository(db)
	orderLookup := postgres.NewOrderLookup(db)
	txManager := postgres.NewTxManager(db)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.StatsTTL,
		cfg.Cache.ReviewsListTTL,
	)

	imageService := image.NewService(imageRepo, fileStore, appLogger)
	reviewService := review.NewService(reviewRepo, imageService, txManager, redisCache, publisher, appLogger)
	importService := importer.NewService(jobRepo, publisher, appLogger)

	tokens := auth.NewTokenService(cfg.Auth)

	storeHandler := handler.NewStoreReviewHandler(reviewService, orderLookup, appLogger)
	adminHandler := handler.NewAdminReviewHandler(reviewService, importService, orderLookup, appLogger)
	uploadHandler := handler.NewUploadHandler(fileStore, appLogger)

	router := httpDelivery.NewRouter(storeHandler, adminHandler, uploadHandler, tokens, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
