package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/storefront-plugins/product-reviews/internal/config"
	"github.com/storefront-plugins/product-reviews/internal/delivery/events"
	"github.com/storefront-plugins/product-reviews/internal/pkg/cache"
	"github.com/storefront-plugins/product-reviews/internal/pkg/database"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
	"github.com/storefront-plugins/product-reviews/internal/pkg/storage"
	cacheRepo "github.com/storefront-plugins/product-reviews/internal/repository/cache"
	"github.com/storefront-plugins/product-reviews/internal/repository/postgres"
	"github.com/storefront-plugins/product-reviews/internal/usecase/image"
	"github.com/storefront-plugins/product-reviews/internal/usecase/importer"
	"github.com/storefront-plugins/product-reviews/internal/usecase/review"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.Env)

	appLogger.Info("Starting import worker...")

	// Connect to database
	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	appLogger.Info("Connected to database")

	// Connect to Redis: imported reviews invalidate product caches
	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()

	// Connect to NATS JetStream
	appLogger.Info("Connecting to NATS JetStream...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer publisher.Close()
	js := publisher.JetStream()

	// Connect to object storage
	fileStore, err := storage.NewS3Store(&cfg.Storage)
	if err != nil {
		appLogger.Fatal("Failed to create object storage client", err)
	}

	// Wire the import pipeline through the same review service the API
	// uses, so imported reviews publish events and invalidate caches
	reviewRepo := postgres.NewReviewRepository(db)
	imageRepo := postgres.NewImageRepository(db)
	jobRepo := postgres.NewBatchJobRepository(db)
	txManager := postgres.NewTxManager(db)
	redisCache := cacheRepo.NewRedisCache(redisClient, cfg.Cache.StatsTTL, cfg.Cache.ReviewsListTTL)

	imageService := image.NewService(imageRepo, fileStore, appLogger)
	reviewService := review.NewService(reviewRepo, imageService, txManager, redisCache, publisher, appLogger)
	strategy := importer.NewStrategy(jobRepo, reviewService, imageService, fileStore, cfg.Import.CheckpointRows, appLogger)

	// Initialize stream and consumer
	appLogger.Info("Initializing JetStream stream and consumer...")
	streamConfig := events.NewStreamConfig(js, appLogger)

	if err := streamConfig.EnsureImportStream(); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}

	if err := streamConfig.EnsureImportConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	// Subscribe to import jobs using durable consumer
	sub, err := js.PullSubscribe(events.ImportJobsSubject, events.ImportConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.ImportStreamName,
		"consumer": events.ImportConsumerName,
	}).Info("Subscribed to JetStream consumer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Process jobs one at a time: each message is a whole CSV import
	go func() {
		for {
			msgs, err := sub.Fetch(1, nats.MaxWait(5*time.Second))
			if err != nil {
				if err == nats.ErrTimeout {
					// No jobs available, continue polling
					continue
				}
				if ctx.Err() != nil {
					return
				}
				appLogger.Error("Failed to fetch messages from JetStream", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, msg := range msgs {
				var job importer.JobMessage
				if err := json.Unmarshal(msg.Data, &job); err != nil {
					appLogger.Error("Failed to decode job message, discarding", err)
					// Malformed message will never succeed, drop it
					if ackErr := msg.Ack(); ackErr != nil {
						appLogger.Error("Failed to ACK message", ackErr)
					}
					continue
				}

				appLogger.WithFields(map[string]any{
					"job_id": job.JobID,
				}).Info("Processing import job")

				if err := strategy.RunJob(ctx, job.JobID); err != nil {
					appLogger.Errorf(err, "Import job %s failed", job.JobID)

					// Redelivery is bounded by MaxDeliver; a job already
					// marked failed is skipped by the status guard on replay
					if nackErr := msg.Nak(); nackErr != nil {
						appLogger.Error("Failed to NACK message", nackErr)
					}
					continue
				}

				if ackErr := msg.Ack(); ackErr != nil {
					appLogger.Error("Failed to ACK message", ackErr)
				}
			}
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	appLogger.Info("Received shutdown signal")
	cancel()

	appLogger.Info("Import worker stopped")
}
