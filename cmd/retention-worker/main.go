package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grade-import-service/internal/config"
	"grade-import-service/internal/db"
	"grade-import-service/internal/logger"
	"grade-import-service/internal/storage"
	"grade-import-service/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting retention worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	repo := db.NewRepository(database)

	// Initialize S3 storage for blob cleanup
	blobs, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	retentionWorker := worker.NewRetentionWorker(cfg, repo, blobs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := retentionWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Retention worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down retention worker...")

	cancel()
	retentionWorker.Stop()

	log.Info().Msg("Retention worker exited")
}
