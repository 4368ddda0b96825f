package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/logger"
	"app/internal/orchestrator/publishing"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Initialize DB connection
	pool, err := pgxpool.New(context.Background(), cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	// Initialize PGMQ client
	pgmqClient := pgmq.New(pool)
	logger.Info().Msg("PGMQ client initialized")

	// Initialize Redis for the location cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Msgf("Failed to ping Redis: %v", err)
	}

	// Initialize Pub/Sub publisher for lifecycle events
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
	}

	// Wire the publishing pipeline
	postRepo := repository.NewPostRepo(pool)
	walletRepo := repository.NewWalletRepo(pool)
	dlqRepo := repository.NewDLQRepository(pool)

	walletSvc := service.NewWalletService(walletRepo, logger)
	gateway := service.NewBusinessProfileGateway(logger)
	locationCache := service.NewLocationCache(gateway, rdb, time.Duration(cfg.LocationCacheTTLSec)*time.Second, logger)
	publishSvc := service.NewPublishService(postRepo, walletSvc, locationCache, pubSubPublisher, cfg, logger)
	dlqSvc := service.NewDLQService(dlqRepo, pgmqClient)

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orchestrator := publishing.NewOrchestrator(cfg, pgmqClient, postRepo, publishSvc, dlqSvc, logger)
	if err := orchestrator.Run(ctx); err != nil {
		logger.Fatal().Msgf("Publishing orchestrator failed: %v", err)
	}

	logger.Info().Msg("Publishing orchestrator stopped gracefully")
}
