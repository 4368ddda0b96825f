package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection (connection pooling)
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to parse DB connection string: %v", err)
		return nil, nil, err
	}
	poolConfig.MaxConns = 25
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize Redis client for the location cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Msgf("Failed to ping Redis: %v", err)
		return nil, nil, err
	}

	// 3. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize Pub/Sub publisher
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		return nil, nil, err
	}

	// 6. Initialize repositories & services & handlers
	queueClient := pgmq.New(pool)

	userRepo := repository.NewUserRepo(pool)
	walletRepo := repository.NewWalletRepo(pool)
	postRepo := repository.NewPostRepo(pool)
	dlqRepo := repository.NewDLQRepository(pool)

	walletSvc := service.NewWalletService(walletRepo, logger)
	generationClient := service.NewGenerationClient(
		cfg.GenerationImageURL, cfg.GenerationVideoURL,
		cfg.GenerationImageTimeoutSec, cfg.GenerationVideoTimeoutSec,
		logger,
	)
	publishQueue := service.NewPgmqPublishQueue(queueClient, cfg.PublishQueueName)
	postSvc := service.NewPostService(postRepo, walletSvc, generationClient, publishQueue, pubSubPublisher, cfg, logger)

	secretSvc, err := service.NewSecretManagerService(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
		return nil, nil, err
	}

	gateway := service.NewBusinessProfileGateway(logger)
	locationCache := service.NewLocationCache(gateway, rdb, time.Duration(cfg.LocationCacheTTLSec)*time.Second, logger)
	publishSvc := service.NewPublishService(postRepo, walletSvc, locationCache, pubSubPublisher, cfg, logger)

	userSvc := service.NewUserService(userRepo, walletSvc)
	razorpaySvc := service.NewRazorpayService(cfg, userRepo, walletSvc, logger)
	assetSvc := service.NewAssetService(s3Client, cfg.S3Bucket, logger)
	dlqSvc := service.NewDLQService(dlqRepo, queueClient)

	userHandler := handler.NewUserHandler(userSvc, validate)
	walletHandler := handler.NewWalletHandler(walletSvc)
	postHandler := handler.NewPostHandler(postSvc, publishSvc, validate)
	locationHandler := handler.NewLocationHandler(gateway, locationCache, secretSvc, validate)
	subscriptionHandler := handler.NewSubscriptionHandler(razorpaySvc, validate)
	assetHandler := handler.NewAssetHandler(assetSvc, validate)
	dlqHandler := handler.NewDLQHandler(dlqSvc)

	// 7. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 8. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	walletHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	postHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	locationHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	assetHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	dlqHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Redirect all other root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 9. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
