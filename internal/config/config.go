package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	// S3-compatible storage for logo / product image uploads
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	GCPProjectID       string `envconfig:"GCP_PROJECT_ID" default:""`
	PubSubEventsTopic  string `envconfig:"PUBSUB_EVENTS_TOPIC" default:"post-lifecycle-events"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST" default:""`

	// Generation webhook settings (n8n)
	GenerationImageURL        string `envconfig:"GENERATION_IMAGE_URL" required:"true"`
	GenerationVideoURL        string `envconfig:"GENERATION_VIDEO_URL" required:"true"`
	GenerationImageTimeoutSec int    `envconfig:"GENERATION_IMAGE_TIMEOUT_SEC" default:"90"`
	GenerationVideoTimeoutSec int    `envconfig:"GENERATION_VIDEO_TIMEOUT_SEC" default:"360"`

	// Publishing webhook settings
	PublishWebhookURL        string `envconfig:"PUBLISH_WEBHOOK_URL" required:"true"`
	PublishWebhookTimeoutSec int    `envconfig:"PUBLISH_WEBHOOK_TIMEOUT_SEC" default:"60"`

	// Coin costs. Canonical defaults: 80 per generated image, 150 per
	// generated video, 20 per location published to.
	GenerationImageCost int `envconfig:"GENERATION_IMAGE_COST" default:"80"`
	GenerationVideoCost int `envconfig:"GENERATION_VIDEO_COST" default:"150"`
	PerLocationCost     int `envconfig:"PER_LOCATION_COST" default:"20"`

	// Location projection cache
	LocationCacheTTLSec int `envconfig:"LOCATION_CACHE_TTL_SEC" default:"600"`

	// Razorpay settings
	RazorpayKeyID         string `envconfig:"RAZORPAY_KEY_ID" required:"true"`
	RazorpayKeySecret     string `envconfig:"RAZORPAY_KEY_SECRET" required:"true"`
	RazorpayWebhookSecret string `envconfig:"RAZORPAY_WEBHOOK_SECRET" default:""`

	// Publishing orchestrator settings
	PublishQueueName           string `envconfig:"PUBLISH_QUEUE_NAME" default:"publish_queue"`
	PublishPollTimeoutSec      int    `envconfig:"PUBLISH_POLL_TIMEOUT_SEC" default:"30"`
	PublishPollMaxMsg          int    `envconfig:"PUBLISH_POLL_MAX_MSG" default:"1"`
	PublishMaxRetries          int    `envconfig:"PUBLISH_MAX_RETRIES" default:"5"`
	PublishBackoffInitialSec   int    `envconfig:"PUBLISH_BACKOFF_INITIAL_SEC" default:"1"`
	PublishBackoffMaxSec       int    `envconfig:"PUBLISH_BACKOFF_MAX_SEC" default:"60"`
	PublishDeadLetterQueueName string `envconfig:"PUBLISH_DEAD_LETTER_QUEUE_NAME" default:"publish_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
