package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AssetService hands out presigned URLs for logo and product image
// uploads so browsers can PUT directly to object storage.
type AssetService interface {
	// InitiateUpload returns the object key and a presigned PUT URL for it.
	InitiateUpload(ctx context.Context, userID, filename string) (string, string, error)
	// GetDownloadURL returns a short-lived signed GET URL for an object key.
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)
	// VerifyUpload checks that the object exists in the bucket.
	VerifyUpload(ctx context.Context, objectKey string) error
}

type assetService struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	assetLogger   zerolog.Logger
}

func NewAssetService(s3Client *s3.Client, bucketName string, logger zerolog.Logger) AssetService {
	return &assetService{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		assetLogger:   logger.With().Str("service", "AssetService").Logger(),
	}
}

// InitiateUpload generates a unique object key under the user's asset
// prefix and a presigned PUT URL for it.
func (s *assetService) InitiateUpload(ctx context.Context, userID, filename string) (string, string, error) {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		return "", "", fmt.Errorf("unsupported file type: %s", ext)
	}

	objectKey := fmt.Sprintf("assets/%s/%s%s", userID, uuid.NewString(), ext)
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.assetLogger.Error().Err(err).Str("object_key", objectKey).Msg("Failed to generate presigned PUT URL")
		return "", "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return objectKey, request.URL, nil
}

// GetDownloadURL generates a signed GET URL for the given object key.
func (s *assetService) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.assetLogger.Error().Err(err).Str("object_key", objectKey).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}

// VerifyUpload confirms the client completed the PUT before the key is
// referenced by a generation request.
func (s *assetService) VerifyUpload(ctx context.Context, objectKey string) error {
	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		s.assetLogger.Warn().Err(err).Str("object_key", objectKey).Msg("Uploaded object not found")
		return fmt.Errorf("object not found: %w", err)
	}
	return nil
}
