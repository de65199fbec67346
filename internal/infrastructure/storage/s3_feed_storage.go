package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	infraconfig "github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ensure S3FeedStorage implements FeedStorage
var _ feedsync.FeedStorage = (*S3FeedStorage)(nil)

// maxPresignExpiration is the longest validity S3 accepts for a presigned URL
const maxPresignExpiration = 7 * 24 * time.Hour

// S3FeedStorage stores feeds in any S3-compatible object store (AWS S3, MinIO, RustFS)
type S3FeedStorage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	publicBaseURL     string
	presignExpiration time.Duration
	now               func() time.Time
	logger            *zap.Logger
}

// S3FeedStorageOption is a functional option for configuring S3FeedStorage
type S3FeedStorageOption func(*S3FeedStorage)

// WithLogger sets a custom logger for S3FeedStorage
func WithLogger(logger *zap.Logger) S3FeedStorageOption {
	return func(s *S3FeedStorage) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for object keys
func WithClock(now func() time.Time) S3FeedStorageOption {
	return func(s *S3FeedStorage) {
		s.now = now
	}
}

// NewS3FeedStorage creates a new S3FeedStorage from configuration
func NewS3FeedStorage(cfg *infraconfig.StorageConfig, opts ...S3FeedStorageOption) (*S3FeedStorage, error) {
	if cfg == nil {
		return nil, shared.NewConfigurationError("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, shared.NewConfigurationError("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, shared.NewConfigurationError("storage access key and secret key are required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, shared.WrapDomainError(shared.CodeConfiguration, "invalid storage endpoint", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	storage := &S3FeedStorage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		publicBaseURL:     strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignExpiration: cfg.PresignExpiration,
		now:               time.Now,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(storage)
	}

	if storage.presignExpiration <= 0 || storage.presignExpiration > maxPresignExpiration {
		storage.presignExpiration = maxPresignExpiration
	}
	return storage, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3FeedStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating feed bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload writes the feed under a new key and returns a URL for it: the public
// base URL when configured, otherwise a presigned GET URL.
func (s *S3FeedStorage) Upload(ctx context.Context, content []byte, fileName, contentType string, merchantID, catalogID uuid.UUID) (string, error) {
	key := FeedKey(merchantID, catalogID, fileName, s.now())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", shared.WrapDomainError(shared.CodeStorage, "failed to upload feed", err)
	}

	s.logger.Debug("Feed uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(content)),
	)

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}

	presigned, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", shared.WrapDomainError(shared.CodeStorage, "failed to presign feed URL", err)
	}
	return presigned.URL, nil
}

// Bucket returns the bucket name
func (s *S3FeedStorage) Bucket() string {
	return s.bucket
}
