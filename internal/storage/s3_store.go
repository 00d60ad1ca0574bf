package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/Notifuse/designer/config"
	"github.com/Notifuse/designer/pkg/logger"
)

// ErrBucketRequired is returned when publishing is configured without a bucket
var ErrBucketRequired = errors.New("storage bucket is required")

const defaultRegion = "us-east-1"

// Uploader is the part of s3manager.Uploader the store uses
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3ArtifactStore publishes exports to an S3 compatible bucket
type S3ArtifactStore struct {
	uploader  Uploader
	bucket    string
	publicURL string
	logger    logger.Logger
}

// NewS3ArtifactStore builds an uploader from the storage settings. Endpoint and
// path style addressing allow MinIO and other S3 compatible services.
func NewS3ArtifactStore(cfg *config.StorageConfig, log logger.Logger) (*S3ArtifactStore, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsConfig := &aws.Config{
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage session: %w", err)
	}

	return NewArtifactStore(s3manager.NewUploader(sess), cfg.Bucket, cfg.PublicURL, log), nil
}

// NewArtifactStore wraps an existing uploader
func NewArtifactStore(uploader Uploader, bucket, publicURL string, log logger.Logger) *S3ArtifactStore {
	return &S3ArtifactStore{
		uploader:  uploader,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    log,
	}
}

// Put uploads body under key and returns its public URL. PublicURL, when set,
// replaces the location reported by the bucket.
func (s *S3ArtifactStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=300"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(body),
	}).Debug("Artifact uploaded")

	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return out.Location, nil
}
