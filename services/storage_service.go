package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// ObjectStore produces durable references for captured media. The upload
// stage is the only consumer.
type ObjectStore interface {
	// Put uploads an object and returns a durable URL for it.
	Put(ctx context.Context, key, contentType string, reader io.Reader, size int64) (string, error)
}

// MinIOConfig contains object store configuration.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	Region          string
	URLExpiry       time.Duration
}

// MinIOStore implements ObjectStore on a MinIO / S3-compatible endpoint.
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 7 * 24 * time.Hour
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	// Ensure bucket exists (or create)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logrus.Infof("Created evidence bucket %s", cfg.Bucket)
	}

	return &MinIOStore{
		client:    client,
		bucket:    cfg.Bucket,
		urlExpiry: cfg.URLExpiry,
	}, nil
}

func (s *MinIOStore) Put(ctx context.Context, key, contentType string, reader io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}

	// Presigned so recipients can open the link without store credentials.
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlExpiry, nil)
	if err != nil {
		return "", err
	}

	return presigned.String(), nil
}

// MockObjectStore is used when no object store is configured. It pretends
// the upload succeeded so development environments still exercise the full
// pipeline.
type MockObjectStore struct{}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{}
}

func (s *MockObjectStore) Put(ctx context.Context, key, contentType string, reader io.Reader, size int64) (string, error) {
	logrus.Infof("MOCK UPLOAD: %s (%s, %d bytes)", key, contentType, size)
	return fmt.Sprintf("mock://evidence/%s", key), nil
}
