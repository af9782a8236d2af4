package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const connectTimeout = 5 * time.Second

// Config captures the settings for the MinIO-backed media store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicBaseURL is the externally reachable prefix for uploaded objects.
	// When empty it is derived from Endpoint and UseSSL.
	PublicBaseURL string
}

// MediaStore implements ports.MediaStore on a MinIO (S3-compatible) bucket.
type MediaStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// Connect initialises the MinIO client and makes sure the bucket exists.
func Connect(ctx context.Context, cfg Config) (*MediaStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &MediaStore{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// Upload pushes the local file into the bucket and returns its public URL.
// Object names are prefixed with a nanosecond timestamp so repeated uploads
// of the same filename never overwrite each other.
func (s *MediaStore) Upload(ctx context.Context, localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("upload: empty local path")
	}

	name := filepath.Base(localPath)
	object := fmt.Sprintf("media/%d-%s", time.Now().UnixNano(), name)

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := s.client.FPutObject(ctx, s.bucket, object, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, object), nil
}

// Healthy reports whether the bucket is reachable; used by the readiness
// probe.
func (s *MediaStore) Healthy(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
