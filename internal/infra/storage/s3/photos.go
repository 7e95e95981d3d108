package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"campusmarket/internal/app/policies"
)

var (
	ErrEndpointRequired = errors.New("s3: endpoint is required")
	ErrBucketRequired   = errors.New("s3: bucket is required")
	ErrNotConfigured    = errors.New("s3: photo storage is not configured")
)

// Options configures the photo bucket. PublicEndpoint is the base used in
// returned URLs and defaults to Endpoint.
type Options struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// PhotoStore keeps listing photos in an S3-compatible bucket.
type PhotoStore struct {
	bucket     string
	publicBase string
	client     *minio.Client
	logger     *slog.Logger

	bucketOnce sync.Once
	bucketErr  error
}

func NewPhotoStore(opts Options, logger *slog.Logger) (*PhotoStore, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	client, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	public := strings.TrimSpace(opts.PublicEndpoint)
	if public == "" {
		public = endpoint
	}
	return &PhotoStore{
		bucket:     bucket,
		publicBase: strings.TrimRight(public, "/"),
		client:     client,
		logger:     logger,
	}, nil
}

// Upload writes the object and returns its public URL. The bucket is created
// with an anonymous read policy on first use.
func (s *PhotoStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	publicURL := s.objectURL(key)
	if s.logger != nil {
		s.logger.Info("listing photo stored", "bucket", s.bucket, "key", key, "size", info.Size)
	}
	return publicURL, nil
}

func (s *PhotoStore) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		if err := s.client.SetBucketPolicy(ctx, s.bucket, readOnlyPolicy(s.bucket)); err != nil {
			s.bucketErr = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return s.bucketErr
}

func (s *PhotoStore) objectURL(key string) string {
	return s.publicBase + "/" + s.bucket + "/" + strings.TrimLeft(key, "/")
}

func readOnlyPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// hostOf strips the scheme because minio.New wants host[:port].
func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// Unavailable rejects every upload. Used when no endpoint is configured.
type Unavailable struct{}

func (Unavailable) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

var (
	_ policies.PhotoStorage = (*PhotoStore)(nil)
	_ policies.PhotoStorage = Unavailable{}
)
