// Package avatar stores user avatar images in S3-compatible object storage.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidConfig is returned when the bucket or region is missing.
var ErrInvalidConfig = errors.New("avatar: bucket and region are required")

// S3Client is the subset of *s3.Client used by S3Store.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config describes the bucket avatars are written to.
type Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint points at an S3-compatible service such as MinIO.
	// Path-style addressing is used whenever it is set.
	Endpoint string
	// PublicURL is the base of the URLs handed out to clients.
	PublicURL string
}

// S3Store uploads avatars and returns their public URLs.
type S3Store struct {
	client  S3Client
	bucket  string
	baseURL string
}

// Option configures an S3Store.
type Option func(*S3Store)

// WithClient replaces the SDK client, typically with a fake in tests.
func WithClient(c S3Client) Option {
	return func(s *S3Store) { s.client = c }
}

// NewS3Store builds the store from cfg, loading the AWS SDK configuration
// unless a client was supplied with WithClient.
func NewS3Store(ctx context.Context, cfg Config, opts ...Option) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	s := &S3Store{bucket: cfg.Bucket, baseURL: publicBaseURL(cfg)}
	for _, opt := range opts {
		opt(s)
	}
	if s.client != nil {
		return s, nil
	}

	awsOptions := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsOptions = append(awsOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s.client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return s, nil
}

func publicBaseURL(cfg Config) string {
	base := cfg.PublicURL
	if base == "" {
		if cfg.Endpoint != "" {
			base = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// Upload writes body under key and returns the object's public URL.
// The body is buffered so the SDK can sign a seekable payload.
func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, size+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("avatar size mismatch: got %d bytes, want %d", len(data), size)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("put avatar %s: %w", key, err)
	}
	return s.baseURL + key, nil
}
