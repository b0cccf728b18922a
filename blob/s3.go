package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is the slice of the S3 API this package uses. *s3.Client satisfies
// it; tests substitute a fake.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config defines a public type used by goaccount APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Bucket        string
	Region        string
	BaseEndpoint  string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	PresignTTL    time.Duration
}

// S3 defines a public type used by goaccount APIs.
//
// S3 instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type S3 struct {
	client  Client
	presign presigner
	config  Config
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (url string, err error)
}

type sdkPresigner struct {
	inner *s3.PresignClient
	ttl   time.Duration
}

func (p sdkPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (string, error) {
	req, err := p.inner.PresignGetObject(ctx, params, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blob: empty bucket")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		client:  client,
		presign: sdkPresigner{inner: s3.NewPresignClient(client), ttl: cfg.PresignTTL},
		config:  cfg,
	}, nil
}

// NewWithClient builds a store around an existing client. Used by tests and
// by callers that configure the SDK themselves.
func NewWithClient(client Client, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blob: empty bucket")
	}
	return &S3{client: client, config: cfg}, nil
}

// Store writes data under key and returns the object's public URL.
// Storing an existing key overwrites it.
func (b *S3) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("blob: empty key")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return b.objectURL(key), nil
}

// Delete removes the object under key. Deleting a missing object succeeds;
// S3 deletes are idempotent.
func (b *S3) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("blob: empty key")
	}

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DownloadURL returns a presigned GET URL for key when a presigner is
// configured, falling back to the public object URL otherwise.
func (b *S3) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("blob: empty key")
	}
	if b.presign == nil {
		return b.objectURL(key), nil
	}
	return b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
	})
}

func (b *S3) objectURL(key string) string {
	if b.config.PublicBaseURL != "" {
		return strings.TrimSuffix(b.config.PublicBaseURL, "/") + "/" + key
	}
	if b.config.BaseEndpoint != "" {
		return strings.TrimSuffix(b.config.BaseEndpoint, "/") + "/" + b.config.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.config.Bucket, b.config.Region, key)
}
