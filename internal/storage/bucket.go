package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the subset of the S3 client the bucket backend calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an AWS S3 bucket. Credentials come from the default
// AWS chain. Endpoint is set for S3-compatible services such as MinIO.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
}

// BucketStorage implements Storage on any S3-compatible bucket.
type BucketStorage struct {
	client    ObjectAPI
	bucket    string
	publicURL string
	name      string // used in error messages: "S3", "R2"
}

// NewBucketStorage wraps an existing client.
func NewBucketStorage(client ObjectAPI, bucket, publicURL, name string) *BucketStorage {
	return &BucketStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		name:      name,
	}
}

// R2Config configures a Cloudflare R2 bucket.
type R2Config struct {
	AccountID   string
	AccessKeyID string
	SecretKey   string
	BucketName  string
	PublicURL   string
}

// NewS3Storage creates an AWS S3 backed storage.
func NewS3Storage(ctx context.Context, cfg S3Config) (*BucketStorage, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client, err := newS3Client(ctx, cfg.Region, cfg.Endpoint, nil)
	if err != nil {
		return nil, err
	}

	publicURL := cfg.PublicURL
	if publicURL == "" && cfg.Endpoint == "" && cfg.Region != "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return NewBucketStorage(client, cfg.Bucket, publicURL, "S3"), nil
}

// NewR2Storage creates a Cloudflare R2 backed storage. R2 speaks the S3 API
// on a per-account endpoint and only accepts static keys.
func NewR2Storage(ctx context.Context, cfg R2Config) (*BucketStorage, error) {
	switch {
	case cfg.AccountID == "":
		return nil, ErrR2AccountIDRequired
	case cfg.AccessKeyID == "" || cfg.SecretKey == "":
		return nil, ErrR2CredentialsRequired
	case cfg.BucketName == "":
		return nil, ErrBucketRequired
	}

	endpoint := "https://" + cfg.AccountID + ".r2.cloudflarestorage.com"
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")
	client, err := newS3Client(ctx, "auto", endpoint, creds)
	if err != nil {
		return nil, err
	}
	return NewBucketStorage(client, cfg.BucketName, cfg.PublicURL, "R2"), nil
}

// newS3Client loads the default AWS chain, overriding the region, the
// endpoint and the credentials when given. Custom endpoints use path-style
// addressing.
func newS3Client(ctx context.Context, region, endpoint string, creds aws.CredentialsProvider) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if creds != nil {
		opts = append(opts, config.WithCredentialsProvider(creds))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Put stores a file in the bucket.
func (s *BucketStorage) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to upload to %s: %w", s.name, err)
	}

	return s.URL(key), nil
}

// URL returns the public URL for accessing a file.
func (s *BucketStorage) URL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	return key
}
