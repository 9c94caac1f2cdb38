// Package storage persists uploaded files on local disk or in an
// S3-compatible bucket (AWS S3, Cloudflare R2, MinIO).
package storage

import (
	"context"
	"io"

	"github.com/dukerupert/marketplace/internal"
)

// Storage is a flat key/value file store. Keys are clean relative slash
// paths such as "uploads/2026/01/<uuid>.png".
type Storage interface {
	// Put stores content under key and returns the URL clients fetch it from.
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)
}

// NewStorage picks the backend named by cfg.Provider; "" means local.
func NewStorage(ctx context.Context, cfg internal.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
	case "r2":
		return NewR2Storage(ctx, R2Config{
			AccountID:   cfg.R2AccountID,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretKey,
			BucketName:  cfg.R2BucketName,
			PublicURL:   cfg.R2PublicURL,
		})
	}
	return nil, ErrUnknownProvider(cfg.Provider)
}
