package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/storage"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// MaxUploadBytes caps a single upload.
const MaxUploadBytes = 10 << 20

// allowedUploadTypes maps sniffed MIME types to the stored extension.
var allowedUploadTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// Upload describes a stored file.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// UploadService stores user files. The client's file name and declared
// content type are ignored; the type is sniffed from the bytes.
type UploadService interface {
	Upload(ctx context.Context, r io.Reader) (*Upload, error)
}

type uploadService struct {
	storage  storage.Storage
	maxBytes int64
	metrics  *telemetry.BusinessMetrics
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewUploadService creates a new UploadService instance
func NewUploadService(store storage.Storage, metrics *telemetry.BusinessMetrics) UploadService {
	return &uploadService{
		storage:  store,
		maxBytes: MaxUploadBytes,
		metrics:  metrics,
		now:      time.Now,
		newID:    uuid.New,
	}
}

func (s *uploadService) Upload(ctx context.Context, r io.Reader) (*Upload, error) {
	const op = "upload.put"

	// Read one byte past the limit to tell "exactly max" from "too large".
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.WithOp(ErrUploadTooLarge, op)
	}
	if len(data) == 0 {
		return nil, domain.WithOp(ErrUploadEmpty, op)
	}

	mt := mimetype.Detect(data)
	contentType := mt.String()
	ext, ok := "", false
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok = allowedUploadTypes[m.String()]; ok {
			contentType = m.String()
			break
		}
	}
	if !ok {
		return nil, domain.WithOp(ErrUploadTypeForbidden, op)
	}

	now := s.now().UTC()
	key := fmt.Sprintf("uploads/%04d/%02d/%s%s", now.Year(), int(now.Month()), s.newID(), ext)

	url, err := s.storage.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store upload")
	}

	size := int64(len(data))
	s.metrics.Upload(contentType, size)
	return &Upload{Key: key, URL: url, ContentType: contentType, Size: size}, nil
}
