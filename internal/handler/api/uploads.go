package api

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/service"
)

// UploadHandler accepts image and PDF uploads for product images and
// request attachments.
type UploadHandler struct {
	uploads service.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload handles POST /api/uploads. The file is either the "file" part of a
// multipart form or the raw request body.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "upload.put"

	body, err := uploadBody(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	up, err := h.uploads.Upload(r.Context(), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = domain.WithOp(service.ErrUploadTooLarge, op)
		}
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, up)
}

func uploadBody(r *http.Request) (io.Reader, error) {
	const op = "upload.put"

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, domain.Invalid(op, "Malformed multipart body")
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, domain.NewValidationError(op, "file", "is required")
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, domain.WithOp(service.ErrUploadTooLarge, op)
			}
			return nil, domain.Invalid(op, "Malformed multipart body")
		}
		if part.FormName() == "file" {
			return part, nil
		}
	}
}
