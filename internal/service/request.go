package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/jobs"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// RequestStore is the persistence RequestService needs.
type RequestStore interface {
	jobs.Enqueuer
	CreateRequest(ctx context.Context, r *domain.Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	ListRequestsByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error)
	ListRequests(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error)
	EndRequest(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error
}

// RequestInput is what a customer submits.
type RequestInput struct {
	Title       string
	Description string
	Quantity    int
	Budget      *int64
	CategoryID  *uuid.UUID
	Attachments []string
}

// RequestService handles requests for items that are not in the catalog
type RequestService interface {
	// Create stores the request and schedules the Slack announcement.
	Create(ctx context.Context, requester *domain.User, in RequestInput) (*domain.Request, error)

	// Get returns the request to its owner or an admin.
	Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Request, error)

	ListMine(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error)
	ListAll(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error)

	// Cancel is the owner withdrawing an open or quoted request. Sent
	// proposals on it are withdrawn.
	Cancel(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Request, error)

	// Close is an admin ending an open or quoted request. Sent proposals on
	// it are withdrawn.
	Close(ctx context.Context, id uuid.UUID) (*domain.Request, error)
}

type requestService struct {
	store   RequestStore
	baseURL string
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewRequestService creates a new RequestService instance. baseURL builds
// the admin link in notifications.
func NewRequestService(store RequestStore, baseURL string, metrics *telemetry.BusinessMetrics, logger *slog.Logger) RequestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &requestService{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

func (s *requestService) Create(ctx context.Context, requester *domain.User, in RequestInput) (*domain.Request, error) {
	const op = "request.create"

	var verr error
	add := func(field, msg string) {
		verr = domain.MergeValidation(verr, domain.NewValidationError(op, field, msg))
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		add("title", "is required")
	}
	if in.Quantity < 1 {
		add("quantity", "must be at least 1")
	}
	if in.Budget != nil && *in.Budget < 0 {
		add("budget", "must not be negative")
	}
	if verr != nil {
		return nil, verr
	}

	attachments := in.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	r := &domain.Request{
		RequesterID: requester.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		Budget:      in.Budget,
		CategoryID:  in.CategoryID,
		Attachments: attachments,
		Status:      domain.RequestOpen,
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, domain.NewValidationError(op, "category_id", "category does not exist")
		}
		return nil, domain.Internal(err, op, "failed to create request")
	}
	s.metrics.RequestCreated()

	err := jobs.EnqueueRequestCreated(ctx, s.store, jobs.RequestCreatedPayload{
		RequestID:      r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Quantity:       r.Quantity,
		BudgetCents:    r.Budget,
		RequesterName:  requester.Name,
		RequesterEmail: requester.Email,
		AdminURL:       s.baseURL + "/api/admin/requests/" + r.ID.String(),
	})
	if err != nil {
		// The request is stored; only the announcement is lost.
		s.logger.Error("failed to enqueue request notification", "request_id", r.ID, "error", err)
	}
	return r, nil
}

func (s *requestService) Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Request, error) {
	const op = "request.get"

	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	if !viewer.IsAdmin() && r.RequesterID != viewer.ID {
		return nil, domain.WithOp(ErrRequestNotFound, op)
	}
	return r, nil
}

func (s *requestService) ListMine(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	list, err := s.store.ListRequestsByRequester(ctx, requesterID)
	if err != nil {
		return nil, domain.Internal(err, "request.list_mine", "failed to list requests")
	}
	return list, nil
}

func (s *requestService) ListAll(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	list, err := s.store.ListRequests(ctx, status, limit, max(offset, 0))
	if err != nil {
		return nil, domain.Internal(err, "request.list", "failed to list requests")
	}
	return list, nil
}

func (s *requestService) Cancel(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Request, error) {
	const op = "request.cancel"

	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	if r.RequesterID != requester.ID {
		return nil, domain.WithOp(ErrRequestNotFound, op)
	}
	if !r.Quotable() {
		return nil, domain.WithOp(ErrRequestNotCancellable, op)
	}
	if err := s.store.EndRequest(ctx, id, domain.RequestCancelled); err != nil {
		if errors.Is(err, repository.ErrRequestEnded) {
			return nil, domain.WithOp(ErrRequestNotCancellable, op)
		}
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	r.Status = domain.RequestCancelled
	return r, nil
}

func (s *requestService) Close(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	const op = "request.close"

	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	if !r.Quotable() {
		return nil, domain.WithOp(ErrRequestNotClosable, op)
	}
	if err := s.store.EndRequest(ctx, id, domain.RequestClosed); err != nil {
		if errors.Is(err, repository.ErrRequestEnded) {
			return nil, domain.WithOp(ErrRequestNotClosable, op)
		}
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	r.Status = domain.RequestClosed
	return r, nil
}
