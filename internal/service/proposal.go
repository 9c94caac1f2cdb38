package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/invoice"
	"github.com/dukerupert/marketplace/internal/jobs"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// ProposalStore is the persistence ProposalService needs.
type ProposalStore interface {
	jobs.Enqueuer
	CreateProposal(ctx context.Context, p *domain.Proposal) error
	UpdateProposal(ctx context.Context, p *domain.Proposal) error
	GetProposal(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)
	ListProposalsByRequest(ctx context.Context, requestID uuid.UUID, onlyVisible bool) ([]domain.Proposal, error)
	SendProposal(ctx context.Context, id, requestID uuid.UUID, at time.Time) error
	SetProposalStatus(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus, at time.Time) error
	AcceptProposal(ctx context.Context, id, requestID uuid.UUID, at time.Time) error
	GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*domain.Version, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// ProposalItemInput is one priced line.
type ProposalItemInput struct {
	VersionID   *uuid.UUID
	Description string
	Quantity    int
	UnitPrice   int64
}

// ProposalInput is the editable part of a proposal.
type ProposalInput struct {
	Items      []ProposalItemInput
	Note       string
	ValidUntil *time.Time
}

// ProposalService manages offers made against requests
type ProposalService interface {
	// Create drafts a proposal for an open or quoted request.
	Create(ctx context.Context, author *domain.User, requestID uuid.UUID, in ProposalInput) (*domain.Proposal, error)

	// Update replaces the items and terms of a draft.
	Update(ctx context.Context, id uuid.UUID, in ProposalInput) (*domain.Proposal, error)

	// Get returns the proposal to an admin, or to the requester once sent.
	Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Proposal, error)

	// ListForRequest hides drafts from the requester.
	ListForRequest(ctx context.Context, viewer *domain.User, requestID uuid.UUID) ([]domain.Proposal, error)

	// Send moves a draft to sent, marks the request quoted and emails the
	// requester.
	Send(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)

	Withdraw(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)

	// Accept closes the request and rejects every other sent proposal.
	Accept(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error)
	Reject(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error)

	// InvoiceHTML renders the invoice of an accepted proposal.
	InvoiceHTML(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, error)

	// InvoicePDF renders the invoice as PDF and returns the file name.
	InvoicePDF(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, string, error)

	// ProposalPDF renders any proposal for the email attachment.
	ProposalPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
}

type proposalService struct {
	store    ProposalStore
	pdf      invoice.PDFRenderer
	baseURL  string
	currency string
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewProposalService creates a new ProposalService instance. pdf may be nil,
// which disables PDF invoices.
func NewProposalService(store ProposalStore, pdf invoice.PDFRenderer, baseURL, currency string, metrics *telemetry.BusinessMetrics, logger *slog.Logger) ProposalService {
	if currency == "" {
		currency = "USD"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &proposalService{
		store:    store,
		pdf:      pdf,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		currency: currency,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *proposalService) Create(ctx context.Context, author *domain.User, requestID uuid.UUID, in ProposalInput) (*domain.Proposal, error) {
	const op = "proposal.create"

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	if !req.Quotable() {
		return nil, domain.WithOp(ErrRequestNotQuotable, op)
	}

	p := &domain.Proposal{
		RequestID: requestID,
		AuthorID:  author.ID,
		Status:    domain.ProposalDraft,
	}
	if err := s.apply(ctx, p, in, op); err != nil {
		return nil, err
	}
	if err := s.store.CreateProposal(ctx, p); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, domain.NewValidationError(op, "items", "version does not exist")
		}
		return nil, domain.Internal(err, op, "failed to create proposal")
	}
	s.metrics.Proposal(string(domain.ProposalDraft), p.Total())
	return p, nil
}

func (s *proposalService) Update(ctx context.Context, id uuid.UUID, in ProposalInput) (*domain.Proposal, error) {
	const op = "proposal.update"

	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrProposalNotFound, op)
	}
	if p.Status != domain.ProposalDraft {
		return nil, domain.WithOp(ErrProposalNotDraft, op)
	}
	if err := s.apply(ctx, p, in, op); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProposal(ctx, p); err != nil {
		if repository.IsNotFound(err) {
			// Sent by someone else in the meantime.
			return nil, domain.WithOp(ErrProposalNotDraft, op)
		}
		return nil, domain.Internal(err, op, "failed to update proposal")
	}
	return p, nil
}

func (s *proposalService) Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Proposal, error) {
	p, _, err := s.visible(ctx, viewer, id, "proposal.get")
	return p, err
}

// visible loads the proposal and its request, hiding drafts and other
// people's proposals from non-admins.
func (s *proposalService) visible(ctx context.Context, viewer *domain.User, id uuid.UUID, op string) (*domain.Proposal, *domain.Request, error) {
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, nil, lookupErr(err, ErrProposalNotFound, op)
	}
	req, err := s.store.GetRequest(ctx, p.RequestID)
	if err != nil {
		return nil, nil, lookupErr(err, ErrRequestNotFound, op)
	}
	if viewer.IsAdmin() {
		return p, req, nil
	}
	if req.RequesterID != viewer.ID || p.Status == domain.ProposalDraft {
		return nil, nil, domain.WithOp(ErrProposalNotFound, op)
	}
	return p, req, nil
}

func (s *proposalService) ListForRequest(ctx context.Context, viewer *domain.User, requestID uuid.UUID) ([]domain.Proposal, error) {
	const op = "proposal.list"

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	admin := viewer.IsAdmin()
	if !admin && req.RequesterID != viewer.ID {
		return nil, domain.WithOp(ErrRequestNotFound, op)
	}
	list, err := s.store.ListProposalsByRequest(ctx, requestID, !admin)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list proposals")
	}
	return list, nil
}

func (s *proposalService) Send(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	const op = "proposal.send"

	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrProposalNotFound, op)
	}
	if p.Status != domain.ProposalDraft {
		return nil, domain.WithOp(ErrProposalNotDraft, op)
	}
	if len(p.Items) == 0 {
		return nil, domain.NewValidationError(op, "items", "at least one item is required")
	}
	now := s.now()
	if p.Expired(now) {
		return nil, domain.NewValidationError(op, "valid_until", "must be in the future")
	}

	req, err := s.store.GetRequest(ctx, p.RequestID)
	if err != nil {
		return nil, lookupErr(err, ErrRequestNotFound, op)
	}
	if !req.Quotable() {
		return nil, domain.WithOp(ErrRequestNotQuotable, op)
	}

	if err := s.store.SendProposal(ctx, p.ID, p.RequestID, now); err != nil {
		switch {
		case repository.IsNotFound(err):
			return nil, domain.WithOp(ErrProposalNotDraft, op)
		case errors.Is(err, repository.ErrRequestEnded):
			return nil, domain.WithOp(ErrRequestNotQuotable, op)
		}
		return nil, domain.Internal(err, op, "failed to send proposal")
	}
	p.Status = domain.ProposalSent
	p.SentAt = &now
	s.metrics.Proposal(string(domain.ProposalSent), p.Total())

	if err := s.notifySent(ctx, p, req); err != nil {
		s.logger.Error("failed to enqueue proposal email", "proposal_id", p.ID, "error", err)
	}
	return p, nil
}

func (s *proposalService) notifySent(ctx context.Context, p *domain.Proposal, req *domain.Request) error {
	customer, err := s.store.GetUserByID(ctx, req.RequesterID)
	if err != nil {
		return fmt.Errorf("load requester: %w", err)
	}

	payload := jobs.ProposalSentPayload{
		ProposalID:   p.ID,
		Email:        customer.Email,
		CustomerName: customer.Name,
		RequestTitle: req.Title,
		TotalCents:   p.Total(),
		Note:         p.Note,
		ValidUntil:   p.ValidUntil,
		ProposalURL:  s.baseURL + "/api/proposals/" + p.ID.String(),
	}
	for _, it := range p.Items {
		payload.Items = append(payload.Items, jobs.ProposalLineData{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitCents:   it.UnitPrice,
			TotalCents:  it.LineTotal(),
		})
	}
	return jobs.EnqueueProposalSent(ctx, s.store, payload)
}

func (s *proposalService) Withdraw(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	const op = "proposal.withdraw"

	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrProposalNotFound, op)
	}
	if p.Status != domain.ProposalSent {
		return nil, domain.WithOp(ErrProposalNotSent, op)
	}
	now := s.now()
	if err := s.store.SetProposalStatus(ctx, id, domain.ProposalSent, domain.ProposalWithdrawn, now); err != nil {
		return nil, transitionErr(err, op)
	}
	p.Status = domain.ProposalWithdrawn
	p.RespondedAt = &now
	s.metrics.Proposal(string(domain.ProposalWithdrawn), p.Total())
	return p, nil
}

// answerable checks the requester may still accept or reject p.
func (s *proposalService) answerable(ctx context.Context, requester *domain.User, id uuid.UUID, op string) (*domain.Proposal, error) {
	p, req, err := s.visible(ctx, requester, id, op)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != requester.ID {
		return nil, domain.Forbidden(op, "Only the requester can answer a proposal")
	}
	if !req.Quotable() {
		return nil, domain.WithOp(ErrRequestNotQuotable, op)
	}
	if p.Status != domain.ProposalSent {
		return nil, domain.WithOp(ErrProposalNotSent, op)
	}
	if p.Expired(s.now()) {
		return nil, domain.WithOp(ErrProposalExpired, op)
	}
	return p, nil
}

func (s *proposalService) Accept(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error) {
	const op = "proposal.accept"

	p, err := s.answerable(ctx, requester, id, op)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.AcceptProposal(ctx, p.ID, p.RequestID, now); err != nil {
		return nil, transitionErr(err, op)
	}
	p.Status = domain.ProposalAccepted
	p.RespondedAt = &now
	s.metrics.Proposal(string(domain.ProposalAccepted), p.Total())
	return p, nil
}

func (s *proposalService) Reject(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error) {
	const op = "proposal.reject"

	p, err := s.answerable(ctx, requester, id, op)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.SetProposalStatus(ctx, p.ID, domain.ProposalSent, domain.ProposalRejected, now); err != nil {
		return nil, transitionErr(err, op)
	}
	p.Status = domain.ProposalRejected
	p.RespondedAt = &now
	s.metrics.Proposal(string(domain.ProposalRejected), p.Total())
	return p, nil
}

func (s *proposalService) InvoiceHTML(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, error) {
	const op = "proposal.invoice"

	doc, err := s.invoiceDocument(ctx, viewer, id, op)
	if err != nil {
		return nil, err
	}
	html, err := invoice.HTML(doc)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to render invoice")
	}
	return html, nil
}

func (s *proposalService) InvoicePDF(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, string, error) {
	const op = "proposal.invoice_pdf"

	if s.pdf == nil {
		return nil, "", domain.WithOp(ErrPDFDisabled, op)
	}
	doc, err := s.invoiceDocument(ctx, viewer, id, op)
	if err != nil {
		return nil, "", err
	}
	return s.renderPDF(ctx, doc, op)
}

func (s *proposalService) ProposalPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	const op = "proposal.pdf"

	if s.pdf == nil {
		return nil, "", domain.WithOp(ErrPDFDisabled, op)
	}
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, "", lookupErr(err, ErrProposalNotFound, op)
	}
	doc, err := s.document(ctx, p, op)
	if err != nil {
		return nil, "", err
	}
	return s.renderPDF(ctx, doc, op)
}

func (s *proposalService) invoiceDocument(ctx context.Context, viewer *domain.User, id uuid.UUID, op string) (invoice.Document, error) {
	p, _, err := s.visible(ctx, viewer, id, op)
	if err != nil {
		return invoice.Document{}, err
	}
	if p.Status != domain.ProposalAccepted {
		return invoice.Document{}, domain.WithOp(ErrProposalNotAccepted, op)
	}
	return s.document(ctx, p, op)
}

func (s *proposalService) document(ctx context.Context, p *domain.Proposal, op string) (invoice.Document, error) {
	req, err := s.store.GetRequest(ctx, p.RequestID)
	if err != nil {
		return invoice.Document{}, lookupErr(err, ErrRequestNotFound, op)
	}
	customer, err := s.store.GetUserByID(ctx, req.RequesterID)
	if err != nil && !repository.IsNotFound(err) {
		return invoice.Document{}, domain.Internal(err, op, "failed to load customer")
	}
	return invoice.FromProposal(p, req, customer, s.currency), nil
}

func (s *proposalService) renderPDF(ctx context.Context, doc invoice.Document, op string) ([]byte, string, error) {
	html, err := invoice.HTML(doc)
	if err != nil {
		return nil, "", domain.Internal(err, op, "failed to render invoice")
	}
	pdf, err := s.pdf.PDF(ctx, html)
	if err != nil {
		return nil, "", domain.Internal(err, op, "failed to print invoice")
	}
	return pdf, doc.Number, nil
}

// apply validates in and copies it onto p. Lines linked to a version get
// a description from the catalog when none is given.
func (s *proposalService) apply(ctx context.Context, p *domain.Proposal, in ProposalInput, op string) error {
	var verr error
	add := func(field, msg string) {
		verr = domain.MergeValidation(verr, domain.NewValidationError(op, field, msg))
	}

	if len(in.Items) == 0 {
		add("items", "at least one item is required")
	}
	items := make([]domain.ProposalItem, 0, len(in.Items))
	for i, it := range in.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		item := domain.ProposalItem{
			VersionID:   it.VersionID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
		if item.Quantity < 1 {
			add(prefix+".quantity", "must be at least 1")
		}
		if item.UnitPrice < 0 {
			add(prefix+".unit_price", "must not be negative")
		}
		if item.Description == "" && item.VersionID != nil {
			desc, err := s.describeVersion(ctx, *item.VersionID)
			if err != nil {
				if !domain.IsCode(err, domain.ENOTFOUND) {
					return domain.Internal(err, op, "failed to load version")
				}
				add(prefix+".version_id", "version does not exist")
			}
			item.Description = desc
		}
		if item.Description == "" && item.VersionID == nil {
			add(prefix+".description", "is required")
		}
		items = append(items, item)
	}
	if in.ValidUntil != nil && !in.ValidUntil.After(s.now()) {
		add("valid_until", "must be in the future")
	}
	if verr != nil {
		return verr
	}

	p.Items = items
	p.Note = strings.TrimSpace(in.Note)
	p.ValidUntil = in.ValidUntil
	return nil
}

func (s *proposalService) describeVersion(ctx context.Context, id uuid.UUID) (string, error) {
	v, err := s.store.GetVersion(ctx, id)
	if err != nil {
		return "", lookupErr(err, ErrVersionNotFound, "proposal.describe")
	}
	product, err := s.store.GetProductByID(ctx, v.ProductID)
	if err != nil {
		return "", lookupErr(err, ErrProductNotFound, "proposal.describe")
	}
	return fmt.Sprintf("%s (%s)", product.Name, v.SKU), nil
}

// transitionErr maps a lost race on a status change to not-sent.
func transitionErr(err error, op string) error {
	switch {
	case repository.IsNotFound(err):
		return domain.WithOp(ErrProposalNotSent, op)
	case errors.Is(err, repository.ErrRequestEnded):
		return domain.WithOp(ErrRequestNotQuotable, op)
	}
	return domain.Internal(err, op, "failed to update proposal status")
}
