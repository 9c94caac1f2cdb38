package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/jobs"
	"github.com/dukerupert/marketplace/internal/repository"
)

// fakePDF records the HTML it was asked to print.
type fakePDF struct {
	html []byte
	err  error
}

func (f *fakePDF) PDF(ctx context.Context, html []byte) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

type proposalFixture struct {
	now       time.Time
	admin     *domain.User
	customer  *domain.User
	stranger  *domain.User
	request   *domain.Request
	proposal  *domain.Proposal
	store     *mockStore
	accepted  []uuid.UUID
	statusLog []domain.ProposalStatus
}

func newProposalFixture(status domain.ProposalStatus) *proposalFixture {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	validUntil := now.Add(72 * time.Hour)
	f := &proposalFixture{
		now:      now,
		admin:    &domain.User{ID: uuid.New(), Role: domain.RoleAdmin, Name: "Admin"},
		customer: &domain.User{ID: uuid.New(), Role: domain.RoleCustomer, Name: "Ana", Email: "ana@example.com"},
		stranger: &domain.User{ID: uuid.New(), Role: domain.RoleCustomer},
	}
	f.request = &domain.Request{ID: uuid.New(), RequesterID: f.customer.ID, Title: "Vintage lamp", Quantity: 2, Status: domain.RequestOpen}
	f.proposal = &domain.Proposal{
		ID:         uuid.New(),
		RequestID:  f.request.ID,
		AuthorID:   f.admin.ID,
		Status:     status,
		ValidUntil: &validUntil,
		Items: []domain.ProposalItem{
			{Description: "Brass lamp", Quantity: 2, UnitPrice: 4500},
			{Description: "Shipping", Quantity: 1, UnitPrice: 1200},
		},
	}

	f.store = &mockStore{
		GetRequestFunc: func(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
			r := *f.request
			return &r, nil
		},
		GetProposalFunc: func(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
			p := *f.proposal
			return &p, nil
		},
		GetUserByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
			return f.customer, nil
		},
		AcceptProposalFunc: func(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
			f.accepted = append(f.accepted, id)
			return nil
		},
		SetProposalStatusFunc: func(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus, at time.Time) error {
			f.statusLog = append(f.statusLog, to)
			return nil
		},
	}
	return f
}

func (f *proposalFixture) service(pdf *fakePDF) ProposalService {
	var svc ProposalService
	if pdf == nil {
		svc = NewProposalService(f.store, nil, "https://shop.example.com", "EUR", nil, nil)
	} else {
		svc = NewProposalService(f.store, pdf, "https://shop.example.com", "EUR", nil, nil)
	}
	svc.(*proposalService).now = func() time.Time { return f.now }
	return svc
}

func TestProposalService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("drafts with catalog description", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		versionID := uuid.New()
		f.store.GetVersionFunc = func(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
			return &domain.Version{ID: id, ProductID: uuid.New(), SKU: "LAMP-BRASS"}, nil
		}
		f.store.GetProductByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
			return &domain.Product{ID: id, Name: "Lamp"}, nil
		}

		p, err := f.service(nil).Create(ctx, f.admin, f.request.ID, ProposalInput{
			Items: []ProposalItemInput{
				{VersionID: &versionID, Quantity: 2, UnitPrice: 4000},
				{Description: "Engraving", Quantity: 1, UnitPrice: 500},
			},
			Note: " Ships in a week ",
		})
		require.NoError(t, err)

		assert.Equal(t, domain.ProposalDraft, p.Status)
		assert.Equal(t, f.admin.ID, p.AuthorID)
		assert.Equal(t, "Lamp (LAMP-BRASS)", p.Items[0].Description)
		assert.Equal(t, "Ships in a week", p.Note)
		assert.Equal(t, int64(8500), p.Total())
	})

	t.Run("validates items", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		past := f.now.Add(-time.Hour)

		_, err := f.service(nil).Create(ctx, f.admin, f.request.ID, ProposalInput{
			Items:      []ProposalItemInput{{Quantity: 0, UnitPrice: -1}},
			ValidUntil: &past,
		})
		require.Error(t, err)

		fields := domain.GetValidationFields(err)
		assert.Contains(t, fields, "items[0].quantity")
		assert.Contains(t, fields, "items[0].unit_price")
		assert.Contains(t, fields, "items[0].description")
		assert.Contains(t, fields, "valid_until")
	})

	t.Run("no items", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		_, err := f.service(nil).Create(ctx, f.admin, f.request.ID, ProposalInput{})
		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "items")
	})

	t.Run("request no longer quotable", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		f.request.Status = domain.RequestCancelled

		_, err := f.service(nil).Create(ctx, f.admin, f.request.ID, ProposalInput{
			Items: []ProposalItemInput{{Description: "x", Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrRequestNotQuotable)
	})
}

func TestProposalService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("sends and enqueues the email", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		var sent bool
		f.store.SendProposalFunc = func(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
			sent = true
			assert.Equal(t, f.request.ID, requestID)
			return nil
		}

		p, err := f.service(nil).Send(ctx, f.proposal.ID)
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Equal(t, domain.ProposalSent, p.Status)
		require.NotNil(t, p.SentAt)

		require.Len(t, f.store.enqueued, 1)
		assert.Equal(t, jobs.JobTypeProposalSent, f.store.enqueued[0].Type)

		var payload jobs.ProposalSentPayload
		require.NoError(t, json.Unmarshal(f.store.enqueued[0].Payload, &payload))
		assert.Equal(t, "ana@example.com", payload.Email)
		assert.Equal(t, "Vintage lamp", payload.RequestTitle)
		assert.Equal(t, int64(10200), payload.TotalCents)
		require.Len(t, payload.Items, 2)
		assert.Equal(t, int64(9000), payload.Items[0].TotalCents)
		assert.Equal(t, "https://shop.example.com/api/proposals/"+f.proposal.ID.String(), payload.ProposalURL)
	})

	t.Run("only drafts", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		_, err := f.service(nil).Send(ctx, f.proposal.ID)
		assert.ErrorIs(t, err, ErrProposalNotDraft)
		assert.Empty(t, f.store.enqueued)
	})

	t.Run("already past valid until", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		past := f.now.Add(-time.Minute)
		f.proposal.ValidUntil = &past

		_, err := f.service(nil).Send(ctx, f.proposal.ID)
		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "valid_until")
	})
}

func TestProposalService_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("requester accepts", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		p, err := f.service(nil).Accept(ctx, f.customer, f.proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalAccepted, p.Status)
		assert.Equal(t, []uuid.UUID{f.proposal.ID}, f.accepted)
	})

	t.Run("requester rejects", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		p, err := f.service(nil).Reject(ctx, f.customer, f.proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalRejected, p.Status)
		assert.Equal(t, []domain.ProposalStatus{domain.ProposalRejected}, f.statusLog)
	})

	t.Run("expired", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		f.now = f.proposal.ValidUntil.Add(time.Second)

		_, err := f.service(nil).Accept(ctx, f.customer, f.proposal.ID)
		assert.ErrorIs(t, err, ErrProposalExpired)
		assert.Equal(t, domain.EGONE, domain.ErrorCode(err))
		assert.Empty(t, f.accepted)
	})

	t.Run("not sent", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalWithdrawn)
		_, err := f.service(nil).Accept(ctx, f.customer, f.proposal.ID)
		assert.ErrorIs(t, err, ErrProposalNotSent)
	})

	t.Run("someone else", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		_, err := f.service(nil).Accept(ctx, f.stranger, f.proposal.ID)
		assert.ErrorIs(t, err, ErrProposalNotFound)
	})

	t.Run("admins cannot answer for the requester", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		_, err := f.service(nil).Accept(ctx, f.admin, f.proposal.ID)
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})

	t.Run("request no longer open", func(t *testing.T) {
		for _, status := range []domain.RequestStatus{domain.RequestCancelled, domain.RequestClosed} {
			f := newProposalFixture(domain.ProposalSent)
			f.request.Status = status
			svc := f.service(nil)

			_, err := svc.Accept(ctx, f.customer, f.proposal.ID)
			assert.ErrorIs(t, err, ErrRequestNotQuotable, string(status))
			_, err = svc.Reject(ctx, f.customer, f.proposal.ID)
			assert.ErrorIs(t, err, ErrRequestNotQuotable, string(status))

			assert.Empty(t, f.accepted)
			assert.Empty(t, f.statusLog)
		}
	})

	t.Run("request ended while accepting", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		f.store.AcceptProposalFunc = func(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
			return repository.ErrRequestEnded
		}

		_, err := f.service(nil).Accept(ctx, f.customer, f.proposal.ID)
		assert.ErrorIs(t, err, ErrRequestNotQuotable)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("admin withdraws", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		p, err := f.service(nil).Withdraw(ctx, f.proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalWithdrawn, p.Status)
	})
}

func TestProposalService_Visibility(t *testing.T) {
	ctx := context.Background()

	t.Run("drafts are hidden from the requester", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		_, err := f.service(nil).Get(ctx, f.customer, f.proposal.ID)
		assert.ErrorIs(t, err, ErrProposalNotFound)

		_, err = f.service(nil).Get(ctx, f.admin, f.proposal.ID)
		assert.NoError(t, err)
	})

	t.Run("list filters for the requester", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalDraft)
		var onlyVisible []bool
		f.store.ListProposalsByRequestFunc = func(ctx context.Context, requestID uuid.UUID, visible bool) ([]domain.Proposal, error) {
			onlyVisible = append(onlyVisible, visible)
			return nil, nil
		}
		svc := f.service(nil)

		_, err := svc.ListForRequest(ctx, f.customer, f.request.ID)
		require.NoError(t, err)
		_, err = svc.ListForRequest(ctx, f.admin, f.request.ID)
		require.NoError(t, err)
		_, err = svc.ListForRequest(ctx, f.stranger, f.request.ID)
		assert.ErrorIs(t, err, ErrRequestNotFound)

		assert.Equal(t, []bool{true, false}, onlyVisible)
	})
}

func TestProposalService_Invoice(t *testing.T) {
	ctx := context.Background()

	t.Run("html for accepted proposals", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalAccepted)
		html, err := f.service(nil).InvoiceHTML(ctx, f.customer, f.proposal.ID)
		require.NoError(t, err)
		assert.Contains(t, string(html), "Brass lamp")
		assert.Contains(t, string(html), "Ana")
	})

	t.Run("not accepted", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		_, err := f.service(nil).InvoiceHTML(ctx, f.customer, f.proposal.ID)
		assert.ErrorIs(t, err, ErrProposalNotAccepted)
	})

	t.Run("pdf disabled", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalAccepted)
		_, _, err := f.service(nil).InvoicePDF(ctx, f.customer, f.proposal.ID)
		assert.ErrorIs(t, err, ErrPDFDisabled)
		assert.Equal(t, domain.ENOTIMPL, domain.ErrorCode(err))
	})

	t.Run("pdf rendered from invoice html", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalAccepted)
		pdf := &fakePDF{}
		data, name, err := f.service(pdf).InvoicePDF(ctx, f.customer, f.proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7 fake", string(data))
		assert.NotEmpty(t, name)
		assert.Contains(t, string(pdf.html), "Brass lamp")
	})

	t.Run("renderer failure is internal", func(t *testing.T) {
		f := newProposalFixture(domain.ProposalSent)
		pdf := &fakePDF{err: errors.New("chrome crashed")}
		_, _, err := f.service(pdf).ProposalPDF(ctx, f.proposal.ID)
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	})
}
