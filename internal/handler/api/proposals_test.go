package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/service"
)

var proposalID = uuid.MustParse("5e6f7a8b-9c0d-4e1f-a2b3-c4d5e6f7a8b9")

func TestProposalHandler_Create(t *testing.T) {
	requestID := uuid.MustParse("2f3e4d5c-6b7a-4988-a7b6-c5d4e3f2a1b0")

	t.Run("passes items through", func(t *testing.T) {
		var got service.ProposalInput
		proposals := &mockProposalService{
			createFunc: func(ctx context.Context, author *domain.User, rid uuid.UUID, in service.ProposalInput) (*domain.Proposal, error) {
				assert.Equal(t, admin.ID, author.ID)
				assert.Equal(t, requestID, rid)
				got = in
				return &domain.Proposal{ID: proposalID, RequestID: rid, Status: domain.ProposalDraft}, nil
			},
		}
		h := NewProposalHandler(proposals)

		body := `{"items":[{"description":"Custom engraving","quantity":3,"unit_price":2500}],"note":"Ships in two weeks"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/admin/requests/"+requestID.String()+"/proposals", strings.NewReader(body)), admin)
		req.SetPathValue("id", requestID.String())
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 3, got.Items[0].Quantity)
		assert.Equal(t, int64(2500), got.Items[0].UnitPrice)
		assert.Nil(t, got.Items[0].VersionID)
		assert.Equal(t, "Ships in two weeks", got.Note)
	})

	t.Run("rejects empty items", func(t *testing.T) {
		h := NewProposalHandler(&mockProposalService{})

		req := asUser(httptest.NewRequest(http.MethodPost, "/api/admin/requests/x/proposals", strings.NewReader(`{"items":[]}`)), admin)
		req.SetPathValue("id", requestID.String())
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		_, fields := decodeError(t, rec.Body)
		assert.Contains(t, fields, "items")
	})

	t.Run("rejects zero quantity line", func(t *testing.T) {
		h := NewProposalHandler(&mockProposalService{})

		req := asUser(httptest.NewRequest(http.MethodPost, "/api/admin/requests/x/proposals",
			strings.NewReader(`{"items":[{"description":"Box","quantity":0,"unit_price":100}]}`)), admin)
		req.SetPathValue("id", requestID.String())
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		_, fields := decodeError(t, rec.Body)
		assert.Contains(t, fields, "items[0].quantity")
	})
}

func TestProposalHandler_Accept(t *testing.T) {
	proposals := &mockProposalService{
		acceptFunc: func(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error) {
			assert.Equal(t, customer.ID, requester.ID)
			assert.Equal(t, proposalID, id)
			return &domain.Proposal{ID: id, Status: domain.ProposalAccepted}, nil
		},
	}
	h := NewProposalHandler(proposals)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/proposals/"+proposalID.String()+"/accept", nil), customer)
	req.SetPathValue("id", proposalID.String())
	rec := httptest.NewRecorder()
	h.Accept(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"accepted"`)
}

func TestProposalHandler_AcceptExpired(t *testing.T) {
	proposals := &mockProposalService{
		acceptFunc: func(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error) {
			return nil, service.ErrProposalExpired
		},
	}
	h := NewProposalHandler(proposals)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/proposals/"+proposalID.String()+"/accept", nil), customer)
	req.SetPathValue("id", proposalID.String())
	rec := httptest.NewRecorder()
	h.Accept(rec, req)

	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestProposalHandler_Invoice(t *testing.T) {
	proposals := &mockProposalService{
		invoiceHTMLFunc: func(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, error) {
			assert.Equal(t, customer.ID, viewer.ID)
			return []byte("<h1>Invoice P-0042</h1>"), nil
		},
		invoicePDFFunc: func(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, string, error) {
			return []byte("%PDF-1.7"), "P-0042.pdf", nil
		},
	}
	h := NewProposalHandler(proposals)

	t.Run("html", func(t *testing.T) {
		req := asUser(httptest.NewRequest(http.MethodGet, "/api/proposals/"+proposalID.String()+"/invoice", nil), customer)
		req.SetPathValue("id", proposalID.String())
		rec := httptest.NewRecorder()
		h.Invoice(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "<h1>Invoice P-0042</h1>", rec.Body.String())
	})

	t.Run("pdf", func(t *testing.T) {
		req := asUser(httptest.NewRequest(http.MethodGet, "/api/proposals/"+proposalID.String()+"/invoice?format=pdf", nil), customer)
		req.SetPathValue("id", proposalID.String())
		rec := httptest.NewRecorder()
		h.Invoice(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="P-0042.pdf"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.7", rec.Body.String())
	})
}

func TestProposalHandler_InvoiceNotAccepted(t *testing.T) {
	proposals := &mockProposalService{
		invoiceHTMLFunc: func(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, error) {
			return nil, service.ErrProposalNotAccepted
		},
	}
	h := NewProposalHandler(proposals)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/proposals/"+proposalID.String()+"/invoice", nil), customer)
	req.SetPathValue("id", proposalID.String())
	rec := httptest.NewRecorder()
	h.Invoice(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := decodeError(t, rec.Body)
	assert.Equal(t, domain.EINVALID, code)
}
