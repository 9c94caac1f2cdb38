// Package invoice renders accepted proposals as printable invoices, as HTML
// and optionally as PDF through headless Chrome.
package invoice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var invoiceTemplate = template.Must(template.New("invoice.html").
	Funcs(template.FuncMap{"money": Money}).
	ParseFS(templateFS, "templates/invoice.html"))

// Document is everything printed on an invoice.
type Document struct {
	Number       string
	IssuedAt     time.Time
	ValidUntil   *time.Time
	CustomerName string
	CustomerMail string
	RequestTitle string
	Note         string
	Currency     string
	Lines        []Line
	Total        int64
}

// Line is one invoice row.
type Line struct {
	Description string
	Quantity    int
	UnitPrice   int64
	Total       int64
}

// Number derives a stable invoice number from a proposal id.
func Number(proposalID fmt.Stringer) string {
	id := strings.ReplaceAll(proposalID.String(), "-", "")
	if len(id) > 10 {
		id = id[:10]
	}
	return "INV-" + strings.ToUpper(id)
}

// FromProposal builds the document for p, answering req, addressed to
// customer.
func FromProposal(p *domain.Proposal, req *domain.Request, customer *domain.User, currency string) Document {
	doc := Document{
		Number:       Number(p.ID),
		IssuedAt:     p.CreatedAt,
		ValidUntil:   p.ValidUntil,
		RequestTitle: req.Title,
		Note:         p.Note,
		Currency:     currency,
		Total:        p.Total(),
	}
	if p.RespondedAt != nil {
		doc.IssuedAt = *p.RespondedAt
	}
	if customer != nil {
		doc.CustomerName = customer.Name
		doc.CustomerMail = customer.Email
	}
	for _, it := range p.Items {
		doc.Lines = append(doc.Lines, Line{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.LineTotal(),
		})
	}
	return doc
}

// RenderHTML writes doc as a standalone HTML page.
func RenderHTML(w io.Writer, doc Document) error {
	if err := invoiceTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render invoice %s: %w", doc.Number, err)
	}
	return nil
}

// HTML returns doc rendered to a byte slice.
func HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Money formats cents with two decimals.
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
