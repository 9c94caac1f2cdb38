package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service renders templates and hands messages to a Sender.
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string
	templates   map[string]*template.Template
}

// NewService parses the embedded templates. Each body template is paired
// with the shared layout.
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	funcs := template.FuncMap{"cents": formatCents}

	bodies, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read email templates: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, f := range bodies {
		if f.Name() == "layout.html" {
			continue
		}
		tmpl, err := template.New(f.Name()).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+f.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", f.Name(), err)
		}
		templates[f.Name()] = tmpl
	}

	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		templates:   templates,
	}, nil
}

// SendWishListInvitation emails the invitee a link to accept.
func (s *Service) SendWishListInvitation(ctx context.Context, data WishListInvitationEmail) error {
	if err := s.send(ctx, data.Email, data, nil); err != nil {
		return fmt.Errorf("failed to send wish list invitation: %w", err)
	}
	return nil
}

// SendProposalSent emails the requester the proposal summary, attaching the
// invoice PDF when one was rendered.
func (s *Service) SendProposalSent(ctx context.Context, data ProposalSentEmail) error {
	var attachments []Attachment
	if len(data.InvoicePDF) > 0 {
		attachments = append(attachments, Attachment{
			Filename:    "proposal-" + data.InvoiceNumber + ".pdf",
			ContentType: "application/pdf",
			Content:     data.InvoicePDF,
		})
	}
	if err := s.send(ctx, data.Email, data, attachments); err != nil {
		return fmt.Errorf("failed to send proposal email: %w", err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to string, data EmailTemplate, attachments []Attachment) error {
	htmlBody, textBody, err := s.renderTemplate(data.TemplateName(), data)
	if err != nil {
		return err
	}

	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	_, err = s.sender.Send(ctx, &Email{
		To:          []string{to},
		From:        from,
		Subject:     data.Subject(),
		HTMLBody:    htmlBody,
		TextBody:    textBody,
		Attachments: attachments,
	})
	return err
}

func (s *Service) renderTemplate(templateName string, data any) (string, string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", "", ErrTemplateNotFound(templateName)
	}

	var htmlBuf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&htmlBuf, "email_layout", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := htmlBuf.String()
	return htmlBody, generatePlainText(htmlBody), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(html string) string {
	text := html

	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n\n")
	text = strings.ReplaceAll(text, "</div>", "\n")
	text = strings.ReplaceAll(text, "</h1>", "\n\n")
	text = strings.ReplaceAll(text, "</h2>", "\n\n")
	text = strings.ReplaceAll(text, "</h3>", "\n\n")

	for strings.Contains(text, "<") && strings.Contains(text, ">") {
		start := strings.Index(text, "<")
		end := strings.Index(text, ">")
		if start >= 0 && end > start {
			text = text[:start] + text[end+1:]
		} else {
			break
		}
	}

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
