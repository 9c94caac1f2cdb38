package email

import "time"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// WishListInvitationEmail invites someone to collaborate on a wish list.
type WishListInvitationEmail struct {
	Email        string
	InviterName  string
	WishListName string
	Role         string
	AcceptURL    string
	ExpiresAt    time.Time
}

func (e WishListInvitationEmail) Subject() string {
	return e.InviterName + " shared a wish list with you"
}

func (e WishListInvitationEmail) TemplateName() string {
	return "wishlist_invitation.html"
}

// ProposalSentEmail tells a requester that a proposal answers their request.
type ProposalSentEmail struct {
	Email         string
	CustomerName  string
	RequestTitle  string
	Items         []ProposalLine
	TotalCents    int64
	Note          string
	ValidUntil    *time.Time
	ProposalURL   string
	InvoicePDF    []byte // optional attachment
	InvoiceNumber string
}

// ProposalLine is one row of the proposal table.
type ProposalLine struct {
	Description string
	Quantity    int
	UnitCents   int64
	TotalCents  int64
}

func (e ProposalSentEmail) Subject() string {
	return "New proposal for \"" + e.RequestTitle + "\""
}

func (e ProposalSentEmail) TemplateName() string {
	return "proposal_sent.html"
}
