package domain

import (
	"time"

	"github.com/google/uuid"
)

// Brand groups products by manufacturer.
type Brand struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category is a node in the catalog tree.
type Category struct {
	ID        uuid.UUID   `json:"id"`
	ParentID  *uuid.UUID  `json:"parent_id,omitempty"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	ImageURL  string      `json:"image_url,omitempty"`
	SortOrder int         `json:"sort_order"`
	Active    bool        `json:"active"`
	Children  []*Category `json:"children,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Attribute is a variation axis such as "Color" or "Size".
type Attribute struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	Options   []AttributeOption `json:"options"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// AttributeOption is one value of an attribute.
type AttributeOption struct {
	ID          uuid.UUID `json:"id"`
	AttributeID uuid.UUID `json:"attribute_id"`
	Value       string    `json:"value"`
	Slug        string    `json:"slug"`
	SortOrder   int       `json:"sort_order"`
}

// Option returns the option with the given id, if it belongs to the attribute.
func (a *Attribute) Option(id uuid.UUID) (AttributeOption, bool) {
	for _, o := range a.Options {
		if o.ID == id {
			return o, true
		}
	}
	return AttributeOption{}, false
}
