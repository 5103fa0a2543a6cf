// Package template provides types and operations for checklist
// templates. A template's items live as an embedded list on the template
// row itself; they only become rows of their own when a checklist is
// instantiated from the template.
package template

import (
	"time"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
)

// Item is one line of a template.
type Item struct {
	ItemID      string
	Title       string
	Description string
	SortOrder   int
	Required    bool
	MediaURL    string
	MediaType   string
}

// TemplateItem represents a checklist template.
type TemplateItem struct {
	TemplateID  string
	OrgID       string
	Title       string
	Description string
	Items       []Item
	Recurrence  string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PK returns the partition key for this template.
func (t *TemplateItem) PK() string {
	return dynamo.PrefixOrg + t.OrgID
}

// SK returns the sort key for this template.
func (t *TemplateItem) SK() string {
	return dynamo.PrefixTemplate + t.TemplateID
}

// BuildItems assigns ids and dense sort orders to a list of draft items,
// in input order.
func BuildItems(drafts []Item, newID func() string) []Item {
	items := make([]Item, len(drafts))
	for i, d := range drafts {
		d.ItemID = newID()
		d.SortOrder = i
		items[i] = d
	}
	return items
}
