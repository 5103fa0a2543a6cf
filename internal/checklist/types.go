// Package checklist provides types and operations for checklists, their
// line items, and approval records. A checklist row lives under its
// organization partition; items and approvals live as child rows under a
// CL#{checklistId} partition of their own so a single query fans a
// checklist out to its children.
package checklist

import (
	"time"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
)

// Attachment describes one file uploaded against a checklist item.
// Attachments are embedded on the item row; the bytes live in S3 under
// S3Key.
type Attachment struct {
	AttachmentID string
	FileName     string
	FileSize     int64
	MimeType     string
	S3Key        string
	UploadedBy   string
	UploadedAt   time.Time
}

// ChecklistItem represents one line item of a checklist.
type ChecklistItem struct {
	ItemID        string
	ChecklistID   string
	Title         string
	Description   string
	Status        string
	SortOrder     int
	Required      bool
	HasDeviation  bool
	DeviationNote string
	MediaURL      string
	MediaType     string
	CompletedBy   string
	CompletedAt   time.Time
	Attachments   []Attachment
	CreatedAt     time.Time
}

// PK returns the partition key for this item.
func (i *ChecklistItem) PK() string {
	return dynamo.PrefixChecklist + i.ChecklistID
}

// SK returns the sort key for this item. It encodes the sort order, so
// items come back from a partition query already in display order.
func (i *ChecklistItem) SK() string {
	return ItemSortKey(i.SortOrder)
}

// ApprovalItem represents one approver's slot on a submitted checklist.
type ApprovalItem struct {
	ApprovalID  string
	ChecklistID string
	ApproverID  string
	Decision    string
	Comment     string
	DecidedAt   time.Time
	CreatedAt   time.Time
}

// PK returns the partition key for this approval.
func (a *ApprovalItem) PK() string {
	return dynamo.PrefixChecklist + a.ChecklistID
}

// SK returns the sort key for this approval. Keying by approver gives
// each approver exactly one slot per checklist; resubmission overwrites
// it.
func (a *ApprovalItem) SK() string {
	return dynamo.PrefixApproval + a.ApproverID
}

// Checklist represents a checklist header row.
type Checklist struct {
	ChecklistID        string
	OrgID              string
	TemplateID         string
	CategoryID         string
	Title              string
	Description        string
	Status             string
	AssigneeID         string
	OwnerIDs           []string
	TeamID             string
	StartDate          string
	EndDate            string
	DueDate            string
	Recurrence         string
	NextRecurrenceDate string
	CompletedAt        time.Time
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PK returns the partition key for this checklist.
func (c *Checklist) PK() string {
	return dynamo.PrefixOrg + c.OrgID
}

// SK returns the sort key for this checklist.
func (c *Checklist) SK() string {
	return dynamo.PrefixChecklist + c.ChecklistID
}

// GSI1PK returns the assignment partition key. Unassigned checklists
// fall back to the org partition so they stay reachable from GSI1.
func (c *Checklist) GSI1PK() string {
	if c.AssigneeID != "" {
		return dynamo.PrefixAssignee + c.AssigneeID
	}
	return dynamo.PrefixOrg + c.OrgID
}

// GSI1SK returns the assignment sort key.
func (c *Checklist) GSI1SK() string {
	return dynamo.PrefixChecklist + c.ChecklistID
}

// GSI2PK returns the status index partition key.
func (c *Checklist) GSI2PK() string {
	return dynamo.PrefixOrg + c.OrgID + dynamo.SuffixStatus
}

// GSI2SK returns the status index sort key.
func (c *Checklist) GSI2SK() string {
	return StatusSortKey(c.Status, c.DueDate, c.ChecklistID)
}

// StatusSortKey builds the composite GSI2 sort key. Checklists without
// a due date sort after dated ones under the same status via the
// far-future sentinel.
func StatusSortKey(status, dueDate, checklistID string) string {
	if dueDate == "" {
		dueDate = dynamo.NoDueDate
	}
	return status + "#" + dueDate + "#" + checklistID
}
