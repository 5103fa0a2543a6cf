package checklist

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
	"github.com/checklists-vnext/checklist-service/internal/identity"
	"github.com/checklists-vnext/checklist-service/internal/store"
	"github.com/checklists-vnext/checklist-service/internal/template"
)

// Workflow errors.
var (
	// ErrNotApprover is returned when a user records a decision on a
	// checklist they were not asked to approve.
	ErrNotApprover = errors.New("user is not an approver of this checklist")

	// ErrNoApprovers is returned when a checklist is submitted without
	// any approvers.
	ErrNoApprovers = errors.New("submission requires at least one approver")
)

// Workflow drives checklist lifecycle operations on top of the
// repository. It owns every key projection rewrite: whenever status,
// due date, or assignee change, the corresponding index attributes are
// rewritten in the same update.
type Workflow struct {
	repo      *Repository
	templates *template.Repository
	newID     func() string
	now       func() time.Time
}

// NewWorkflow creates a Workflow.
func NewWorkflow(repo *Repository, templates *template.Repository) *Workflow {
	return &Workflow{
		repo:      repo,
		templates: templates,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// CreateParams carries the fields of a new checklist.
type CreateParams struct {
	TemplateID  string
	CategoryID  string
	Title       string
	Description string
	AssigneeID  string
	OwnerIDs    []string
	TeamID      string
	StartDate   string
	EndDate     string
	DueDate     string
	Recurrence  string
}

// Create stores a new draft checklist. When a template id is given and
// the template exists, its items are copied onto the checklist as
// pending item rows; a dangling template id yields an empty checklist
// rather than an error.
func (w *Workflow) Create(ctx context.Context, caller identity.Caller, p CreateParams) (*Checklist, error) {
	now := w.now().UTC()
	c := &Checklist{
		ChecklistID: w.newID(),
		OrgID:       caller.OrgID,
		TemplateID:  p.TemplateID,
		CategoryID:  p.CategoryID,
		Title:       p.Title,
		Description: p.Description,
		Status:      StatusDraft,
		AssigneeID:  p.AssigneeID,
		OwnerIDs:    p.OwnerIDs,
		TeamID:      p.TeamID,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		DueDate:     p.DueDate,
		Recurrence:  p.Recurrence,
		CreatedBy:   caller.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var copied []template.Item
	if p.TemplateID != "" {
		t, err := w.templates.Get(ctx, caller.OrgID, p.TemplateID)
		if err != nil && !errors.Is(err, template.ErrTemplateNotFound) {
			return nil, err
		}
		if t != nil {
			copied = t.Items
		}
	}

	if err := w.repo.CreateChecklist(ctx, c); err != nil {
		return nil, err
	}
	for _, ti := range copied {
		item := &ChecklistItem{
			ItemID:      w.newID(),
			ChecklistID: c.ChecklistID,
			Title:       ti.Title,
			Description: ti.Description,
			Status:      ItemStatusPending,
			SortOrder:   ti.SortOrder,
			Required:    ti.Required,
			MediaURL:    ti.MediaURL,
			MediaType:   ti.MediaType,
			CreatedAt:   now,
		}
		if err := w.repo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Detail is a checklist with its children resolved.
type Detail struct {
	Checklist *Checklist
	Items     []*ChecklistItem
	Approvals []*ApprovalItem
}

// Get returns a checklist with its items and approvals.
func (w *Workflow) Get(ctx context.Context, caller identity.Caller, checklistID string) (*Detail, error) {
	c, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID)
	if err != nil {
		return nil, err
	}
	items, err := w.repo.ListItems(ctx, checklistID)
	if err != nil {
		return nil, err
	}
	approvals, err := w.repo.ListApprovals(ctx, checklistID)
	if err != nil {
		return nil, err
	}
	return &Detail{Checklist: c, Items: items, Approvals: approvals}, nil
}

// UpdateParams carries a sparse checklist update. A nil pointer leaves
// the field alone; a pointer to the empty string clears it.
type UpdateParams struct {
	Title              *string
	Description        *string
	Status             *string
	CategoryID         *string
	AssigneeID         *string
	OwnerIDs           *[]string
	TeamID             *string
	StartDate          *string
	EndDate            *string
	DueDate            *string
	Recurrence         *string
	NextRecurrenceDate *string
}

// Update applies a sparse update to a checklist header. Status and due
// date changes rewrite the status index sort key; assignee changes
// rewrite the assignment partition key, falling back to the org
// partition when the checklist becomes unassigned.
func (w *Workflow) Update(ctx context.Context, caller identity.Caller, checklistID string, p UpdateParams) (*Checklist, error) {
	existing, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID)
	if err != nil {
		return nil, err
	}

	fields := store.Item{}
	setField(fields, AttrTitle, p.Title)
	setField(fields, AttrDescription, p.Description)
	setField(fields, AttrStatus, p.Status)
	setField(fields, AttrCategoryID, p.CategoryID)
	setField(fields, AttrTeamID, p.TeamID)
	setField(fields, AttrStartDate, p.StartDate)
	setField(fields, AttrEndDate, p.EndDate)
	setField(fields, AttrDueDate, p.DueDate)
	setField(fields, AttrRecurrence, p.Recurrence)
	setField(fields, AttrNextRecurrenceDate, p.NextRecurrenceDate)
	if p.OwnerIDs != nil {
		fields[AttrOwnerIDs] = marshalStringList(*p.OwnerIDs)
		existing.OwnerIDs = *p.OwnerIDs
	}

	applyString(&existing.Title, p.Title)
	applyString(&existing.Description, p.Description)
	applyString(&existing.Status, p.Status)
	applyString(&existing.CategoryID, p.CategoryID)
	applyString(&existing.TeamID, p.TeamID)
	applyString(&existing.StartDate, p.StartDate)
	applyString(&existing.EndDate, p.EndDate)
	applyString(&existing.DueDate, p.DueDate)
	applyString(&existing.Recurrence, p.Recurrence)
	applyString(&existing.NextRecurrenceDate, p.NextRecurrenceDate)

	if p.Status != nil || p.DueDate != nil {
		fields[dynamo.AttrGSI2SK] = store.S(existing.GSI2SK())
	}
	if p.AssigneeID != nil {
		existing.AssigneeID = *p.AssigneeID
		if existing.AssigneeID == "" {
			fields[AttrAssigneeID] = store.Null()
		} else {
			fields[AttrAssigneeID] = store.S(existing.AssigneeID)
		}
		fields[dynamo.AttrGSI1PK] = store.S(existing.GSI1PK())
	}

	if err := w.repo.UpdateChecklistFields(ctx, caller.OrgID, checklistID, fields); err != nil {
		return nil, err
	}
	existing.UpdatedAt = w.now().UTC()
	return existing, nil
}

// ItemParams carries the fields of a new checklist item.
type ItemParams struct {
	Title       string
	Description string
	Required    bool
	MediaURL    string
	MediaType   string
}

// AddItem appends an item to a checklist. The new item takes the next
// sort order after the existing ones.
func (w *Workflow) AddItem(ctx context.Context, caller identity.Caller, checklistID string, p ItemParams) (*ChecklistItem, error) {
	if _, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID); err != nil {
		return nil, err
	}
	existing, err := w.repo.ListItems(ctx, checklistID)
	if err != nil {
		return nil, err
	}
	item := &ChecklistItem{
		ItemID:      w.newID(),
		ChecklistID: checklistID,
		Title:       p.Title,
		Description: p.Description,
		Status:      ItemStatusPending,
		SortOrder:   len(existing),
		Required:    p.Required,
		MediaURL:    p.MediaURL,
		MediaType:   p.MediaType,
		CreatedAt:   w.now().UTC(),
	}
	if err := w.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ItemUpdateParams carries a sparse item update.
type ItemUpdateParams struct {
	Title         *string
	Description   *string
	Status        *string
	HasDeviation  *bool
	DeviationNote *string
}

// UpdateItem applies a sparse update to one item, addressed by its
// stable item id. Completing an item stamps who and when; flagging a
// deviation forces the item status to deviation regardless of any
// status in the same update.
func (w *Workflow) UpdateItem(ctx context.Context, caller identity.Caller, checklistID, itemID string, p ItemUpdateParams) (*ChecklistItem, error) {
	if _, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID); err != nil {
		return nil, err
	}
	item, err := w.findItem(ctx, checklistID, itemID)
	if err != nil {
		return nil, err
	}

	fields := store.Item{}
	setField(fields, AttrTitle, p.Title)
	setField(fields, AttrDescription, p.Description)
	setField(fields, AttrStatus, p.Status)
	setField(fields, AttrDeviationNote, p.DeviationNote)
	applyString(&item.Title, p.Title)
	applyString(&item.Description, p.Description)
	applyString(&item.Status, p.Status)
	applyString(&item.DeviationNote, p.DeviationNote)

	if p.Status != nil && *p.Status == ItemStatusCompleted {
		now := w.now().UTC()
		fields[AttrCompletedBy] = store.S(caller.UserID)
		fields[AttrCompletedAt] = store.S(now.Format(time.RFC3339))
		item.CompletedBy = caller.UserID
		item.CompletedAt = now
	}
	if p.HasDeviation != nil {
		fields[AttrHasDeviation] = &types.AttributeValueMemberBOOL{Value: *p.HasDeviation}
		item.HasDeviation = *p.HasDeviation
		if *p.HasDeviation {
			fields[AttrStatus] = store.S(ItemStatusDeviation)
			item.Status = ItemStatusDeviation
		}
	}

	if err := w.repo.UpdateItemFields(ctx, checklistID, item.SortOrder, fields); err != nil {
		return nil, err
	}
	return item, nil
}

// AttachMedia records a media reference on an item.
func (w *Workflow) AttachMedia(ctx context.Context, caller identity.Caller, checklistID, itemID, mediaURL, mediaType string) error {
	if _, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID); err != nil {
		return err
	}
	item, err := w.findItem(ctx, checklistID, itemID)
	if err != nil {
		return err
	}
	return w.repo.UpdateItemFields(ctx, checklistID, item.SortOrder, store.Item{
		AttrMediaURL:  store.S(mediaURL),
		AttrMediaType: store.S(mediaType),
	})
}

// RegisterAttachment appends an uploaded file's metadata to an item.
func (w *Workflow) RegisterAttachment(ctx context.Context, caller identity.Caller, checklistID, itemID string, a Attachment) (*ChecklistItem, error) {
	if _, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID); err != nil {
		return nil, err
	}
	item, err := w.findItem(ctx, checklistID, itemID)
	if err != nil {
		return nil, err
	}
	item.Attachments = append(item.Attachments, a)
	err = w.repo.UpdateItemFields(ctx, checklistID, item.SortOrder, store.Item{
		AttrAttachments: MarshalAttachments(item.Attachments),
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Complete marks a checklist completed and stamps the completion time.
func (w *Workflow) Complete(ctx context.Context, caller identity.Caller, checklistID string) (*Checklist, error) {
	existing, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID)
	if err != nil {
		return nil, err
	}
	now := w.now().UTC()
	existing.Status = StatusCompleted
	existing.CompletedAt = now
	err = w.repo.UpdateChecklistFields(ctx, caller.OrgID, checklistID, store.Item{
		AttrStatus:        store.S(StatusCompleted),
		AttrCompletedAt:   store.S(now.Format(time.RFC3339)),
		dynamo.AttrGSI2SK: store.S(existing.GSI2SK()),
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Submit sends a checklist for approval. Each named approver gets a
// pending approval slot; an approver carried over from an earlier
// submission has their slot reset.
func (w *Workflow) Submit(ctx context.Context, caller identity.Caller, checklistID string, approverIDs []string) (*Checklist, error) {
	existing, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID)
	if err != nil {
		return nil, err
	}
	if len(approverIDs) == 0 {
		return nil, ErrNoApprovers
	}
	now := w.now().UTC()
	for _, approverID := range approverIDs {
		a := &ApprovalItem{
			ApprovalID:  w.newID(),
			ChecklistID: checklistID,
			ApproverID:  approverID,
			Decision:    DecisionPending,
			CreatedAt:   now,
		}
		if err := w.repo.CreateApproval(ctx, a); err != nil {
			return nil, err
		}
	}
	existing.Status = StatusSubmitted
	err = w.repo.UpdateChecklistFields(ctx, caller.OrgID, checklistID, store.Item{
		AttrStatus:        store.S(StatusSubmitted),
		dynamo.AttrGSI2SK: store.S(existing.GSI2SK()),
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Decide records an approver's decision. Only users holding an
// approval slot may decide; the checklist takes the status of whichever
// decision lands last.
func (w *Workflow) Decide(ctx context.Context, caller identity.Caller, checklistID, decision, comment string) (*Checklist, error) {
	existing, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID)
	if err != nil {
		return nil, err
	}
	slot, err := w.repo.GetApproval(ctx, checklistID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, ErrNotApprover
	}

	now := w.now().UTC()
	approvalFields := store.Item{
		AttrDecision:  store.S(decision),
		AttrDecidedAt: store.S(now.Format(time.RFC3339)),
	}
	if comment != "" {
		approvalFields[AttrComment] = store.S(comment)
	}
	if err := w.repo.UpdateApprovalFields(ctx, checklistID, caller.UserID, approvalFields); err != nil {
		return nil, err
	}

	if decision == DecisionApproved {
		existing.Status = StatusApproved
	} else {
		existing.Status = StatusRejected
	}
	err = w.repo.UpdateChecklistFields(ctx, caller.OrgID, checklistID, store.Item{
		AttrStatus:        store.S(existing.Status),
		dynamo.AttrGSI2SK: store.S(existing.GSI2SK()),
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a checklist and all of its child rows, children
// first, so a failure partway through never leaves orphaned children
// behind a missing header.
func (w *Workflow) Delete(ctx context.Context, caller identity.Caller, checklistID string) error {
	if _, err := w.repo.GetChecklist(ctx, caller.OrgID, checklistID); err != nil {
		return err
	}
	items, err := w.repo.ListItems(ctx, checklistID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := w.repo.DeleteItem(ctx, checklistID, item.SortOrder); err != nil {
			return err
		}
	}
	approvals, err := w.repo.ListApprovals(ctx, checklistID)
	if err != nil {
		return err
	}
	for _, a := range approvals {
		if err := w.repo.DeleteApproval(ctx, checklistID, a.ApproverID); err != nil {
			return err
		}
	}
	return w.repo.DeleteChecklist(ctx, caller.OrgID, checklistID)
}

func (w *Workflow) findItem(ctx context.Context, checklistID, itemID string) (*ChecklistItem, error) {
	items, err := w.repo.ListItems(ctx, checklistID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ItemID == itemID {
			return item, nil
		}
	}
	return nil, ErrItemNotFound
}

// setField adds a sparse update entry for an optional string field.
// Nil leaves the field alone; the empty string clears it.
func setField(fields store.Item, attr string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		fields[attr] = store.Null()
		return
	}
	fields[attr] = store.S(*v)
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
