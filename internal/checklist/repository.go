package checklist

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

// Error types for repository operations.
var (
	ErrChecklistNotFound = errors.New("checklist not found")
	ErrItemNotFound      = errors.New("checklist item not found")
)

// Repository handles checklist storage operations.
type Repository struct {
	store *store.Client
}

// NewRepository creates a new Repository.
func NewRepository(s *store.Client) *Repository {
	return &Repository{store: s}
}

// CreateChecklist stores a new checklist header row.
func (r *Repository) CreateChecklist(ctx context.Context, c *Checklist) error {
	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: c.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: c.SK()},
		dynamo.AttrGSI1PK:     &types.AttributeValueMemberS{Value: c.GSI1PK()},
		dynamo.AttrGSI1SK:     &types.AttributeValueMemberS{Value: c.GSI1SK()},
		dynamo.AttrGSI2PK:     &types.AttributeValueMemberS{Value: c.GSI2PK()},
		dynamo.AttrGSI2SK:     &types.AttributeValueMemberS{Value: c.GSI2SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityTypeChecklist},
		AttrChecklistID:       &types.AttributeValueMemberS{Value: c.ChecklistID},
		AttrOrgID:             &types.AttributeValueMemberS{Value: c.OrgID},
		AttrTitle:             &types.AttributeValueMemberS{Value: c.Title},
		AttrStatus:            &types.AttributeValueMemberS{Value: c.Status},
		AttrCreatedBy:         &types.AttributeValueMemberS{Value: c.CreatedBy},
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: c.CreatedAt.UTC().Format(time.RFC3339)},
		dynamo.AttrUpdatedAt:  &types.AttributeValueMemberS{Value: c.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	putOptionalS(item, AttrTemplateID, c.TemplateID)
	putOptionalS(item, AttrCategoryID, c.CategoryID)
	putOptionalS(item, AttrDescription, c.Description)
	putOptionalS(item, AttrAssigneeID, c.AssigneeID)
	putOptionalS(item, AttrTeamID, c.TeamID)
	putOptionalS(item, AttrStartDate, c.StartDate)
	putOptionalS(item, AttrEndDate, c.EndDate)
	putOptionalS(item, AttrDueDate, c.DueDate)
	putOptionalS(item, AttrRecurrence, c.Recurrence)
	putOptionalS(item, AttrNextRecurrenceDate, c.NextRecurrenceDate)
	if len(c.OwnerIDs) > 0 {
		item[AttrOwnerIDs] = marshalStringList(c.OwnerIDs)
	}
	return r.store.Put(ctx, item)
}

// GetChecklist retrieves a checklist header by org and checklist ID.
func (r *Repository) GetChecklist(ctx context.Context, orgID, checklistID string) (*Checklist, error) {
	c := &Checklist{OrgID: orgID, ChecklistID: checklistID}
	item, err := r.store.Get(ctx, c.PK(), c.SK())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrChecklistNotFound
	}
	return unmarshalChecklist(item), nil
}

// ListByOrg returns one page of an organization's checklists.
func (r *Repository) ListByOrg(ctx context.Context, orgID string, limit int32, cursor string) ([]*Checklist, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixOrg+orgID, dynamo.PrefixChecklist, store.Options{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", err
	}
	return unmarshalChecklistPage(page)
}

// ListByAssignee returns one page of checklists assigned to a user,
// via the assignment index. Results may span organizations; callers
// scope them to the caller's org.
func (r *Repository) ListByAssignee(ctx context.Context, assigneeID string, limit int32, cursor string) ([]*Checklist, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixAssignee+assigneeID, dynamo.PrefixChecklist, store.Options{
		Limit:  limit,
		Cursor: cursor,
		Index:  dynamo.IndexGSI1,
	})
	if err != nil {
		return nil, "", err
	}
	return unmarshalChecklistPage(page)
}

// ListByStatus returns one page of an organization's checklists in the
// given status, ordered by due date via the status index.
func (r *Repository) ListByStatus(ctx context.Context, orgID, status string, limit int32, cursor string) ([]*Checklist, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixOrg+orgID+dynamo.SuffixStatus, status+"#", store.Options{
		Limit:  limit,
		Cursor: cursor,
		Index:  dynamo.IndexGSI2,
	})
	if err != nil {
		return nil, "", err
	}
	return unmarshalChecklistPage(page)
}

// UpdateChecklistFields applies a sparse update to a checklist header
// and stamps updatedAt. Key projections (GSI attributes) are the
// caller's responsibility; the workflow recomputes them whenever
// status, due date, or assignee change.
func (r *Repository) UpdateChecklistFields(ctx context.Context, orgID, checklistID string, fields store.Item) error {
	c := &Checklist{OrgID: orgID, ChecklistID: checklistID}
	withStamp := make(store.Item, len(fields)+1)
	for k, v := range fields {
		withStamp[k] = v
	}
	withStamp[dynamo.AttrUpdatedAt] = store.S(time.Now().UTC().Format(time.RFC3339))
	return r.store.UpdatePartial(ctx, c.PK(), c.SK(), withStamp)
}

// DeleteChecklist removes a checklist header row only. Use the
// workflow's Delete for the full cascade.
func (r *Repository) DeleteChecklist(ctx context.Context, orgID, checklistID string) error {
	c := &Checklist{OrgID: orgID, ChecklistID: checklistID}
	return r.store.Delete(ctx, c.PK(), c.SK())
}

// CreateItem stores a new checklist item row.
func (r *Repository) CreateItem(ctx context.Context, i *ChecklistItem) error {
	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: i.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: i.SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityTypeItem},
		AttrItemID:            &types.AttributeValueMemberS{Value: i.ItemID},
		AttrChecklistID:       &types.AttributeValueMemberS{Value: i.ChecklistID},
		AttrTitle:             &types.AttributeValueMemberS{Value: i.Title},
		AttrStatus:            &types.AttributeValueMemberS{Value: i.Status},
		AttrSortOrder:         &types.AttributeValueMemberN{Value: strconv.Itoa(i.SortOrder)},
		AttrRequired:          &types.AttributeValueMemberBOOL{Value: i.Required},
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: i.CreatedAt.UTC().Format(time.RFC3339)},
	}
	putOptionalS(item, AttrDescription, i.Description)
	putOptionalS(item, AttrMediaURL, i.MediaURL)
	putOptionalS(item, AttrMediaType, i.MediaType)
	return r.store.Put(ctx, item)
}

// ListItems returns every item row of a checklist, in sort key order.
// Checklists are small enough that children are not paginated.
func (r *Repository) ListItems(ctx context.Context, checklistID string) ([]*ChecklistItem, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixChecklist+checklistID, dynamo.PrefixItem, store.Options{})
	if err != nil {
		return nil, err
	}
	items := make([]*ChecklistItem, len(page.Items))
	for i, item := range page.Items {
		items[i] = unmarshalChecklistItem(item)
	}
	return items, nil
}

// UpdateItemFields applies a sparse update to one item row, addressed
// by its sort order.
func (r *Repository) UpdateItemFields(ctx context.Context, checklistID string, sortOrder int, fields store.Item) error {
	i := &ChecklistItem{ChecklistID: checklistID, SortOrder: sortOrder}
	return r.store.UpdatePartial(ctx, i.PK(), i.SK(), fields)
}

// DeleteItem removes one item row.
func (r *Repository) DeleteItem(ctx context.Context, checklistID string, sortOrder int) error {
	i := &ChecklistItem{ChecklistID: checklistID, SortOrder: sortOrder}
	return r.store.Delete(ctx, i.PK(), i.SK())
}

// CreateApproval stores an approver's slot. Keyed by approver, so
// resubmitting to the same approver resets their slot.
func (r *Repository) CreateApproval(ctx context.Context, a *ApprovalItem) error {
	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: a.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: a.SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityTypeApproval},
		AttrApprovalID:        &types.AttributeValueMemberS{Value: a.ApprovalID},
		AttrChecklistID:       &types.AttributeValueMemberS{Value: a.ChecklistID},
		AttrApproverID:        &types.AttributeValueMemberS{Value: a.ApproverID},
		AttrDecision:          &types.AttributeValueMemberS{Value: a.Decision},
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: a.CreatedAt.UTC().Format(time.RFC3339)},
	}
	return r.store.Put(ctx, item)
}

// GetApproval retrieves one approver's slot, or nil when the user is
// not an approver of the checklist.
func (r *Repository) GetApproval(ctx context.Context, checklistID, approverID string) (*ApprovalItem, error) {
	a := &ApprovalItem{ChecklistID: checklistID, ApproverID: approverID}
	item, err := r.store.Get(ctx, a.PK(), a.SK())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return unmarshalApprovalItem(item), nil
}

// ListApprovals returns every approval row of a checklist.
func (r *Repository) ListApprovals(ctx context.Context, checklistID string) ([]*ApprovalItem, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixChecklist+checklistID, dynamo.PrefixApproval, store.Options{})
	if err != nil {
		return nil, err
	}
	approvals := make([]*ApprovalItem, len(page.Items))
	for i, item := range page.Items {
		approvals[i] = unmarshalApprovalItem(item)
	}
	return approvals, nil
}

// UpdateApprovalFields applies a sparse update to one approver's slot.
func (r *Repository) UpdateApprovalFields(ctx context.Context, checklistID, approverID string, fields store.Item) error {
	a := &ApprovalItem{ChecklistID: checklistID, ApproverID: approverID}
	return r.store.UpdatePartial(ctx, a.PK(), a.SK(), fields)
}

// DeleteApproval removes one approval row.
func (r *Repository) DeleteApproval(ctx context.Context, checklistID, approverID string) error {
	a := &ApprovalItem{ChecklistID: checklistID, ApproverID: approverID}
	return r.store.Delete(ctx, a.PK(), a.SK())
}

func putOptionalS(item store.Item, attr, value string) {
	if value != "" {
		item[attr] = &types.AttributeValueMemberS{Value: value}
	}
}

func marshalStringList(values []string) types.AttributeValue {
	list := make([]types.AttributeValue, len(values))
	for i, v := range values {
		list[i] = &types.AttributeValueMemberS{Value: v}
	}
	return &types.AttributeValueMemberL{Value: list}
}

func unmarshalStringList(av types.AttributeValue) []string {
	l, ok := av.(*types.AttributeValueMemberL)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(l.Value))
	for _, entry := range l.Value {
		if s, ok := entry.(*types.AttributeValueMemberS); ok {
			values = append(values, s.Value)
		}
	}
	return values
}

func unmarshalChecklistPage(page *store.Page) ([]*Checklist, string, error) {
	checklists := make([]*Checklist, len(page.Items))
	for i, item := range page.Items {
		checklists[i] = unmarshalChecklist(item)
	}
	return checklists, page.NextCursor, nil
}

func getS(item store.Item, attr string) string {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func getTime(item store.Item, attr string) time.Time {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339, v.Value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func unmarshalChecklist(item store.Item) *Checklist {
	c := &Checklist{
		ChecklistID:        getS(item, AttrChecklistID),
		OrgID:              getS(item, AttrOrgID),
		TemplateID:         getS(item, AttrTemplateID),
		CategoryID:         getS(item, AttrCategoryID),
		Title:              getS(item, AttrTitle),
		Description:        getS(item, AttrDescription),
		Status:             getS(item, AttrStatus),
		AssigneeID:         getS(item, AttrAssigneeID),
		TeamID:             getS(item, AttrTeamID),
		StartDate:          getS(item, AttrStartDate),
		EndDate:            getS(item, AttrEndDate),
		DueDate:            getS(item, AttrDueDate),
		Recurrence:         getS(item, AttrRecurrence),
		NextRecurrenceDate: getS(item, AttrNextRecurrenceDate),
		CreatedBy:          getS(item, AttrCreatedBy),
		CompletedAt:        getTime(item, AttrCompletedAt),
		CreatedAt:          getTime(item, dynamo.AttrCreatedAt),
		UpdatedAt:          getTime(item, dynamo.AttrUpdatedAt),
	}
	if v, ok := item[AttrOwnerIDs]; ok {
		c.OwnerIDs = unmarshalStringList(v)
	}
	return c
}

func unmarshalChecklistItem(item store.Item) *ChecklistItem {
	i := &ChecklistItem{
		ItemID:        getS(item, AttrItemID),
		ChecklistID:   getS(item, AttrChecklistID),
		Title:         getS(item, AttrTitle),
		Description:   getS(item, AttrDescription),
		Status:        getS(item, AttrStatus),
		DeviationNote: getS(item, AttrDeviationNote),
		MediaURL:      getS(item, AttrMediaURL),
		MediaType:     getS(item, AttrMediaType),
		CompletedBy:   getS(item, AttrCompletedBy),
		CompletedAt:   getTime(item, AttrCompletedAt),
		CreatedAt:     getTime(item, dynamo.AttrCreatedAt),
	}
	if v, ok := item[AttrSortOrder].(*types.AttributeValueMemberN); ok {
		if n, err := strconv.Atoi(v.Value); err == nil {
			i.SortOrder = n
		}
	}
	if v, ok := item[AttrRequired].(*types.AttributeValueMemberBOOL); ok {
		i.Required = v.Value
	}
	if v, ok := item[AttrHasDeviation].(*types.AttributeValueMemberBOOL); ok {
		i.HasDeviation = v.Value
	}
	if v, ok := item[AttrAttachments].(*types.AttributeValueMemberL); ok {
		i.Attachments = unmarshalAttachments(v.Value)
	}
	return i
}

func unmarshalApprovalItem(item store.Item) *ApprovalItem {
	return &ApprovalItem{
		ApprovalID:  getS(item, AttrApprovalID),
		ChecklistID: getS(item, AttrChecklistID),
		ApproverID:  getS(item, AttrApproverID),
		Decision:    getS(item, AttrDecision),
		Comment:     getS(item, AttrComment),
		DecidedAt:   getTime(item, AttrDecidedAt),
		CreatedAt:   getTime(item, dynamo.AttrCreatedAt),
	}
}
