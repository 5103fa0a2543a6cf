package member

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

// Error types for repository operations.
var (
	ErrMemberNotFound = errors.New("member not found")
)

// Repository handles membership storage operations.
type Repository struct {
	store *store.Client
}

// NewRepository creates a new Repository.
func NewRepository(s *store.Client) *Repository {
	return &Repository{store: s}
}

// Create stores a new membership row.
func (r *Repository) Create(ctx context.Context, m *MemberItem) error {
	return r.store.Put(ctx, marshalMemberItem(m))
}

// Get retrieves a membership by org and user ID.
func (r *Repository) Get(ctx context.Context, orgID, userID string) (*MemberItem, error) {
	m := &MemberItem{OrgID: orgID, UserID: userID}
	item, err := r.store.Get(ctx, m.PK(), m.SK())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrMemberNotFound
	}
	return unmarshalMemberItem(item), nil
}

// List returns one page of an organization's members.
func (r *Repository) List(ctx context.Context, orgID string, limit int32, cursor string) ([]*MemberItem, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixOrg+orgID, dynamo.PrefixUser, store.Options{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", err
	}
	members := make([]*MemberItem, len(page.Items))
	for i, item := range page.Items {
		members[i] = unmarshalMemberItem(item)
	}
	return members, page.NextCursor, nil
}

// ListOrgsByUser returns the memberships a user holds across
// organizations, via the user-keyed index.
func (r *Repository) ListOrgsByUser(ctx context.Context, userID string) ([]*MemberItem, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixUser+userID, dynamo.PrefixOrg, store.Options{
		Index: dynamo.IndexGSI1,
	})
	if err != nil {
		return nil, err
	}
	members := make([]*MemberItem, len(page.Items))
	for i, item := range page.Items {
		members[i] = unmarshalMemberItem(item)
	}
	return members, nil
}

// UpdateFields applies a sparse update to a membership row and stamps
// updatedAt. Fields absent from the map stay untouched.
func (r *Repository) UpdateFields(ctx context.Context, orgID, userID string, fields store.Item) error {
	m := &MemberItem{OrgID: orgID, UserID: userID}
	withStamp := make(store.Item, len(fields)+1)
	for k, v := range fields {
		withStamp[k] = v
	}
	withStamp[dynamo.AttrUpdatedAt] = store.S(time.Now().UTC().Format(time.RFC3339))
	return r.store.UpdatePartial(ctx, m.PK(), m.SK(), withStamp)
}

// Delete removes a membership row.
func (r *Repository) Delete(ctx context.Context, orgID, userID string) error {
	m := &MemberItem{OrgID: orgID, UserID: userID}
	return r.store.Delete(ctx, m.PK(), m.SK())
}

// marshalMemberItem converts a MemberItem to DynamoDB attribute values.
func marshalMemberItem(m *MemberItem) store.Item {
	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: m.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: m.SK()},
		dynamo.AttrGSI1PK:     &types.AttributeValueMemberS{Value: m.GSI1PK()},
		dynamo.AttrGSI1SK:     &types.AttributeValueMemberS{Value: m.GSI1SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityType},
		AttrUserID:            &types.AttributeValueMemberS{Value: m.UserID},
		AttrOrgID:             &types.AttributeValueMemberS{Value: m.OrgID},
		AttrEmail:             &types.AttributeValueMemberS{Value: m.Email},
		AttrDisplayName:       &types.AttributeValueMemberS{Value: m.DisplayName},
		AttrRole:              &types.AttributeValueMemberS{Value: m.Role},
		AttrStatus:            &types.AttributeValueMemberS{Value: m.Status},
		AttrTeamIDs:           marshalStringList(m.TeamIDs),
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: m.CreatedAt.UTC().Format(time.RFC3339)},
		dynamo.AttrUpdatedAt:  &types.AttributeValueMemberS{Value: m.UpdatedAt.UTC().Format(time.RFC3339)},
	}

	if m.AccessPeriodStart != "" {
		item[AttrAccessPeriodStart] = &types.AttributeValueMemberS{Value: m.AccessPeriodStart}
	}
	if m.AccessPeriodEnd != "" {
		item[AttrAccessPeriodEnd] = &types.AttributeValueMemberS{Value: m.AccessPeriodEnd}
	}
	if m.LastSessionAt != "" {
		item[AttrLastSessionAt] = &types.AttributeValueMemberS{Value: m.LastSessionAt}
	}

	return item
}

// unmarshalMemberItem converts DynamoDB attribute values to a MemberItem.
func unmarshalMemberItem(item store.Item) *MemberItem {
	m := &MemberItem{}

	if v, ok := item[AttrUserID].(*types.AttributeValueMemberS); ok {
		m.UserID = v.Value
	}
	if v, ok := item[AttrOrgID].(*types.AttributeValueMemberS); ok {
		m.OrgID = v.Value
	}
	if v, ok := item[AttrEmail].(*types.AttributeValueMemberS); ok {
		m.Email = v.Value
	}
	if v, ok := item[AttrDisplayName].(*types.AttributeValueMemberS); ok {
		m.DisplayName = v.Value
	}
	if v, ok := item[AttrRole].(*types.AttributeValueMemberS); ok {
		m.Role = v.Value
	}
	if v, ok := item[AttrStatus].(*types.AttributeValueMemberS); ok {
		m.Status = v.Value
	}
	if v, ok := item[AttrTeamIDs].(*types.AttributeValueMemberL); ok {
		m.TeamIDs = unmarshalStringList(v.Value)
	}
	if v, ok := item[AttrAccessPeriodStart].(*types.AttributeValueMemberS); ok {
		m.AccessPeriodStart = v.Value
	}
	if v, ok := item[AttrAccessPeriodEnd].(*types.AttributeValueMemberS); ok {
		m.AccessPeriodEnd = v.Value
	}
	if v, ok := item[AttrLastSessionAt].(*types.AttributeValueMemberS); ok {
		m.LastSessionAt = v.Value
	}
	if v, ok := item[dynamo.AttrCreatedAt].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339, v.Value); err == nil {
			m.CreatedAt = t
		}
	}
	if v, ok := item[dynamo.AttrUpdatedAt].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339, v.Value); err == nil {
			m.UpdatedAt = t
		}
	}

	return m
}

// marshalStringList converts a slice of strings to a DynamoDB list attribute.
func marshalStringList(strs []string) types.AttributeValue {
	list := make([]types.AttributeValue, len(strs))
	for i, s := range strs {
		list[i] = &types.AttributeValueMemberS{Value: s}
	}
	return &types.AttributeValueMemberL{Value: list}
}

// unmarshalStringList converts a DynamoDB list attribute to a slice of strings.
func unmarshalStringList(list []types.AttributeValue) []string {
	strs := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(*types.AttributeValueMemberS); ok {
			strs = append(strs, s.Value)
		}
	}
	return strs
}
