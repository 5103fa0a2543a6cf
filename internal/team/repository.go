package team

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
	ErrTeamNotFound = errors.New("team not found")
)

// Repository handles team storage operations.
type Repository struct {
	store *store.Client
}

// NewRepository creates a new Repository.
func NewRepository(s *store.Client) *Repository {
	return &Repository{store: s}
}

// Create stores a new team.
func (r *Repository) Create(ctx context.Context, t *TeamItem) error {
	return r.store.Put(ctx, marshalTeamItem(t))
}

// Get retrieves a team by org and team ID.
func (r *Repository) Get(ctx context.Context, orgID, teamID string) (*TeamItem, error) {
	t := &TeamItem{OrgID: orgID, TeamID: teamID}
	item, err := r.store.Get(ctx, t.PK(), t.SK())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrTeamNotFound
	}
	return unmarshalTeamItem(item), nil
}

// List returns one page of an organization's teams.
func (r *Repository) List(ctx context.Context, orgID string, limit int32, cursor string) ([]*TeamItem, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixOrg+orgID, dynamo.PrefixTeam, store.Options{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", err
	}
	teams := make([]*TeamItem, len(page.Items))
	for i, item := range page.Items {
		teams[i] = unmarshalTeamItem(item)
	}
	return teams, page.NextCursor, nil
}

// UpdateFields applies a sparse update to a team and stamps updatedAt.
func (r *Repository) UpdateFields(ctx context.Context, orgID, teamID string, fields store.Item) error {
	t := &TeamItem{OrgID: orgID, TeamID: teamID}
	withStamp := make(store.Item, len(fields)+1)
	for k, v := range fields {
		withStamp[k] = v
	}
	withStamp[dynamo.AttrUpdatedAt] = store.S(time.Now().UTC().Format(time.RFC3339))
	return r.store.UpdatePartial(ctx, t.PK(), t.SK(), withStamp)
}

// Delete removes a team.
func (r *Repository) Delete(ctx context.Context, orgID, teamID string) error {
	t := &TeamItem{OrgID: orgID, TeamID: teamID}
	return r.store.Delete(ctx, t.PK(), t.SK())
}

// marshalTeamItem converts a TeamItem to DynamoDB attribute values.
func marshalTeamItem(t *TeamItem) store.Item {
	memberList := make([]types.AttributeValue, len(t.MemberIDs))
	for i, id := range t.MemberIDs {
		memberList[i] = &types.AttributeValueMemberS{Value: id}
	}

	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: t.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: t.SK()},
		dynamo.AttrGSI1PK:     &types.AttributeValueMemberS{Value: t.GSI1PK()},
		dynamo.AttrGSI1SK:     &types.AttributeValueMemberS{Value: t.GSI1SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityType},
		AttrTeamID:            &types.AttributeValueMemberS{Value: t.TeamID},
		AttrOrgID:             &types.AttributeValueMemberS{Value: t.OrgID},
		AttrName:              &types.AttributeValueMemberS{Value: t.Name},
		AttrVisibility:        &types.AttributeValueMemberS{Value: t.Visibility},
		AttrManagerID:         &types.AttributeValueMemberS{Value: t.ManagerID},
		AttrMemberIDs:         &types.AttributeValueMemberL{Value: memberList},
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: t.CreatedAt.UTC().Format(time.RFC3339)},
		dynamo.AttrUpdatedAt:  &types.AttributeValueMemberS{Value: t.UpdatedAt.UTC().Format(time.RFC3339)},
	}

	if t.Description != "" {
		item[AttrDescription] = &types.AttributeValueMemberS{Value: t.Description}
	}

	return item
}

// unmarshalTeamItem converts DynamoDB attribute values to a TeamItem.
func unmarshalTeamItem(item store.Item) *TeamItem {
	t := &TeamItem{}

	if v, ok := item[AttrTeamID].(*types.AttributeValueMemberS); ok {
		t.TeamID = v.Value
	}
	if v, ok := item[AttrOrgID].(*types.AttributeValueMemberS); ok {
		t.OrgID = v.Value
	}
	if v, ok := item[AttrName].(*types.AttributeValueMemberS); ok {
		t.Name = v.Value
	}
	if v, ok := item[AttrDescription].(*types.AttributeValueMemberS); ok {
		t.Description = v.Value
	}
	if v, ok := item[AttrVisibility].(*types.AttributeValueMemberS); ok {
		t.Visibility = v.Value
	}
	if v, ok := item[AttrManagerID].(*types.AttributeValueMemberS); ok {
		t.ManagerID = v.Value
	}
	if v, ok := item[AttrMemberIDs].(*types.AttributeValueMemberL); ok {
		for _, entry := range v.Value {
			if s, ok := entry.(*types.AttributeValueMemberS); ok {
				t.MemberIDs = append(t.MemberIDs, s.Value)
			}
		}
	}
	if v, ok := item[dynamo.AttrCreatedAt].(*types.AttributeValueMemberS); ok {
		if ts, err := time.Parse(time.RFC3339, v.Value); err == nil {
			t.CreatedAt = ts
		}
	}
	if v, ok := item[dynamo.AttrUpdatedAt].(*types.AttributeValueMemberS); ok {
		if ts, err := time.Parse(time.RFC3339, v.Value); err == nil {
			t.UpdatedAt = ts
		}
	}

	return t
}
