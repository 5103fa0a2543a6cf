package template

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
	ErrTemplateNotFound = errors.New("template not found")
)

// Repository handles template storage operations.
type Repository struct {
	store *store.Client
}

// NewRepository creates a new Repository.
func NewRepository(s *store.Client) *Repository {
	return &Repository{store: s}
}

// Create stores a new template.
func (r *Repository) Create(ctx context.Context, t *TemplateItem) error {
	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: t.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: t.SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityType},
		AttrTemplateID:        &types.AttributeValueMemberS{Value: t.TemplateID},
		AttrOrgID:             &types.AttributeValueMemberS{Value: t.OrgID},
		AttrTitle:             &types.AttributeValueMemberS{Value: t.Title},
		AttrItems:             MarshalItems(t.Items),
		AttrRecurrence:        &types.AttributeValueMemberS{Value: t.Recurrence},
		AttrCreatedBy:         &types.AttributeValueMemberS{Value: t.CreatedBy},
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: t.CreatedAt.UTC().Format(time.RFC3339)},
		dynamo.AttrUpdatedAt:  &types.AttributeValueMemberS{Value: t.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	if t.Description != "" {
		item[AttrDescription] = &types.AttributeValueMemberS{Value: t.Description}
	}
	return r.store.Put(ctx, item)
}

// Get retrieves a template by org and template ID.
func (r *Repository) Get(ctx context.Context, orgID, templateID string) (*TemplateItem, error) {
	t := &TemplateItem{OrgID: orgID, TemplateID: templateID}
	item, err := r.store.Get(ctx, t.PK(), t.SK())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrTemplateNotFound
	}
	return unmarshalTemplateItem(item), nil
}

// List returns one page of an organization's templates.
func (r *Repository) List(ctx context.Context, orgID string, limit int32, cursor string) ([]*TemplateItem, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixOrg+orgID, dynamo.PrefixTemplate, store.Options{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", err
	}
	templates := make([]*TemplateItem, len(page.Items))
	for i, item := range page.Items {
		templates[i] = unmarshalTemplateItem(item)
	}
	return templates, page.NextCursor, nil
}

// UpdateFields applies a sparse update to a template and stamps
// updatedAt. Use MarshalItems to replace the embedded item list.
func (r *Repository) UpdateFields(ctx context.Context, orgID, templateID string, fields store.Item) error {
	t := &TemplateItem{OrgID: orgID, TemplateID: templateID}
	withStamp := make(store.Item, len(fields)+1)
	for k, v := range fields {
		withStamp[k] = v
	}
	withStamp[dynamo.AttrUpdatedAt] = store.S(time.Now().UTC().Format(time.RFC3339))
	return r.store.UpdatePartial(ctx, t.PK(), t.SK(), withStamp)
}

// Delete removes a template. Checklists already created from it are
// unaffected.
func (r *Repository) Delete(ctx context.Context, orgID, templateID string) error {
	t := &TemplateItem{OrgID: orgID, TemplateID: templateID}
	return r.store.Delete(ctx, t.PK(), t.SK())
}

// MarshalItems converts embedded template items to a DynamoDB list
// attribute.
func MarshalItems(items []Item) types.AttributeValue {
	list := make([]types.AttributeValue, len(items))
	for i, it := range items {
		entry := map[string]types.AttributeValue{
			AttrItemID:    &types.AttributeValueMemberS{Value: it.ItemID},
			AttrTitle:     &types.AttributeValueMemberS{Value: it.Title},
			AttrSortOrder: &types.AttributeValueMemberN{Value: strconv.Itoa(it.SortOrder)},
			AttrRequired:  &types.AttributeValueMemberBOOL{Value: it.Required},
		}
		if it.Description != "" {
			entry[AttrDescription] = &types.AttributeValueMemberS{Value: it.Description}
		}
		if it.MediaURL != "" {
			entry[AttrMediaURL] = &types.AttributeValueMemberS{Value: it.MediaURL}
		}
		if it.MediaType != "" {
			entry[AttrMediaType] = &types.AttributeValueMemberS{Value: it.MediaType}
		}
		list[i] = &types.AttributeValueMemberM{Value: entry}
	}
	return &types.AttributeValueMemberL{Value: list}
}

// unmarshalItems converts a DynamoDB list attribute to embedded template items.
func unmarshalItems(list []types.AttributeValue) []Item {
	items := make([]Item, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(*types.AttributeValueMemberM)
		if !ok {
			continue
		}
		it := Item{}
		if v, ok := m.Value[AttrItemID].(*types.AttributeValueMemberS); ok {
			it.ItemID = v.Value
		}
		if v, ok := m.Value[AttrTitle].(*types.AttributeValueMemberS); ok {
			it.Title = v.Value
		}
		if v, ok := m.Value[AttrDescription].(*types.AttributeValueMemberS); ok {
			it.Description = v.Value
		}
		if v, ok := m.Value[AttrSortOrder].(*types.AttributeValueMemberN); ok {
			if n, err := strconv.Atoi(v.Value); err == nil {
				it.SortOrder = n
			}
		}
		if v, ok := m.Value[AttrRequired].(*types.AttributeValueMemberBOOL); ok {
			it.Required = v.Value
		}
		if v, ok := m.Value[AttrMediaURL].(*types.AttributeValueMemberS); ok {
			it.MediaURL = v.Value
		}
		if v, ok := m.Value[AttrMediaType].(*types.AttributeValueMemberS); ok {
			it.MediaType = v.Value
		}
		items = append(items, it)
	}
	return items
}

// unmarshalTemplateItem converts DynamoDB attribute values to a TemplateItem.
func unmarshalTemplateItem(item store.Item) *TemplateItem {
	t := &TemplateItem{}

	if v, ok := item[AttrTemplateID].(*types.AttributeValueMemberS); ok {
		t.TemplateID = v.Value
	}
	if v, ok := item[AttrOrgID].(*types.AttributeValueMemberS); ok {
		t.OrgID = v.Value
	}
	if v, ok := item[AttrTitle].(*types.AttributeValueMemberS); ok {
		t.Title = v.Value
	}
	if v, ok := item[AttrDescription].(*types.AttributeValueMemberS); ok {
		t.Description = v.Value
	}
	if v, ok := item[AttrItems].(*types.AttributeValueMemberL); ok {
		t.Items = unmarshalItems(v.Value)
	}
	if v, ok := item[AttrRecurrence].(*types.AttributeValueMemberS); ok {
		t.Recurrence = v.Value
	}
	if v, ok := item[AttrCreatedBy].(*types.AttributeValueMemberS); ok {
		t.CreatedBy = v.Value
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
