// Package category provides types and operations for checklist
// categories. Categories are org-scoped labels with no index
// projections of their own.
package category

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

// Attribute names for DynamoDB items.
const (
	AttrCategoryID  = "categoryId"
	AttrOrgID       = "orgId"
	AttrName        = "name"
	AttrDescription = "description"
)

// EntityType identifies category items in the shared table.
const EntityType = "Category"

// ErrCategoryNotFound is returned for point lookups of absent categories.
var ErrCategoryNotFound = errors.New("category not found")

// CategoryItem represents a checklist category.
type CategoryItem struct {
	CategoryID  string
	OrgID       string
	Name        string
	Description string
	CreatedAt   time.Time
}

// PK returns the partition key for this category.
func (c *CategoryItem) PK() string {
	return dynamo.PrefixOrg + c.OrgID
}

// SK returns the sort key for this category.
func (c *CategoryItem) SK() string {
	return dynamo.PrefixCategory + c.CategoryID
}

// Repository handles category storage operations.
type Repository struct {
	store *store.Client
}

// NewRepository creates a new Repository.
func NewRepository(s *store.Client) *Repository {
	return &Repository{store: s}
}

// Create stores a new category.
func (r *Repository) Create(ctx context.Context, c *CategoryItem) error {
	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: c.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: c.SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityType},
		AttrCategoryID:        &types.AttributeValueMemberS{Value: c.CategoryID},
		AttrOrgID:             &types.AttributeValueMemberS{Value: c.OrgID},
		AttrName:              &types.AttributeValueMemberS{Value: c.Name},
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: c.CreatedAt.UTC().Format(time.RFC3339)},
	}
	if c.Description != "" {
		item[AttrDescription] = &types.AttributeValueMemberS{Value: c.Description}
	}
	return r.store.Put(ctx, item)
}

// Get retrieves a category by org and category ID.
func (r *Repository) Get(ctx context.Context, orgID, categoryID string) (*CategoryItem, error) {
	c := &CategoryItem{OrgID: orgID, CategoryID: categoryID}
	item, err := r.store.Get(ctx, c.PK(), c.SK())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCategoryNotFound
	}
	return unmarshalCategoryItem(item), nil
}

// List returns one page of an organization's categories.
func (r *Repository) List(ctx context.Context, orgID string, limit int32, cursor string) ([]*CategoryItem, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixOrg+orgID, dynamo.PrefixCategory, store.Options{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", err
	}
	categories := make([]*CategoryItem, len(page.Items))
	for i, item := range page.Items {
		categories[i] = unmarshalCategoryItem(item)
	}
	return categories, page.NextCursor, nil
}

// UpdateFields applies a sparse update to a category and stamps updatedAt.
func (r *Repository) UpdateFields(ctx context.Context, orgID, categoryID string, fields store.Item) error {
	c := &CategoryItem{OrgID: orgID, CategoryID: categoryID}
	withStamp := make(store.Item, len(fields)+1)
	for k, v := range fields {
		withStamp[k] = v
	}
	withStamp[dynamo.AttrUpdatedAt] = store.S(time.Now().UTC().Format(time.RFC3339))
	return r.store.UpdatePartial(ctx, c.PK(), c.SK(), withStamp)
}

// Delete removes a category. Checklists keep their categoryId; dangling
// references are tolerated by the callers that filter on them.
func (r *Repository) Delete(ctx context.Context, orgID, categoryID string) error {
	c := &CategoryItem{OrgID: orgID, CategoryID: categoryID}
	return r.store.Delete(ctx, c.PK(), c.SK())
}

func unmarshalCategoryItem(item store.Item) *CategoryItem {
	c := &CategoryItem{}
	if v, ok := item[AttrCategoryID].(*types.AttributeValueMemberS); ok {
		c.CategoryID = v.Value
	}
	if v, ok := item[AttrOrgID].(*types.AttributeValueMemberS); ok {
		c.OrgID = v.Value
	}
	if v, ok := item[AttrName].(*types.AttributeValueMemberS); ok {
		c.Name = v.Value
	}
	if v, ok := item[AttrDescription].(*types.AttributeValueMemberS); ok {
		c.Description = v.Value
	}
	if v, ok := item[dynamo.AttrCreatedAt].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339, v.Value); err == nil {
			c.CreatedAt = t
		}
	}
	return c
}
