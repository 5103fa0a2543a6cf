package invitation

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
	ErrInvitationNotFound = errors.New("invitation not found")
)

// Repository handles invitation storage operations.
type Repository struct {
	store *store.Client
}

// NewRepository creates a new Repository.
func NewRepository(s *store.Client) *Repository {
	return &Repository{store: s}
}

// Create stores a new invitation.
func (r *Repository) Create(ctx context.Context, inv *InvitationItem) error {
	return r.store.Put(ctx, marshalInvitationItem(inv))
}

// Get retrieves an invitation by org and invitation ID.
func (r *Repository) Get(ctx context.Context, orgID, invitationID string) (*InvitationItem, error) {
	inv := &InvitationItem{OrgID: orgID, InvitationID: invitationID}
	item, err := r.store.Get(ctx, inv.PK(), inv.SK())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrInvitationNotFound
	}
	return unmarshalInvitationItem(item), nil
}

// List returns one page of an organization's invitations.
func (r *Repository) List(ctx context.Context, orgID string, limit int32, cursor string) ([]*InvitationItem, string, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixOrg+orgID, dynamo.PrefixInvite, store.Options{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", err
	}
	invites := make([]*InvitationItem, len(page.Items))
	for i, item := range page.Items {
		invites[i] = unmarshalInvitationItem(item)
	}
	return invites, page.NextCursor, nil
}

// ListByEmail returns every invitation addressed to an email, via the
// email-keyed index.
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]*InvitationItem, error) {
	page, err := r.store.Query(ctx, dynamo.PrefixEmail+email, dynamo.PrefixInvite, store.Options{
		Index: dynamo.IndexGSI1,
	})
	if err != nil {
		return nil, err
	}
	invites := make([]*InvitationItem, len(page.Items))
	for i, item := range page.Items {
		invites[i] = unmarshalInvitationItem(item)
	}
	return invites, nil
}

// Revoke marks an invitation revoked without deleting it.
func (r *Repository) Revoke(ctx context.Context, orgID, invitationID string) error {
	inv := &InvitationItem{OrgID: orgID, InvitationID: invitationID}
	return r.store.UpdatePartial(ctx, inv.PK(), inv.SK(), store.Item{
		AttrStatus: store.S(StatusRevoked),
	})
}

// Delete removes an invitation.
func (r *Repository) Delete(ctx context.Context, orgID, invitationID string) error {
	inv := &InvitationItem{OrgID: orgID, InvitationID: invitationID}
	return r.store.Delete(ctx, inv.PK(), inv.SK())
}

// marshalInvitationItem converts an InvitationItem to DynamoDB attribute values.
func marshalInvitationItem(inv *InvitationItem) store.Item {
	item := store.Item{
		dynamo.AttrPK:         &types.AttributeValueMemberS{Value: inv.PK()},
		dynamo.AttrSK:         &types.AttributeValueMemberS{Value: inv.SK()},
		dynamo.AttrGSI1PK:     &types.AttributeValueMemberS{Value: inv.GSI1PK()},
		dynamo.AttrGSI1SK:     &types.AttributeValueMemberS{Value: inv.GSI1SK()},
		dynamo.AttrEntityType: &types.AttributeValueMemberS{Value: EntityType},
		AttrInvitationID:      &types.AttributeValueMemberS{Value: inv.InvitationID},
		AttrOrgID:             &types.AttributeValueMemberS{Value: inv.OrgID},
		AttrEmail:             &types.AttributeValueMemberS{Value: inv.Email},
		AttrRole:              &types.AttributeValueMemberS{Value: inv.Role},
		AttrStatus:            &types.AttributeValueMemberS{Value: inv.Status},
		AttrInvitedBy:         &types.AttributeValueMemberS{Value: inv.InvitedBy},
		AttrExpiresAt:         &types.AttributeValueMemberS{Value: inv.ExpiresAt.UTC().Format(time.RFC3339)},
		dynamo.AttrCreatedAt:  &types.AttributeValueMemberS{Value: inv.CreatedAt.UTC().Format(time.RFC3339)},
	}

	if inv.ScheduledAt != "" {
		item[AttrScheduledAt] = &types.AttributeValueMemberS{Value: inv.ScheduledAt}
	}
	if inv.AcceptedAt != "" {
		item[AttrAcceptedAt] = &types.AttributeValueMemberS{Value: inv.AcceptedAt}
	}

	return item
}

// unmarshalInvitationItem converts DynamoDB attribute values to an InvitationItem.
func unmarshalInvitationItem(item store.Item) *InvitationItem {
	inv := &InvitationItem{}

	if v, ok := item[AttrInvitationID].(*types.AttributeValueMemberS); ok {
		inv.InvitationID = v.Value
	}
	if v, ok := item[AttrOrgID].(*types.AttributeValueMemberS); ok {
		inv.OrgID = v.Value
	}
	if v, ok := item[AttrEmail].(*types.AttributeValueMemberS); ok {
		inv.Email = v.Value
	}
	if v, ok := item[AttrRole].(*types.AttributeValueMemberS); ok {
		inv.Role = v.Value
	}
	if v, ok := item[AttrStatus].(*types.AttributeValueMemberS); ok {
		inv.Status = v.Value
	}
	if v, ok := item[AttrInvitedBy].(*types.AttributeValueMemberS); ok {
		inv.InvitedBy = v.Value
	}
	if v, ok := item[AttrScheduledAt].(*types.AttributeValueMemberS); ok {
		inv.ScheduledAt = v.Value
	}
	if v, ok := item[AttrExpiresAt].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339, v.Value); err == nil {
			inv.ExpiresAt = t
		}
	}
	if v, ok := item[AttrAcceptedAt].(*types.AttributeValueMemberS); ok {
		inv.AcceptedAt = v.Value
	}
	if v, ok := item[dynamo.AttrCreatedAt].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339, v.Value); err == nil {
			inv.CreatedAt = t
		}
	}

	return inv
}
