// Package invitation provides types and operations for org invitations.
package invitation

import (
	"time"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
)

// ExpiryWindow is how long an invitation stays redeemable.
const ExpiryWindow = 7 * 24 * time.Hour

// InvitationItem represents a pending or scheduled invitation into an
// organization.
type InvitationItem struct {
	InvitationID string
	OrgID        string
	Email        string
	Role         string
	Status       string
	InvitedBy    string
	ScheduledAt  string
	ExpiresAt    time.Time
	AcceptedAt   string
	CreatedAt    time.Time
}

// New builds an invitation created at now. Invitations with a scheduled
// send time start out scheduled instead of pending.
func New(id, orgID, email, role, invitedBy, scheduledAt string, now time.Time) *InvitationItem {
	status := StatusPending
	if scheduledAt != "" {
		status = StatusScheduled
	}
	return &InvitationItem{
		InvitationID: id,
		OrgID:        orgID,
		Email:        email,
		Role:         role,
		Status:       status,
		InvitedBy:    invitedBy,
		ScheduledAt:  scheduledAt,
		ExpiresAt:    now.Add(ExpiryWindow),
		CreatedAt:    now,
	}
}

// PK returns the partition key for this invitation.
func (i *InvitationItem) PK() string {
	return dynamo.PrefixOrg + i.OrgID
}

// SK returns the sort key for this invitation.
func (i *InvitationItem) SK() string {
	return dynamo.PrefixInvite + i.InvitationID
}

// GSI1PK projects the invitation by invitee email.
func (i *InvitationItem) GSI1PK() string {
	return dynamo.PrefixEmail + i.Email
}

// GSI1SK distinguishes multiple invitations for the same email.
func (i *InvitationItem) GSI1SK() string {
	return dynamo.PrefixInvite + i.InvitationID
}
