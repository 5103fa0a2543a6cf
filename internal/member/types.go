// Package member provides types and operations for organization
// membership rows.
package member

import (
	"time"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
)

// MemberItem represents one user's membership in an organization.
type MemberItem struct {
	UserID            string
	OrgID             string
	Email             string
	DisplayName       string
	Role              string
	Status            string
	TeamIDs           []string
	AccessPeriodStart string
	AccessPeriodEnd   string
	LastSessionAt     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PK returns the partition key for this membership.
func (m *MemberItem) PK() string {
	return dynamo.PrefixOrg + m.OrgID
}

// SK returns the sort key for this membership.
func (m *MemberItem) SK() string {
	return dynamo.PrefixUser + m.UserID
}

// GSI1PK projects the membership by user for org lookup.
func (m *MemberItem) GSI1PK() string {
	return dynamo.PrefixUser + m.UserID
}

// GSI1SK orders a user's memberships by organization.
func (m *MemberItem) GSI1SK() string {
	return dynamo.PrefixOrg + m.OrgID
}
