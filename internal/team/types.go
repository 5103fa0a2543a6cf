// Package team provides types and operations for team storage.
package team

import (
	"time"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
)

// TeamItem represents a team within an organization.
type TeamItem struct {
	TeamID      string
	OrgID       string
	Name        string
	Description string
	Visibility  string
	ManagerID   string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PK returns the partition key for this team.
func (t *TeamItem) PK() string {
	return dynamo.PrefixOrg + t.OrgID
}

// SK returns the sort key for this team.
func (t *TeamItem) SK() string {
	return dynamo.PrefixTeam + t.TeamID
}

// GSI1PK projects the team by its own ID.
func (t *TeamItem) GSI1PK() string {
	return dynamo.PrefixTeam + t.TeamID
}

// GSI1SK points the projection back at the owning organization.
func (t *TeamItem) GSI1SK() string {
	return dynamo.PrefixOrg + t.OrgID
}
