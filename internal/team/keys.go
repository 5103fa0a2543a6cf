package team

// Team visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Attribute names for DynamoDB items.
const (
	AttrTeamID      = "teamId"
	AttrOrgID       = "orgId"
	AttrName        = "name"
	AttrDescription = "description"
	AttrVisibility  = "visibility"
	AttrManagerID   = "managerId"
	AttrMemberIDs   = "memberIds"
)

// EntityType identifies team items in the shared table.
const EntityType = "Team"
