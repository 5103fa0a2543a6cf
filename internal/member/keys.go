package member

// Member statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// Attribute names for DynamoDB items.
const (
	AttrUserID            = "userId"
	AttrOrgID             = "orgId"
	AttrEmail             = "email"
	AttrDisplayName       = "displayName"
	AttrRole              = "role"
	AttrStatus            = "status"
	AttrTeamIDs           = "teamIds"
	AttrAccessPeriodStart = "accessPeriodStart"
	AttrAccessPeriodEnd   = "accessPeriodEnd"
	AttrLastSessionAt     = "lastSessionAt"
)

// EntityType identifies member items in the shared table.
const EntityType = "User"
