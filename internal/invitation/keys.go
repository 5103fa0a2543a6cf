package invitation

// Invitation statuses.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusAccepted  = "accepted"
	StatusRevoked   = "revoked"
	StatusExpired   = "expired"
)

// Attribute names for DynamoDB items.
const (
	AttrInvitationID = "invitationId"
	AttrOrgID        = "orgId"
	AttrEmail        = "email"
	AttrRole         = "role"
	AttrStatus       = "status"
	AttrInvitedBy    = "invitedBy"
	AttrScheduledAt  = "scheduledAt"
	AttrExpiresAt    = "expiresAt"
	AttrAcceptedAt   = "acceptedAt"
)

// EntityType identifies invitation items in the shared table.
const EntityType = "Invitation"
