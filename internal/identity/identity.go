// Package identity carries the authenticated caller context supplied by
// the upstream auth layer. The core performs no authentication of its
// own; a Caller arrives already verified.
package identity

// Roles an org member can hold.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// Caller identifies the authenticated principal behind an operation.
type Caller struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	OrgID  string `json:"orgId"`
	Role   string `json:"role"`
}

// HasRole reports whether the caller holds one of the given roles.
func (c Caller) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
