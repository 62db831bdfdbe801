package entity

// Roles an actor can carry. Users and groups live in the external auth
// system; the core only consumes the resolved identity.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID          int64  `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// IsAdmin reports whether the actor carries admin or super admin rights.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// IsSuperAdmin reports whether the actor is a super admin.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}
