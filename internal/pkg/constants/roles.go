package constants

// Roles a member holds inside their organization. Donor and recipient organizations
// share the same role ladder; what an org can do follows from its side of a pickup.
const (
	Superadmin = "superadmin"
	Admin      = "admin"
	Manager    = "manager"
	Volunteer  = "volunteer" // drives pickups, cannot publish or close out stock
	Viewer     = "viewer"
)

// ValidRoles is the set of roles a session user may carry, lowest first.
var ValidRoles = []string{Viewer, Volunteer, Manager, Admin, Superadmin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
