package constants

const (
	ViewData        = "view_data"
	PublishListing  = "publish_listing"
	ManageListing   = "manage_listing"
	RequestPickup   = "request_pickup"
	ManagePickup    = "manage_pickup"
	ManageInventory = "manage_inventory"
	ViewAudit       = "view_audit"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:        {Viewer, Volunteer, Manager, Admin, Superadmin},
	PublishListing:  {Manager, Admin, Superadmin},
	ManageListing:   {Manager, Admin, Superadmin},
	RequestPickup:   {Manager, Admin, Superadmin},
	ManagePickup:    {Volunteer, Manager, Admin, Superadmin},
	ManageInventory: {Manager, Admin, Superadmin},
	ViewAudit:       {Admin, Superadmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
