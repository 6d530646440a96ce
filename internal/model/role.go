package model

const (
	// OwnerRoleID and AdminRoleID are reserved and never offered for assignment.
	OwnerRoleID = 2
	AdminRoleID = 3
)

// DefaultRole is attached when a submitted role id resolves to nothing.
var DefaultRole = Role{ID: 5, Title: "User"}

// Role is an entry in the fixed role reference set.
type Role struct {
	ID    int    `json:"id" hcl:"id"`
	Title string `json:"title" hcl:"title"`
}

// Responsibility is a tag a user can carry (also called a designation).
type Responsibility struct {
	ID    int    `json:"id" hcl:"id"`
	Title string `json:"title" hcl:"title"`
}

// RoleDropdown is the partitioned role set served to the form.
type RoleDropdown struct {
	Owner      int    `json:"owner"`
	Admin      int    `json:"admin"`
	OtherRoles []Role `json:"other_roles"`
}

// NewRoleDropdown partitions roles: ids above AdminRoleID are assignable.
func NewRoleDropdown(roles []Role) RoleDropdown {
	other := make([]Role, 0, len(roles))
	for _, r := range roles {
		if r.ID > AdminRoleID {
			other = append(other, r)
		}
	}
	return RoleDropdown{Owner: OwnerRoleID, Admin: AdminRoleID, OtherRoles: other}
}

// FindRole looks a role up by id.
func FindRole(roles []Role, id int) (Role, bool) {
	for _, r := range roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}
