package domain

// Role determines what a user may see and change.
type Role string

const (
	RoleRequester     Role = "Requester"
	RoleTechnician    Role = "Technician"
	RoleAdministrator Role = "Administrator"
)

// Roles lists every role in display order.
var Roles = []Role{RoleRequester, RoleTechnician, RoleAdministrator}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleTechnician, RoleAdministrator:
		return true
	default:
		return false
	}
}

// User is a directory entry. Users are immutable once created.
type User struct {
	ID    string
	Name  string
	Role  Role
	Email string
}
