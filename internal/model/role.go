package model

// Role is one of the three fixed actor kinds of the system.
type Role string

const (
	RoleSales     Role = "sales"
	RoleWarehouse Role = "warehouse"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSales, RoleWarehouse, RoleAdmin:
		return true
	}
	return false
}

// RoleInfo describes a role for the admin screens.
type RoleInfo struct {
	Code        Role     `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Privileges  []string `json:"privileges"`
}

// DefaultRoles lists the roles in display order.
var DefaultRoles = []RoleInfo{
	{
		Code:        RoleSales,
		Name:        "Sales",
		Description: "Browses the catalog and submits orders",
		Privileges:  rolePrivileges[RoleSales],
	},
	{
		Code:        RoleWarehouse,
		Name:        "Warehouse",
		Description: "Prepares orders and moves them through the status pipeline",
		Privileges:  rolePrivileges[RoleWarehouse],
	},
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Manages catalog, users and watches aggregate status",
		Privileges:  rolePrivileges[RoleAdmin],
	},
}

// PrivilegesFor returns the privilege codes granted to a role.
func PrivilegesFor(r Role) []string {
	privs := rolePrivileges[r]
	out := make([]string, len(privs))
	copy(out, privs)
	return out
}

// InfoFor returns the catalogue entry for r, or nil for an unknown role.
func InfoFor(r Role) *RoleInfo {
	for i := range DefaultRoles {
		if DefaultRoles[i].Code == r {
			info := DefaultRoles[i]
			info.Privileges = PrivilegesFor(r)
			return &info
		}
	}
	return nil
}
