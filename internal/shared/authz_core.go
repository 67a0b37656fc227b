package shared

// Core platform permissions. Codes follow the "<domain>.<verb>" convention
// and are matched exactly and case-sensitively.
const (
	PermUsersView   = "usuarios.view"
	PermUsersCreate = "usuarios.create"
	PermUsersEdit   = "usuarios.edit"
	PermUsersDelete = "usuarios.delete"

	PermDashboardView = "dashboard.view"
	PermAdminFull     = "admin.full"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermUsersDelete,
		PermDashboardView,
		PermAdminFull,
	}
}
