package models

// Permission constants, one per action category.
const (
	PermCreateUsers          = "create_users"
	PermModifyUsers          = "modify_users"
	PermDeactivateUsers      = "deactivate_users"
	PermViewUsers            = "view_users"
	PermManagePermissions    = "manage_permissions"
	PermCreateBooks          = "create_books"
	PermModifyBooks          = "modify_books"
	PermDeactivateBooks      = "deactivate_books"
	PermViewBooks            = "view_books"
	PermListBooks            = "list_books"
	PermReserveBooks         = "reserve_books"
	PermViewOwnReservations  = "view_own_reservations"
	PermViewBookReservations = "view_book_reservations"
	PermReturnReservations   = "return_reservations"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {
		PermCreateUsers, PermModifyUsers, PermDeactivateUsers, PermViewUsers, PermManagePermissions,
		PermCreateBooks, PermModifyBooks, PermDeactivateBooks, PermViewBooks, PermListBooks,
		PermReserveBooks, PermViewOwnReservations, PermViewBookReservations, PermReturnReservations,
	},
	RoleEditor: {
		PermCreateBooks, PermModifyBooks, PermDeactivateBooks, PermViewBooks, PermListBooks,
	},
	RoleMember: {
		PermListBooks, PermViewBooks, PermReserveBooks, PermViewOwnReservations,
	},
}

// PermissionsForRole returns a fresh copy of the canonical permission set for
// role. An unknown role yields an empty set, never an error.
func PermissionsForRole(role string) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return []string{}
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
