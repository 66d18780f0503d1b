package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsForRole(t *testing.T) {
	tests := []struct {
		role string
		want []string
	}{
		{
			role: RoleAdmin,
			want: []string{
				"create_users", "modify_users", "deactivate_users", "view_users", "manage_permissions",
				"create_books", "modify_books", "deactivate_books", "view_books", "list_books",
				"reserve_books", "view_own_reservations", "view_book_reservations", "return_reservations",
			},
		},
		{
			role: RoleEditor,
			want: []string{"create_books", "modify_books", "deactivate_books", "view_books", "list_books"},
		},
		{
			role: RoleMember,
			want: []string{"list_books", "view_books", "reserve_books", "view_own_reservations"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, PermissionsForRole(tt.role))
		})
	}
}

func TestPermissionsForRoleUnknown(t *testing.T) {
	assert.Empty(t, PermissionsForRole("librarian"))
	assert.Empty(t, PermissionsForRole(""))
}

func TestPermissionsForRoleReturnsCopy(t *testing.T) {
	perms := PermissionsForRole(RoleMember)
	perms[0] = "tampered"
	assert.NotContains(t, PermissionsForRole(RoleMember), "tampered")
}
