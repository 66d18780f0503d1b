package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role constants for user authorization.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleMember = "member"
)

var ValidRoles = []string{RoleAdmin, RoleEditor, RoleMember}

// RoleValid reports whether role is one of the known roles.
func RoleValid(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User carries both a role and a materialized permission set. The permission
// set is derived from the role at registration and at role changes, but an
// explicit permission override replaces it wholesale; once materialized, the
// permission set is the sole authority for authorization decisions.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password" json:"-"` // bcrypt hash
	Role        string             `bson:"role" json:"role"`
	Permissions []string           `bson:"permissions" json:"permissions"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
