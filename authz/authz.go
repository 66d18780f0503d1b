// Package authz evaluates a caller's materialized permission set against the
// requirement of an action. All checks are pure and fail closed: a nil or
// empty permission set denies everything.
package authz

import "go.mongodb.org/mongo-driver/bson/primitive"

// HasPermission reports whether perms contains required.
func HasPermission(perms []string, required string) bool {
	if len(perms) == 0 || required == "" {
		return false
	}
	for _, p := range perms {
		if p == required {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether perms contains at least one of required.
func HasAnyPermission(perms []string, required ...string) bool {
	for _, r := range required {
		if HasPermission(perms, r) {
			return true
		}
	}
	return false
}

// OwnerOrPermitted allows self-service actions: the actor either owns the
// resource or holds the override permission. The override is a true
// alternative, not an additional requirement.
func OwnerOrPermitted(actorID, ownerID primitive.ObjectID, perms []string, override string) bool {
	if actorID == ownerID && !actorID.IsZero() {
		return true
	}
	return HasPermission(perms, override)
}
