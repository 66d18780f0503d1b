package service

import (
	"context"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/libreserve/backend/authz"
	"github.com/libreserve/backend/logger"
	"github.com/libreserve/backend/models"
)

// Actor identifies the authenticated caller of an operation. Permissions are
// the materialized set from the caller's token; the role is informational.
type Actor struct {
	ID          primitive.ObjectID
	Role        string
	Permissions []string
}

// Users manages accounts: registration, authentication, profile changes,
// role/permission changes, and deactivation.
type Users struct {
	store UserStore
	clock Clock
	log   *slog.Logger
}

// NewUsers wires the account service to its store.
func NewUsers(store UserStore, clock Clock) *Users {
	if clock == nil {
		clock = SystemClock
	}
	return &Users{store: store, clock: clock, log: logger.Default()}
}

// RegisterInput is the payload for Register. Role defaults to member.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Register creates an account with the permission set materialized from its
// role. An unrecognized role silently falls back to member.
func (s *Users) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, NewError(KindIncompleteInput, "name, email and password are required")
	}

	existing, err := s.store.UserByEmail(ctx, in.Email)
	if err != nil {
		return nil, Internal("failed to check email", err)
	}
	if existing != nil {
		return nil, NewError(KindConflict, "this email is already registered")
	}

	role := in.Role
	if !models.RoleValid(role) {
		role = models.RoleMember
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, Internal("failed to hash password", err)
	}

	now := s.clock.Now()
	user := &models.User{
		Name:        in.Name,
		Email:       in.Email,
		Password:    string(hash),
		Role:        role,
		Permissions: models.PermissionsForRole(role),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, Internal("failed to create user", err)
	}
	user.ID = id

	s.log.Info("user registered", slog.String("user_id", id.Hex()), slog.String("role", role))
	return user, nil
}

// Authenticate checks credentials and rejects deactivated accounts.
func (s *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, NewError(KindIncompleteInput, "email and password are required")
	}

	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, Internal("login failed", err)
	}
	if user == nil {
		return nil, NewError(KindInvalidCredentials, "incorrect email or password")
	}
	if !user.Active {
		return nil, NewError(KindForbidden, "this account has been disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, NewError(KindInvalidCredentials, "incorrect email or password")
	}
	return user, nil
}

// Get returns an active user. The caller must hold view_users or be looking
// at their own account.
func (s *Users) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.User, error) {
	if !authz.OwnerOrPermitted(actor.ID, id, actor.Permissions, models.PermViewUsers) {
		return nil, NewError(KindForbidden, "you do not have permission to view this user")
	}
	user, err := s.store.ActiveUserByID(ctx, id)
	if err != nil {
		return nil, Internal("failed to load user", err)
	}
	if user == nil {
		return nil, NewError(KindNotFound, "user not found or inactive")
	}
	return user, nil
}

// ProfileUpdate carries optional profile fields; nil means leave unchanged.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// UpdateProfile modifies name, email, or password. Allowed for the account
// owner or any holder of modify_users.
func (s *Users) UpdateProfile(ctx context.Context, actor Actor, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	if !authz.OwnerOrPermitted(actor.ID, id, actor.Permissions, models.PermModifyUsers) {
		return nil, NewError(KindForbidden, "you do not have permission to modify this user")
	}

	user, err := s.store.ActiveUserByID(ctx, id)
	if err != nil {
		return nil, Internal("failed to load user", err)
	}
	if user == nil {
		return nil, NewError(KindNotFound, "user not found or inactive")
	}

	var newEmail *string
	if upd.Email != nil {
		e := strings.TrimSpace(strings.ToLower(*upd.Email))
		if e == "" {
			return nil, NewError(KindIncompleteInput, "email cannot be empty")
		}
		other, err := s.store.UserByEmail(ctx, e)
		if err != nil {
			return nil, Internal("failed to check email", err)
		}
		if other != nil && other.ID != id {
			return nil, NewError(KindConflict, "this email is already in use by another user")
		}
		newEmail = &e
	}

	var newHash *string
	if upd.Password != nil && *upd.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, Internal("failed to hash password", err)
		}
		h := string(hash)
		newHash = &h
	}

	var newName *string
	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		n := strings.TrimSpace(*upd.Name)
		newName = &n
	}

	now := s.clock.Now()
	if err := s.store.UpdateUserProfile(ctx, id, newName, newEmail, newHash, now); err != nil {
		return nil, Internal("failed to update user", err)
	}
	updated, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, Internal("failed to load user", err)
	}
	return updated, nil
}

// AccessUpdate changes a user's role and/or permission set. A role change
// replaces the permission set with the role's canonical set; an explicit
// permission list takes precedence as a full override, never a merge.
type AccessUpdate struct {
	Role        *string
	Permissions []string
}

// UpdateAccess applies an AccessUpdate to an active user. Gated on
// manage_permissions by the caller.
func (s *Users) UpdateAccess(ctx context.Context, actor Actor, id primitive.ObjectID, upd AccessUpdate) (*models.User, error) {
	if !authz.HasPermission(actor.Permissions, models.PermManagePermissions) {
		return nil, NewError(KindForbidden, "you do not have permission to manage permissions")
	}

	user, err := s.store.ActiveUserByID(ctx, id)
	if err != nil {
		return nil, Internal("failed to load user", err)
	}
	if user == nil {
		return nil, NewError(KindNotFound, "user not found or inactive")
	}

	var newRole *string
	var newPerms []string
	if upd.Role != nil {
		if !models.RoleValid(*upd.Role) {
			return nil, NewError(KindIncompleteInput, "role must be admin, editor or member")
		}
		newRole = upd.Role
		newPerms = models.PermissionsForRole(*upd.Role)
	}
	if upd.Permissions != nil {
		newPerms = upd.Permissions
	}
	if newRole == nil && newPerms == nil {
		return nil, NewError(KindIncompleteInput, "a role or a permission list is required")
	}

	now := s.clock.Now()
	if err := s.store.UpdateUserAccess(ctx, id, newRole, newPerms, now); err != nil {
		return nil, Internal("failed to update permissions", err)
	}

	s.log.Info("user access updated", slog.String("user_id", id.Hex()),
		slog.Bool("role_changed", newRole != nil),
		slog.Bool("explicit_permissions", upd.Permissions != nil))
	updated, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, Internal("failed to load user", err)
	}
	return updated, nil
}

// Deactivate soft-deletes an account. Allowed for the account owner or any
// holder of deactivate_users.
func (s *Users) Deactivate(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.User, error) {
	if !authz.OwnerOrPermitted(actor.ID, id, actor.Permissions, models.PermDeactivateUsers) {
		return nil, NewError(KindForbidden, "you do not have permission to deactivate this user")
	}

	user, err := s.store.ActiveUserByID(ctx, id)
	if err != nil {
		return nil, Internal("failed to load user", err)
	}
	if user == nil {
		return nil, NewError(KindNotFound, "user not found or already inactive")
	}

	if err := s.store.DeactivateUser(ctx, id, s.clock.Now()); err != nil {
		return nil, Internal("failed to deactivate user", err)
	}
	user.Active = false

	s.log.Info("user deactivated", slog.String("user_id", id.Hex()))
	return user, nil
}
