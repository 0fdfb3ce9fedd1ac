// Package rbac implements the role-based access control core: role and
// permission storage, the user/role and role/permission association
// relations, and the permission check resolved through them.
package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions assignable to users.
type Role struct {
	ID          uuid.UUID    `json:"role_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Permission is a named atomic capability, conventionally "resource:action".
type Permission struct {
	ID          uuid.UUID `json:"permission_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission is a row of the role/permission association relation. It has
// no identity beyond its composite key.
type RolePermission struct {
	RoleID       uuid.UUID `json:"role_id"`
	PermissionID uuid.UUID `json:"permission_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// UserRole links an externally owned user ID to a role. User identity is
// never modeled here, only referenced.
type UserRole struct {
	UserID     string    `json:"user_id"`
	RoleID     uuid.UUID `json:"role_id"`
	AssignedAt time.Time `json:"assigned_at"`
}
