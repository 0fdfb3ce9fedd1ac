package rbac

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/warden-iam/warden/internal/platform/httpx"
)

// Pagination bounds for listing endpoints.
const (
	DefaultPageSize = 100
	MaxPageSize     = 200
)

// CreateRoleRequest creates a new role.
type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description,omitempty" validate:"max=255"`
}

// CreatePermissionRequest creates a new permission.
type CreatePermissionRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description,omitempty" validate:"max=255"`
}

// UpdateRoleRequest partially updates role base attributes. Only supplied
// fields change; updated_at bumps when any of them does.
type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=3,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
}

// UpdatePermissionRequest partially updates permission base attributes.
type UpdatePermissionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
}

// PermissionRef references a permission by ID or by name. Exactly one side
// must be populated.
type PermissionRef struct {
	ID   *uuid.UUID `json:"permission_id,omitempty"`
	Name *string    `json:"permission_name,omitempty"`
}

// Validate rejects the request before any mutation begins when the variant
// is empty or ambiguous.
func (r PermissionRef) Validate() error {
	if (r.ID == nil) == (r.Name == nil) {
		return fmt.Errorf("%w: exactly one of permission_id or permission_name required", httpx.ErrValidation)
	}
	return nil
}

// RoleRef references a role by ID or by name. Exactly one side must be
// populated.
type RoleRef struct {
	ID   *uuid.UUID `json:"role_id,omitempty"`
	Name *string    `json:"role_name,omitempty"`
}

// Validate rejects the request when the variant is empty or ambiguous.
func (r RoleRef) Validate() error {
	if (r.ID == nil) == (r.Name == nil) {
		return fmt.Errorf("%w: exactly one of role_id or role_name required", httpx.ErrValidation)
	}
	return nil
}

// ListRequest carries pagination for the listing endpoints.
type ListRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Normalize rejects a negative offset and clamps the limit into
// [1, MaxPageSize], defaulting to DefaultPageSize when absent.
func (l *ListRequest) Normalize() error {
	if l.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0", httpx.ErrValidation)
	}
	if l.Limit <= 0 {
		l.Limit = DefaultPageSize
	}
	if l.Limit > MaxPageSize {
		l.Limit = MaxPageSize
	}
	return nil
}

// CheckRequest asks whether a user holds a permission.
type CheckRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	Permission string `json:"permission" validate:"required"`
}

// CheckResponse answers a permission check. Reason is set only on denial.
type CheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
