package rbac

import (
	"fmt"

	"github.com/warden-iam/warden/internal/platform/httpx"
)

// Domain errors wrap the httpx sentinels so the transport edge maps them to
// a status with errors.Is. Infrastructure failures are never wrapped into
// this taxonomy and surface as 500s.
var (
	ErrRoleNotFound       = fmt.Errorf("%w: role", httpx.ErrNotFound)
	ErrPermissionNotFound = fmt.Errorf("%w: permission", httpx.ErrNotFound)
	ErrRoleExists         = fmt.Errorf("%w: role name already exists", httpx.ErrConflict)
	ErrPermissionExists   = fmt.Errorf("%w: permission name already exists", httpx.ErrConflict)
	ErrRoleInUse          = fmt.Errorf("%w: role is still assigned", httpx.ErrConflict)
	ErrPermissionInUse    = fmt.Errorf("%w: permission is still assigned", httpx.ErrConflict)
)
