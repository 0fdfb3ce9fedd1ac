package rbac

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/warden-iam/warden/internal/observability"
	"github.com/warden-iam/warden/internal/platform/httpx"
)

// Service is the authorization façade: it validates incoming requests,
// resolves id-or-name references, performs the existence checks required
// before any relation mutation, and answers permission checks through the
// decision cache.
type Service struct {
	repo     Repository
	cache    *DecisionCache
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewService constructs the façade. Cache and metrics may be nil.
func NewService(repo Repository, cache *DecisionCache, metrics *observability.Metrics) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// CreateRole creates a role. The store's unique index on name is the
// authority for collisions.
func (s *Service) CreateRole(ctx context.Context, req CreateRoleRequest) (Role, error) {
	if err := s.valid(req); err != nil {
		return Role{}, err
	}
	return s.repo.CreateRole(ctx, req.Name, req.Description)
}

// GetRole fetches a role and its resolved permission set.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	return s.withPermissions(ctx, role)
}

// ListRoles returns roles ordered by name ascending.
func (s *Service) ListRoles(ctx context.Context, req ListRequest) ([]Role, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx, req.Offset, req.Limit)
}

// UpdateRole changes role base attributes and bumps updated_at.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (Role, error) {
	if err := s.valid(req); err != nil {
		return Role{}, err
	}
	role, err := s.repo.UpdateRole(ctx, id, req.Name, req.Description)
	if err != nil {
		return Role{}, err
	}
	return s.withPermissions(ctx, role)
}

// DeleteRole removes a role that has no live associations.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteRole(ctx, id)
}

// CreatePermission creates a permission.
func (s *Service) CreatePermission(ctx context.Context, req CreatePermissionRequest) (Permission, error) {
	if err := s.valid(req); err != nil {
		return Permission{}, err
	}
	return s.repo.CreatePermission(ctx, req.Name, req.Description)
}

// GetPermission fetches a permission by ID.
func (s *Service) GetPermission(ctx context.Context, id uuid.UUID) (Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

// ListPermissions returns permissions ordered by name ascending.
func (s *Service) ListPermissions(ctx context.Context, req ListRequest) ([]Permission, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(ctx, req.Offset, req.Limit)
}

// UpdatePermission changes permission base attributes and bumps updated_at.
func (s *Service) UpdatePermission(ctx context.Context, id uuid.UUID, req UpdatePermissionRequest) (Permission, error) {
	if err := s.valid(req); err != nil {
		return Permission{}, err
	}
	return s.repo.UpdatePermission(ctx, id, req.Name, req.Description)
}

// DeletePermission removes a permission that has no live assignments.
func (s *Service) DeletePermission(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeletePermission(ctx, id)
}

// AssignPermissionToRole attaches the referenced permission to the role.
// Re-assigning an existing pair is a no-op. Returns the role with its
// resolved permission set.
func (s *Service) AssignPermissionToRole(ctx context.Context, roleID uuid.UUID, ref PermissionRef) (Role, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	perm, err := s.resolvePermission(ctx, ref)
	if err != nil {
		return Role{}, err
	}
	if err := s.repo.AttachPermission(ctx, role.ID, perm.ID); err != nil {
		return Role{}, err
	}
	s.cache.Invalidate(ctx)
	return s.withPermissions(ctx, role)
}

// RemovePermissionFromRole detaches the permission from the role. Both must
// exist; an absent association row is a no-op.
func (s *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) (Role, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
		return Role{}, err
	}
	if err := s.repo.DetachPermission(ctx, role.ID, permissionID); err != nil {
		return Role{}, err
	}
	s.cache.Invalidate(ctx)
	return s.withPermissions(ctx, role)
}

// AssignRoleToUser grants the referenced role to an externally owned user ID.
// Idempotent per (user, role) pair.
func (s *Service) AssignRoleToUser(ctx context.Context, userID string, ref RoleRef) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id required", httpx.ErrValidation)
	}
	role, err := s.resolveRole(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, userID, role.ID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// RemoveRoleFromUser revokes the role from the user. The role must exist;
// an absent association row is a no-op.
func (s *Service) RemoveRoleFromUser(ctx context.Context, userID string, roleID uuid.UUID) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id required", httpx.ErrValidation)
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// ListRolesForUser returns the user's roles ordered by name. Unknown users
// yield an empty list since identity is external.
func (s *Service) ListRolesForUser(ctx context.Context, userID string) ([]Role, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id required", httpx.ErrValidation)
	}
	return s.repo.RolesForUser(ctx, userID)
}

// Check answers whether the user holds the permission through any role.
// Unknown users and unknown permission names fail closed to false.
func (s *Service) Check(ctx context.Context, req CheckRequest) (CheckResponse, error) {
	if err := s.valid(req); err != nil {
		return CheckResponse{}, err
	}
	allowed, err := s.cache.Allowed(ctx, req.UserID, req.Permission, func(ctx context.Context) (bool, error) {
		return s.repo.HasPermission(ctx, req.UserID, req.Permission)
	})
	if err != nil {
		return CheckResponse{}, err
	}
	s.metrics.ObserveCheckDecision(allowed)
	resp := CheckResponse{Allowed: allowed}
	if !allowed {
		resp.Reason = "no role grants this permission"
	}
	return resp, nil
}

// EffectivePermissions returns the deduplicated permission names the user
// holds through any role.
func (s *Service) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	return s.repo.EffectivePermissions(ctx, userID)
}

// WarmDecisionCache primes the cache with positive decisions for the most
// recently assigned users. Returns the number of users warmed.
func (s *Service) WarmDecisionCache(ctx context.Context, limit int) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	users, err := s.repo.RecentlyAssignedUsers(ctx, limit)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, userID := range users {
		perms, err := s.repo.EffectivePermissions(ctx, userID)
		if err != nil {
			return warmed, err
		}
		if len(perms) == 0 {
			continue
		}
		if err := s.cache.Prime(ctx, userID, perms); err != nil {
			return warmed, err
		}
		warmed++
	}
	return warmed, nil
}

func (s *Service) resolvePermission(ctx context.Context, ref PermissionRef) (Permission, error) {
	if err := ref.Validate(); err != nil {
		return Permission{}, err
	}
	if ref.ID != nil {
		return s.repo.GetPermission(ctx, *ref.ID)
	}
	perm, err := s.repo.GetPermissionByName(ctx, *ref.Name)
	if err != nil {
		return Permission{}, err
	}
	if perm == nil {
		return Permission{}, ErrPermissionNotFound
	}
	return *perm, nil
}

func (s *Service) resolveRole(ctx context.Context, ref RoleRef) (Role, error) {
	if err := ref.Validate(); err != nil {
		return Role{}, err
	}
	if ref.ID != nil {
		return s.repo.GetRole(ctx, *ref.ID)
	}
	role, err := s.repo.GetRoleByName(ctx, *ref.Name)
	if err != nil {
		return Role{}, err
	}
	if role == nil {
		return Role{}, ErrRoleNotFound
	}
	return *role, nil
}

func (s *Service) withPermissions(ctx context.Context, role Role) (Role, error) {
	perms, err := s.repo.RolePermissions(ctx, role.ID)
	if err != nil {
		return Role{}, err
	}
	role.Permissions = perms
	return role, nil
}

func (s *Service) valid(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}
