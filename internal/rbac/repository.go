package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-iam/warden/internal/platform/db"
)

// Postgres error codes the repository treats as domain outcomes.
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// Repository provides durable storage for roles, permissions and the two
// association relations. By-name lookups return (nil, nil) when absent since
// absence is a normal outcome there; by-ID lookups return a not-found error.
type Repository interface {
	CreateRole(ctx context.Context, name, description string) (Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context, offset, limit int) ([]Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, name, description *string) (Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error

	CreatePermission(ctx context.Context, name, description string) (Permission, error)
	GetPermission(ctx context.Context, id uuid.UUID) (Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)
	ListPermissions(ctx context.Context, offset, limit int) ([]Permission, error)
	UpdatePermission(ctx context.Context, id uuid.UUID, name, description *string) (Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error

	AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	RolePermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error)

	AssignRole(ctx context.Context, userID string, roleID uuid.UUID) error
	RemoveRole(ctx context.Context, userID string, roleID uuid.UUID) error
	RolesForUser(ctx context.Context, userID string) ([]Role, error)

	HasPermission(ctx context.Context, userID, permissionName string) (bool, error)
	EffectivePermissions(ctx context.Context, userID string) ([]string, error)
	RecentlyAssignedUsers(ctx context.Context, limit int) ([]string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

const roleColumns = "role_id, name, description, created_at, updated_at"
const permissionColumns = "permission_id, name, description, created_at, updated_at"

func (r *repository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		RETURNING `+roleColumns, name, description)
	role, err := scanRole(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, ErrRoleExists
		}
		return Role{}, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (r *repository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	row := r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE role_id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (r *repository) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	row := r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return &role, nil
}

func (r *repository) ListRoles(ctx context.Context, offset, limit int) ([]Role, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		ORDER BY name ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, name, description *string) (Role, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE roles
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    updated_at = now()
		WHERE role_id = $1
		RETURNING `+roleColumns, id, name, description)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		if isUniqueViolation(err) {
			return Role{}, ErrRoleExists
		}
		return Role{}, fmt.Errorf("update role: %w", err)
	}
	return role, nil
}

// DeleteRole removes a role that has no live associations. The check and the
// delete share one transaction; the FK constraints remain the authority for
// writers racing past the check.
func (r *repository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role_id = $1)
			    OR EXISTS (SELECT 1 FROM user_roles WHERE role_id = $1)`, id).Scan(&inUse)
		if err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		if inUse {
			return ErrRoleInUse
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE role_id = $1`, id)
		if err != nil {
			if isFKViolation(err) {
				return ErrRoleInUse
			}
			return fmt.Errorf("delete role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrRoleNotFound
		}
		return nil
	})
}

func (r *repository) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO permissions (name, description)
		VALUES ($1, $2)
		RETURNING `+permissionColumns, name, description)
	perm, err := scanPermission(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Permission{}, ErrPermissionExists
		}
		return Permission{}, fmt.Errorf("create permission: %w", err)
	}
	return perm, nil
}

func (r *repository) GetPermission(ctx context.Context, id uuid.UUID) (Permission, error) {
	row := r.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE permission_id = $1`, id)
	perm, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrPermissionNotFound
		}
		return Permission{}, fmt.Errorf("get permission: %w", err)
	}
	return perm, nil
}

func (r *repository) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	row := r.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE name = $1`, name)
	perm, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get permission by name: %w", err)
	}
	return &perm, nil
}

func (r *repository) ListPermissions(ctx context.Context, offset, limit int) ([]Permission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		ORDER BY name ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	perms := []Permission{}
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("list permissions: %w", err)
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

func (r *repository) UpdatePermission(ctx context.Context, id uuid.UUID, name, description *string) (Permission, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE permissions
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    updated_at = now()
		WHERE permission_id = $1
		RETURNING `+permissionColumns, id, name, description)
	perm, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrPermissionNotFound
		}
		if isUniqueViolation(err) {
			return Permission{}, ErrPermissionExists
		}
		return Permission{}, fmt.Errorf("update permission: %w", err)
	}
	return perm, nil
}

func (r *repository) DeletePermission(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM role_permissions WHERE permission_id = $1)`, id).Scan(&inUse)
		if err != nil {
			return fmt.Errorf("delete permission: %w", err)
		}
		if inUse {
			return ErrPermissionInUse
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE permission_id = $1`, id)
		if err != nil {
			if isFKViolation(err) {
				return ErrPermissionInUse
			}
			return fmt.Errorf("delete permission: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPermissionNotFound
		}
		return nil
	})
}

// AttachPermission inserts the association row. The composite-key constraint
// is the authority for concurrent duplicates: a conflicting insert collapses
// into the success path and assigned_at keeps its original value.
func (r *repository) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("attach permission: %w", err)
	}
	return nil
}

// DetachPermission deletes the association row. Absence is a no-op.
func (r *repository) DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("detach permission: %w", err)
	}
	return nil
}

func (r *repository) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.permission_id, p.name, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name ASC`, roleID)
	if err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	defer rows.Close()

	perms := []Permission{}
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("role permissions: %w", err)
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

func (r *repository) AssignRole(ctx context.Context, userID string, roleID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (r *repository) RemoveRole(ctx context.Context, userID string, roleID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	return nil
}

// RolesForUser returns the user's roles ordered by name. An unknown user
// yields an empty slice, never an error.
func (r *repository) RolesForUser(ctx context.Context, userID string) ([]Role, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.role_id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("roles for user: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("roles for user: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// HasPermission is a single existence check pushed down to Postgres. Unknown
// users and unknown permission names fall out as false without extra lookups.
func (r *repository) HasPermission(ctx context.Context, userID, permissionName string) (bool, error) {
	var allowed bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.permission_id = rp.permission_id
			WHERE ur.user_id = $1 AND p.name = $2
		)`, userID, permissionName).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("has permission: %w", err)
	}
	return allowed, nil
}

// EffectivePermissions returns the deduplicated permission names a user holds
// through any role.
func (r *repository) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.permission_id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("effective permissions: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("effective permissions: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RecentlyAssignedUsers lists distinct user IDs by most recent role
// assignment, used by the cache warm job.
func (r *repository) RecentlyAssignedUsers(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id
		FROM user_roles
		GROUP BY user_id
		ORDER BY max(assigned_at) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recently assigned users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("recently assigned users: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func scanPermission(row pgx.Row) (Permission, error) {
	var perm Permission
	err := row.Scan(&perm.ID, &perm.Name, &perm.Description, &perm.CreatedAt, &perm.UpdatedAt)
	return perm, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgFKViolation
}
