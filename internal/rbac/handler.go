package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warden-iam/warden/internal/platform/httpx"
)

// Authorizer is the façade surface the HTTP layer consumes.
type Authorizer interface {
	CreateRole(ctx context.Context, req CreateRoleRequest) (Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	ListRoles(ctx context.Context, req ListRequest) ([]Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error

	CreatePermission(ctx context.Context, req CreatePermissionRequest) (Permission, error)
	GetPermission(ctx context.Context, id uuid.UUID) (Permission, error)
	ListPermissions(ctx context.Context, req ListRequest) ([]Permission, error)
	UpdatePermission(ctx context.Context, id uuid.UUID, req UpdatePermissionRequest) (Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error

	AssignPermissionToRole(ctx context.Context, roleID uuid.UUID, ref PermissionRef) (Role, error)
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) (Role, error)
	AssignRoleToUser(ctx context.Context, userID string, ref RoleRef) error
	RemoveRoleFromUser(ctx context.Context, userID string, roleID uuid.UUID) error
	ListRolesForUser(ctx context.Context, userID string) ([]Role, error)
	Check(ctx context.Context, req CheckRequest) (CheckResponse, error)
}

// Handler translates HTTP requests into façade operations.
type Handler struct {
	logger  *slog.Logger
	service Authorizer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Authorizer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	role, err := h.service.CreateRole(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	roles, err := h.service.ListRoles(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "roleID")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "roleID")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondError(w, r, "delete role", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req CreatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "create permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perms, err := h.service.ListPermissions(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "permissionID")
	if !ok {
		return
	}
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "permissionID")
	if !ok {
		return
	}
	var req UpdatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.respondError(w, r, "delete permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) assignPermissionToRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseID(w, r, "roleID")
	if !ok {
		return
	}
	var ref PermissionRef
	if err := httpx.DecodeJSON(r, &ref); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	role, err := h.service.AssignPermissionToRole(r.Context(), roleID, ref)
	if err != nil {
		h.respondError(w, r, "assign permission to role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) removePermissionFromRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseID(w, r, "roleID")
	if !ok {
		return
	}
	permissionID, ok := parseID(w, r, "permissionID")
	if !ok {
		return
	}
	role, err := h.service.RemovePermissionFromRole(r.Context(), roleID, permissionID)
	if err != nil {
		h.respondError(w, r, "remove permission from role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) assignRoleToUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var ref RoleRef
	if err := httpx.DecodeJSON(r, &ref); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.service.AssignRoleToUser(r.Context(), userID, ref); err != nil {
		h.respondError(w, r, "assign role to user", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) removeRoleFromUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	roleID, ok := parseID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.RemoveRoleFromUser(r.Context(), userID, roleID); err != nil {
		h.respondError(w, r, "remove role from user", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listRolesForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	roles, err := h.service.ListRolesForUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, "list roles for user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	resp, err := h.service.Check(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "permission check", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	httpx.RespondError(w, err)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("invalid %s", param))
		return uuid.Nil, false
	}
	return id, true
}

func parseListRequest(r *http.Request) (ListRequest, error) {
	var req ListRequest
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%w: offset must be an integer", httpx.ErrValidation)
		}
		req.Offset = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%w: limit must be an integer", httpx.ErrValidation)
		}
		req.Limit = v
	}
	return req, nil
}
