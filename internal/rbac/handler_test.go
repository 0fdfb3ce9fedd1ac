package rbac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	handler := NewHandler(nil, NewService(repo, nil, nil))
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeRole(t *testing.T, rec *httptest.ResponseRecorder) Role {
	t.Helper()
	var role Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	return role
}

func TestCreateRoleEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "admin", Description: "full access"})
	require.Equal(t, http.StatusCreated, rec.Code)

	role := decodeRole(t, rec)
	assert.Equal(t, "admin", role.Name)
	assert.NotZero(t, role.ID)

	rec = doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "admin"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateRoleRejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/roles", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoleEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	created := decodeRole(t, doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "editor"}))

	rec := doJSON(t, router, http.MethodGet, "/roles/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeRole(t, rec).ID)

	rec = doJSON(t, router, http.MethodGet, "/roles/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/roles/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRolesEndpointPagination(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, name := range []string{"bravo", "alpha", "charlie"} {
		rec := doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/roles?offset=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roles []Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	require.Len(t, roles, 1)
	assert.Equal(t, "bravo", roles[0].Name)

	rec = doJSON(t, router, http.MethodGet, "/roles?offset=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/roles?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRoleEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	created := decodeRole(t, doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "editor"}))

	desc := "content editors"
	rec := doJSON(t, router, http.MethodPatch, "/roles/"+created.ID.String(), UpdateRoleRequest{Description: &desc})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, desc, decodeRole(t, rec).Description)
}

func TestDeleteRoleEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	created := decodeRole(t, doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "temp"}))

	rec := doJSON(t, router, http.MethodDelete, "/roles/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/roles/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRolePermissionEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	role := decodeRole(t, doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "admin"}))

	rec := doJSON(t, router, http.MethodPost, "/permissions", CreatePermissionRequest{Name: "users:delete"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var perm Permission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &perm))

	rec = doJSON(t, router, http.MethodPost, "/roles/"+role.ID.String()+"/permissions", PermissionRef{ID: &perm.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeRole(t, rec)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "users:delete", updated.Permissions[0].Name)

	// Deleting an attached permission must be refused.
	rec = doJSON(t, router, http.MethodDelete, "/permissions/"+perm.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/roles/%s/permissions/%s", role.ID, perm.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeRole(t, rec).Permissions)
}

func TestAssignPermissionAmbiguousRef(t *testing.T) {
	router, _ := newTestRouter(t)

	role := decodeRole(t, doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "admin"}))

	rec := doJSON(t, router, http.MethodPost, "/roles/"+role.ID.String()+"/permissions", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserRoleEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	role := decodeRole(t, doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "admin"}))

	rec := doJSON(t, router, http.MethodPost, "/users/u1/roles", RoleRef{ID: &role.ID})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/users/u1/roles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roles []Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	require.Len(t, roles, 1)
	assert.Equal(t, "admin", roles[0].Name)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/users/u1/roles/%s", role.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/users/u1/roles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	assert.Empty(t, roles)
}

func TestAssignUnknownRoleToUser(t *testing.T) {
	router, _ := newTestRouter(t)

	name := "ghost"
	rec := doJSON(t, router, http.MethodPost, "/users/u1/roles", RoleRef{Name: &name})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	role := decodeRole(t, doJSON(t, router, http.MethodPost, "/roles", CreateRoleRequest{Name: "admin"}))
	rec := doJSON(t, router, http.MethodPost, "/permissions", CreatePermissionRequest{Name: "users:delete"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var perm Permission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &perm))

	rec = doJSON(t, router, http.MethodPost, "/roles/"+role.ID.String()+"/permissions", PermissionRef{ID: &perm.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/users/u1/roles", RoleRef{ID: &role.ID})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/check", CheckRequest{UserID: "u1", Permission: "users:delete"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Allowed)
	assert.Empty(t, resp.Reason)

	rec = doJSON(t, router, http.MethodPost, "/check", CheckRequest{UserID: "u2", Permission: "users:delete"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Allowed)
	assert.NotEmpty(t, resp.Reason)

	rec = doJSON(t, router, http.MethodPost, "/check", CheckRequest{UserID: "", Permission: "users:delete"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProblemResponseShape(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/roles/00000000-0000-0000-0000-000000000001", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.EqualValues(t, http.StatusNotFound, problem["status"])
	assert.NotEmpty(t, problem["title"])
}
