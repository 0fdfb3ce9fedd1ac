package rbac

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the RBAC API under the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Post("/", h.createRole)
		r.Get("/", h.listRoles)
		r.Route("/{roleID}", func(r chi.Router) {
			r.Get("/", h.getRole)
			r.Patch("/", h.updateRole)
			r.Delete("/", h.deleteRole)
			r.Post("/permissions", h.assignPermissionToRole)
			r.Delete("/permissions/{permissionID}", h.removePermissionFromRole)
		})
	})

	r.Route("/permissions", func(r chi.Router) {
		r.Post("/", h.createPermission)
		r.Get("/", h.listPermissions)
		r.Route("/{permissionID}", func(r chi.Router) {
			r.Get("/", h.getPermission)
			r.Patch("/", h.updatePermission)
			r.Delete("/", h.deletePermission)
		})
	})

	r.Route("/users/{userID}/roles", func(r chi.Router) {
		r.Get("/", h.listRolesForUser)
		r.Post("/", h.assignRoleToUser)
		r.Delete("/{roleID}", h.removeRoleFromUser)
	})

	r.Post("/check", h.check)
}
