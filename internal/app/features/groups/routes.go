// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts group and membership management under /api/groups.
// Content routes (announcements, discussions, files) are mounted beside it.
func Routes(h *Handler, tokens *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeGroup)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	r.Get("/{id}/members", h.ServeMembers)
	r.Post("/{id}/members", h.HandleAddMember)
	r.Patch("/{id}/members/{userID}", h.HandleChangeRole)
	r.Delete("/{id}/members/{userID}", h.HandleRemoveMember)
	return r
}
