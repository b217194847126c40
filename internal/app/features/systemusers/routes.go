// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts account administration under /api/admin/users.
//
//	h := systemusers.NewHandler(db, enforcer, logger)
//	r.Mount("/api/admin/users", systemusers.Routes(h, tokens))
func Routes(h *Handler, tokens *auth.Manager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(tokens.RequireSignedIn)
		pr.Use(auth.RequireRole(models.RoleAdmin, models.RoleTeacher))

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Post("/bulk-approve", h.HandleBulkApprove)
		pr.Patch("/{id}/approve", h.HandleApprove)
		pr.Patch("/{id}/deactivate", h.HandleDeactivate)
		pr.Patch("/{id}/activate", h.HandleActivate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
