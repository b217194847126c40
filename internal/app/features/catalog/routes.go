// internal/app/features/catalog/routes.go
package catalog

import (
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /courses and /classes; bootstrap mounts it at /api/admin.
func Routes(h *Handler, tokens *auth.Manager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(tokens.RequireSignedIn)
		pr.Use(h.requireCatalog)

		pr.Get("/courses", h.ServeCourses)
		pr.Post("/courses", h.HandleCreateCourse)
		pr.Get("/courses/{id}", h.ServeCourse)
		pr.Patch("/courses/{id}", h.HandleUpdateCourse)
		pr.Delete("/courses/{id}", h.HandleDeleteCourse)

		pr.Get("/classes", h.ServeClasses)
		pr.Post("/classes", h.HandleCreateClass)
		pr.Patch("/classes/{id}", h.HandleUpdateClass)
		pr.Delete("/classes/{id}", h.HandleDeleteClass)
	})

	return r
}
