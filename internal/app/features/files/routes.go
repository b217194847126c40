// internal/app/features/files/routes.go
package files

import (
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts file routes under /api/files. The download route is
// authorized by its signed token instead of a bearer header.
func Routes(h *Handler, tokens *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Get("/download", h.ServeDownload)

	r.Group(func(r chi.Router) {
		r.Use(tokens.RequireSignedIn)
		r.Get("/", h.ServeList)
		r.Post("/", h.HandleUpload)
		r.Get("/{id}/link", h.ServeLink)
		r.Delete("/{id}", h.HandleDelete)
	})
	return r
}
