// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, tokens *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Patch("/", h.HandleUpdate)
	r.Post("/password", h.HandleChangePassword)
	return r
}
