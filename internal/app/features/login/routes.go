// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves /api/auth. Provisioning at /users is mounted by systemusers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.With(h.Tokens.RequireSignedIn).Get("/me", h.ServeMe)
	return r
}
