// internal/app/features/discussions/routes.go
package discussions

import (
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// maxAttachments caps the attachment list of one post or reply across edits.
const maxAttachments = 10

// Routes mounts posts and replies under /api/discussions.
func Routes(h *Handler, tokens *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireSignedIn)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.ServePosts)
		r.Post("/", h.HandleCreatePost)
		r.Get("/{id}", h.ServePost)
		r.Patch("/{id}", h.HandleUpdatePost)
		r.Delete("/{id}", h.HandleDeletePost)
	})
	r.Route("/replies", func(r chi.Router) {
		r.Get("/", h.ServeReplies)
		r.Post("/", h.HandleCreateReply)
		r.Patch("/{id}", h.HandleUpdateReply)
		r.Delete("/{id}", h.HandleDeleteReply)
	})
	return r
}
