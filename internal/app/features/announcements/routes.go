// internal/app/features/announcements/routes.go
package announcements

import (
	"github.com/go-chi/chi/v5"
)

// maxAttachments caps the attachment list of one announcement across edits.
const maxAttachments = 10

// MountRoutes attaches announcement routes to r. The caller is expected to
// have applied RequireSignedIn.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeAnnouncement)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
}
