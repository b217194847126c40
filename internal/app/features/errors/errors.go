// internal/app/features/errors/errors.go
//
// Package errors serves the JSON fallbacks for unknown routes and methods.
package errors

import (
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
)

// Handler is the errors feature handler.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers requests for routes that do not exist.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, nil, apperr.New(apperr.KindNotFound, "route not found").WithCode("ROUTE_NOT_FOUND"))
}

// MethodNotAllowed answers requests whose method the route does not accept.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, map[string]any{
		"error": map[string]string{
			"code":    "METHOD_NOT_ALLOWED",
			"message": r.Method + " is not allowed on " + r.URL.Path,
		},
	})
}
