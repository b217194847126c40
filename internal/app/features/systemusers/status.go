// internal/app/features/systemusers/status.go
package systemusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.uber.org/zap"
)

// HandleDeactivate handles PATCH /api/admin/users/{id}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, access.DeactivateUser, models.StatusInactive)
}

// HandleActivate handles PATCH /api/admin/users/{id}/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, access.ActivateUser, models.StatusActive)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, action access.Action, status string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, u, err := h.loadTarget(ctx, r, action)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if u.Role == models.RoleAdmin && status == models.StatusInactive {
		respond.Error(w, r, h.Log, apperr.Conflict("CANNOT_DEACTIVATE_ADMIN", "Cannot deactivate admin accounts"))
		return
	}

	changed, err := h.Users.SetStatus(ctx, u.ID, status)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !changed {
		if status == models.StatusInactive {
			respond.Error(w, r, h.Log, apperr.Conflict("ALREADY_INACTIVE", "User already deactivated"))
		} else {
			respond.Error(w, r, h.Log, apperr.Conflict("ALREADY_ACTIVE", "User already active"))
		}
		return
	}

	u.Status = status
	h.Log.Info("user status changed",
		zap.String("user_id", u.ID.Hex()),
		zap.String("status", status),
		zap.String("by", actor.ID.Hex()))
	respond.OK(w, map[string]any{"message": "User " + status, "user": u})
}
