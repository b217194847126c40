// internal/app/features/systemusers/delete.go
package systemusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleDelete handles DELETE /api/admin/users/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, u, err := h.loadTarget(ctx, r, access.DeleteUser)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if u.ID == actor.ID {
		respond.Error(w, r, h.Log, apperr.Conflict("CANNOT_DELETE_SELF", "You cannot delete your own account"))
		return
	}

	res, err := h.Cascade.DeleteUser(ctx, u.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("user deleted", zap.String("user_id", u.ID.Hex()), zap.Any("removed", res))
	respond.OK(w, map[string]any{"message": "User deleted", "removed": res})
}
