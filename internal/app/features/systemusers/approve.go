// internal/app/features/systemusers/approve.go
package systemusers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleApprove handles PATCH /api/admin/users/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, u, err := h.loadTarget(ctx, r, access.ApproveUser)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if u.Role == models.RoleAdmin {
		respond.Error(w, r, h.Log, apperr.Conflict("CANNOT_APPROVE_ADMIN", "Cannot approve admin accounts"))
		return
	}
	changed, err := h.Users.Approve(ctx, u.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !changed {
		respond.Error(w, r, h.Log, apperr.Conflict("ALREADY_APPROVED", "User already approved"))
		return
	}

	u.ApprovalStatus = models.ApprovalApproved
	h.Log.Info("user approved", zap.String("user_id", u.ID.Hex()), zap.String("by", actor.ID.Hex()))
	respond.OK(w, map[string]any{"message": "User approved", "user": u})
}

type bulkApproveRequest struct {
	UserIDs json.RawMessage `json:"userIds"`
}

// HandleBulkApprove handles POST /api/admin/users/bulk-approve.
//
// Malformed ids fail the request with INVALID_IDS before any lookup.
func (h *Handler) HandleBulkApprove(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)
	if err := access.Require(actor, access.ApproveUser, access.Resource{Kind: access.KindUser}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var req bulkApproveRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var raw []string
	if len(req.UserIDs) == 0 || json.Unmarshal(req.UserIDs, &raw) != nil {
		respond.Error(w, r, h.Log, apperr.Validation("userIds must be an array of ids").WithCode("INVALID_INPUT_TYPE"))
		return
	}
	if len(raw) == 0 {
		respond.Error(w, r, h.Log, apperr.Validation("userIds must not be empty").WithCode("EMPTY_ARRAY"))
		return
	}

	ids := make([]primitive.ObjectID, 0, len(raw))
	var invalid []string
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		ids = append(ids, id)
	}
	if len(invalid) > 0 {
		respond.Error(w, r, h.Log, apperr.Validation("some user ids are malformed").
			WithCode("INVALID_IDS").
			WithDetails(map[string]any{"invalidIds": invalid}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep, err := h.Cascade.ApproveUsers(ctx, ids)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"success": true, "data": rep})
}
