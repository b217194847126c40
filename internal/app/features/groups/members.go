// internal/app/features/groups/members.go
package groups

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	membershipstore "github.com/dalemusser/learnportal/internal/app/store/memberships"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type memberRow struct {
	UserID      primitive.ObjectID `json:"user_id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Role        string             `json:"role"`
	RoleInGroup string             `json:"role_in_group"`
	JoinedAt    time.Time          `json:"joined_at"`
}

// ServeMembers handles GET /api/groups/{id}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.loadGroup(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.Require(t.actor, access.Read, access.Resource{Kind: access.KindMembership, Group: t.facts}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ms, err := h.Memberships.ListByGroup(ctx, t.group.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rows := make([]memberRow, 0, len(ms))
	for _, m := range ms {
		u, ok := byID[m.UserID]
		if !ok {
			continue
		}
		rows = append(rows, memberRow{
			UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
			RoleInGroup: m.RoleInGroup, JoinedAt: m.JoinedAt,
		})
	}
	respond.OK(w, map[string]any{"success": true, "count": len(rows), "data": rows})
}

type addMemberRequest struct {
	UserID      string `json:"userId" validate:"required"`
	RoleInGroup string `json:"roleInGroup" validate:"omitempty,oneof=member creator"`
}

// HandleAddMember handles POST /api/groups/{id}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if req.RoleInGroup == "" {
		req.RoleInGroup = models.GroupRoleMember
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.loadGroup(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.Require(t.actor, access.ManageMembers, access.Resource{Kind: access.KindMembership, Group: t.facts}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	u, err := h.memberUser(ctx, req.UserID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.CheckGroupRole(req.RoleInGroup, u.Role); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var m models.GroupMembership
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		m, err = h.Memberships.Add(ctx, t.group.ID, u.ID, req.RoleInGroup)
		if err != nil {
			return err
		}
		if req.RoleInGroup == models.GroupRoleCreator {
			return h.Groups.AddCreator(ctx, t.group.ID, u.ID)
		}
		return nil
	})
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		respond.Error(w, r, h.Log, apperr.Conflict("ALREADY_MEMBER", "User is already a member of this group"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("member added",
		zap.String("group_id", t.group.ID.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("role_in_group", m.RoleInGroup))
	respond.Created(w, map[string]any{"message": "Member added", "membership": m})
}

type changeRoleRequest struct {
	RoleInGroup string `json:"roleInGroup" validate:"required,oneof=member creator"`
}

// HandleChangeRole handles PATCH /api/groups/{id}/members/{userID}. The
// group's creators list follows the membership role.
func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.loadGroup(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.Require(t.actor, access.ManageMembers, access.Resource{Kind: access.KindMembership, Group: t.facts}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	userID, err := respond.PathID(r, "userID", "user")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	u, err := h.memberUser(ctx, userID.Hex())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.CheckGroupRole(req.RoleInGroup, u.Role); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if req.RoleInGroup == models.GroupRoleMember {
		if err := access.CheckMemberRemoval(t.facts, u.ID); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.Memberships.SetRole(ctx, t.group.ID, u.ID, req.RoleInGroup); err != nil {
			return err
		}
		if req.RoleInGroup == models.GroupRoleCreator {
			return h.Groups.AddCreator(ctx, t.group.ID, u.ID)
		}
		return h.Groups.RemoveCreator(ctx, t.group.ID, u.ID)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, r, h.Log, apperr.NotFound("membership"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Member role updated", "roleInGroup": req.RoleInGroup})
}

// HandleRemoveMember handles DELETE /api/groups/{id}/members/{userID}.
// Members may remove themselves; the primary creator can never be removed.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.loadGroup(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	userID, err := respond.PathID(r, "userID", "user")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	action := access.ManageMembers
	if userID == t.actor.ID {
		action = access.Delete
	}
	if err := access.Require(t.actor, action, access.Resource{
		Kind:    access.KindMembership,
		OwnerID: userID,
		Group:   t.facts,
	}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.CheckMemberRemoval(t.facts, userID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var removed bool
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		removed, err = h.Memberships.Remove(ctx, t.group.ID, userID)
		if err != nil || !removed {
			return err
		}
		return h.Groups.RemoveCreator(ctx, t.group.ID, userID)
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !removed {
		respond.Error(w, r, h.Log, apperr.NotFound("membership"))
		return
	}
	h.Log.Info("member removed", zap.String("group_id", t.group.ID.Hex()), zap.String("user_id", userID.Hex()))
	respond.OK(w, map[string]string{"message": "Member removed"})
}

// memberUser loads the user to be placed in a group. Only active accounts
// can join.
func (h *Handler) memberUser(ctx context.Context, hex string) (models.User, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return models.User{}, apperr.Validation("userId is invalid")
	}
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, apperr.NotFound("user")
	}
	if err != nil {
		return models.User{}, err
	}
	if !u.IsActive() {
		return models.User{}, apperr.Validation("user account is inactive").WithCode("USER_INACTIVE")
	}
	return u, nil
}
