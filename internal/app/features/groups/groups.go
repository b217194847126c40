// internal/app/features/groups/groups.go
package groups

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/authz"
	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type groupRequest struct {
	Name        string  `json:"name" validate:"max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// HandleCreate handles POST /api/groups. The caller becomes the primary
// creator and gets a creator membership.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)
	if err := access.Require(actor, access.CreateGroup, access.Resource{Kind: access.KindGroup}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req groupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	name := htmlsanitize.Plain(req.Name)
	if name == "" {
		respond.Error(w, r, h.Log, apperr.Validation("name is required"))
		return
	}
	g := models.Group{Name: name, CreatedBy: actor.ID}
	if req.Description != nil {
		g.Description = htmlsanitize.Plain(*req.Description)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var created models.Group
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		created, err = h.Groups.Create(ctx, g)
		if err != nil {
			return err
		}
		_, err = h.Memberships.Add(ctx, created.ID, actor.ID, models.GroupRoleCreator)
		return err
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("group created", zap.String("group_id", created.ID.Hex()), zap.String("by", actor.ID.Hex()))
	respond.Created(w, map[string]any{"message": "Group created", "group": created})
}

// ServeList handles GET /api/groups. Admins see every group; everyone else
// sees the groups they belong to.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var ids []primitive.ObjectID
	if !authz.IsAdmin(r) {
		var err error
		ids, err = grouppolicy.GroupIDsFor(ctx, h.DB, actor.ID)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
	}
	groups, err := h.Groups.List(ctx, ids)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"success": true, "count": len(groups), "data": groups})
}

// ServeGroup handles GET /api/groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.loadGroup(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := t.require(access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	members, err := h.Memberships.CountByGroup(ctx, t.group.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"group": t.group, "memberCount": members})
}

// HandleUpdate handles PATCH /api/groups/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	name := htmlsanitize.Plain(req.Name)
	if name == "" && req.Description == nil {
		respond.Error(w, r, h.Log, apperr.Validation("name or description is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.loadGroup(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := t.require(access.Update); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var desc *string
	if req.Description != nil {
		d := htmlsanitize.Plain(*req.Description)
		desc = &d
	}
	g, err := h.Groups.UpdateInfo(ctx, t.group.ID, name, desc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, r, h.Log, apperr.NotFound("group"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Group updated", "group": g})
}

// HandleDelete handles DELETE /api/groups/{id}. Only an admin or the
// primary creator may delete; everything scoped to the group goes with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	t, err := h.loadGroup(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := t.require(access.Delete); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	res, err := h.Cascade.DeleteGroup(ctx, t.group.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("group deleted",
		zap.String("group_id", t.group.ID.Hex()),
		zap.String("by", t.actor.ID.Hex()),
		zap.Any("removed", res))
	respond.OK(w, map[string]any{"message": "Group deleted", "removed": res})
}
