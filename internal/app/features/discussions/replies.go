// internal/app/features/discussions/replies.go
package discussions

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type createReplyRequest struct {
	GroupID       string   `json:"groupId" validate:"required"`
	ParentType    string   `json:"parentType" validate:"required"`
	ParentID      string   `json:"parentId" validate:"required"`
	Content       string   `json:"content" validate:"required,max=20000"`
	AttachmentIDs []string `json:"attachmentIds"`
}

// parentRef parses a parent type and id pair. An unknown type is a
// validation failure; a malformed id reads as a missing parent.
func parentRef(kind, id string) (models.ParentRef, error) {
	k, err := models.ParseParentKind(kind)
	if err != nil {
		return models.ParentRef{}, apperr.Validation("parentType must be post or announcement").WithCode("INVALID_PARENT_TYPE")
	}
	oid, err := respond.ParseID(id, string(k))
	if err != nil {
		return models.ParentRef{}, err
	}
	return models.ParentRef{Kind: k, ID: oid}, nil
}

func (h *Handler) parentGroup(ctx context.Context, ref models.ParentRef) (primitive.ObjectID, error) {
	gid, err := h.Store.ParentGroup(ctx, ref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return gid, apperr.NotFound(string(ref.Kind))
	}
	return gid, err
}

// HandleCreateReply handles POST /api/discussions/replies. The reply must
// name the same group as the post or announcement it answers.
func (h *Handler) HandleCreateReply(w http.ResponseWriter, r *http.Request) {
	var req createReplyRequest
	uploads, err := h.Attach.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	groupID, err := groupParam(req.GroupID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ref, err := parentRef(req.ParentType, req.ParentID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	content := htmlsanitize.Rich(req.Content)
	if content == "" {
		respond.Error(w, r, h.Log, apperr.Validation("content is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	parentGroup, err := h.parentGroup(ctx, ref)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.CheckParentGroup(groupID, parentGroup); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	actor, err := h.authorize(ctx, r, groupID, access.KindReply, primitive.NilObjectID, access.Contribute)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	batch, err := h.Attach.Prepare(ctx, actor.ID, groupID, req.AttachmentIDs, uploads)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var created models.DiscussionReply
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := batch.Insert(ctx); err != nil {
			return err
		}
		var err error
		created, err = h.Store.CreateReply(ctx, models.DiscussionReply{
			GroupID:     groupID,
			CreatedBy:   actor.ID,
			Parent:      ref,
			Content:     content,
			Attachments: batch.IDs,
		})
		return err
	})
	if err != nil {
		batch.Discard(ctx)
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("reply created",
		zap.String("reply_id", created.ID.Hex()),
		zap.String("parent", string(ref.Kind)+":"+ref.ID.Hex()))
	respond.Created(w, map[string]any{"message": "Reply created", "reply": created})
}

// ServeReplies handles GET /api/discussions/replies?parentType=&parentId=.
func (h *Handler) ServeReplies(w http.ResponseWriter, r *http.Request) {
	ref, err := parentRef(query.Get(r, "parentType"), query.Get(r, "parentId"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	groupID, err := h.parentGroup(ctx, ref)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if _, err := h.authorize(ctx, r, groupID, access.KindReply, primitive.NilObjectID, access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	replies, err := h.Store.ListReplies(ctx, ref)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"success": true, "count": len(replies), "data": replies})
}

func (h *Handler) loadReply(ctx context.Context, r *http.Request) (models.DiscussionReply, error) {
	id, err := respond.PathID(r, "id", "reply")
	if err != nil {
		return models.DiscussionReply{}, err
	}
	rep, err := h.Store.GetReply(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rep, apperr.NotFound("reply")
	}
	return rep, err
}

// HandleUpdateReply handles PATCH /api/discussions/replies/{id}.
func (h *Handler) HandleUpdateReply(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	uploads, err := h.Attach.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	rep, err := h.loadReply(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	actor, err := h.authorize(ctx, r, rep.GroupID, access.KindReply, rep.CreatedBy, access.Update)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	content, err := editedContent(req.Content)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if len(rep.Attachments)+len(req.AttachmentIDs)+len(uploads) > maxAttachments {
		respond.Error(w, r, h.Log, apperr.Validation("too many attachments").WithCode("TOO_MANY_FILES"))
		return
	}
	batch, err := h.Attach.Prepare(ctx, actor.ID, rep.GroupID, req.AttachmentIDs, uploads)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var updated models.DiscussionReply
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := batch.Insert(ctx); err != nil {
			return err
		}
		var err error
		updated, err = h.Store.UpdateReply(ctx, rep.ID, content, batch.IDs)
		return err
	})
	if err != nil {
		batch.Discard(ctx)
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Reply updated", "reply": updated})
}

// HandleDeleteReply handles DELETE /api/discussions/replies/{id}.
func (h *Handler) HandleDeleteReply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep, err := h.loadReply(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if _, err := h.authorize(ctx, r, rep.GroupID, access.KindReply, rep.CreatedBy, access.Delete); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	res, err := h.Cascade.DeleteReply(ctx, rep.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Reply deleted", "removed": res})
}
