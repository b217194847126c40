// internal/app/features/discussions/posts.go
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

type createPostRequest struct {
	GroupID       string   `json:"groupId" validate:"required"`
	Content       string   `json:"content" validate:"required,max=20000"`
	AttachmentIDs []string `json:"attachmentIds"`
}

// postRow is a post in a list with its reply count.
type postRow struct {
	models.DiscussionPost
	ReplyCount int64 `json:"replyCount"`
}

// HandleCreatePost handles POST /api/discussions/posts. Any member of the
// group may post.
func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
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
	content := htmlsanitize.Rich(req.Content)
	if content == "" {
		respond.Error(w, r, h.Log, apperr.Validation("content is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	actor, err := h.authorize(ctx, r, groupID, access.KindPost, primitive.NilObjectID, access.Contribute)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	batch, err := h.Attach.Prepare(ctx, actor.ID, groupID, req.AttachmentIDs, uploads)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var created models.DiscussionPost
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := batch.Insert(ctx); err != nil {
			return err
		}
		var err error
		created, err = h.Store.CreatePost(ctx, models.DiscussionPost{
			GroupID:     groupID,
			CreatedBy:   actor.ID,
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
	h.Log.Info("post created", zap.String("post_id", created.ID.Hex()), zap.String("group_id", groupID.Hex()))
	respond.Created(w, map[string]any{"message": "Post created", "post": created})
}

// ServePosts handles GET /api/discussions/posts?groupId=.
func (h *Handler) ServePosts(w http.ResponseWriter, r *http.Request) {
	hex := query.Get(r, "groupId")
	if hex == "" {
		respond.Error(w, r, h.Log, apperr.Validation("groupId is required"))
		return
	}
	groupID, err := groupParam(hex)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	page, limit := respond.Page(r, 20, 100)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.authorize(ctx, r, groupID, access.KindPost, primitive.NilObjectID, access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	posts, total, err := h.Store.ListPosts(ctx, groupID, respond.Skip(page, limit), int64(limit))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ids := make([]primitive.ObjectID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := h.Store.ReplyCounts(ctx, ids)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	rows := make([]postRow, len(posts))
	for i, p := range posts {
		rows[i] = postRow{DiscussionPost: p, ReplyCount: counts[p.ID]}
	}
	respond.OK(w, respond.NewPaged(rows, total, page, limit))
}

func (h *Handler) loadPost(ctx context.Context, r *http.Request) (models.DiscussionPost, error) {
	id, err := respond.PathID(r, "id", "post")
	if err != nil {
		return models.DiscussionPost{}, err
	}
	p, err := h.Store.GetPost(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return p, apperr.NotFound("post")
	}
	return p, err
}

// ServePost handles GET /api/discussions/posts/{id}, returning the post
// with its replies oldest first.
func (h *Handler) ServePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.loadPost(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if _, err := h.authorize(ctx, r, p.GroupID, access.KindPost, p.CreatedBy, access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	replies, err := h.Store.ListReplies(ctx, models.ParentRef{Kind: models.ParentPost, ID: p.ID})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"post": p, "replies": replies})
}

// HandleUpdatePost handles PATCH /api/discussions/posts/{id}.
func (h *Handler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	uploads, err := h.Attach.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	p, err := h.loadPost(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	actor, err := h.authorize(ctx, r, p.GroupID, access.KindPost, p.CreatedBy, access.Update)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	content, err := editedContent(req.Content)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if len(p.Attachments)+len(req.AttachmentIDs)+len(uploads) > maxAttachments {
		respond.Error(w, r, h.Log, apperr.Validation("too many attachments").WithCode("TOO_MANY_FILES"))
		return
	}
	batch, err := h.Attach.Prepare(ctx, actor.ID, p.GroupID, req.AttachmentIDs, uploads)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var updated models.DiscussionPost
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := batch.Insert(ctx); err != nil {
			return err
		}
		var err error
		updated, err = h.Store.UpdatePost(ctx, p.ID, content, batch.IDs)
		return err
	})
	if err != nil {
		batch.Discard(ctx)
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Post updated", "post": updated})
}

// HandleDeletePost handles DELETE /api/discussions/posts/{id}.
func (h *Handler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, err := h.loadPost(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	actor, err := h.authorize(ctx, r, p.GroupID, access.KindPost, p.CreatedBy, access.Delete)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	res, err := h.Cascade.DeletePost(ctx, p.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("post deleted",
		zap.String("post_id", p.ID.Hex()),
		zap.String("by", actor.ID.Hex()),
		zap.Any("removed", res))
	respond.OK(w, map[string]any{"message": "Post deleted", "removed": res})
}

// editedContent sanitizes an optional content edit. A present but empty
// result is rejected.
func editedContent(in *string) (*string, error) {
	if in == nil {
		return nil, nil
	}
	c := htmlsanitize.Rich(*in)
	if c == "" {
		return nil, apperr.Validation("content cannot be empty")
	}
	return &c, nil
}
