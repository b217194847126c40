// internal/app/features/announcements/announcements.go
package announcements

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	announcementstore "github.com/dalemusser/learnportal/internal/app/store/announcements"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/authz"
	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	GroupID       string   `json:"groupId" validate:"required"`
	Title         string   `json:"title" validate:"required,max=200"`
	Content       string   `json:"content" validate:"required,max=20000"`
	Priority      string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Pinned        bool     `json:"pinned"`
	AttachmentIDs []string `json:"attachmentIds"`
}

type updateRequest struct {
	Title         *string  `json:"title" validate:"omitempty,max=200"`
	Content       *string  `json:"content" validate:"omitempty,max=20000"`
	Priority      *string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	Pinned        *bool    `json:"pinned"`
	AttachmentIDs []string `json:"attachmentIds"`
}

// HandleCreate handles POST /api/announcements. The body is JSON or a
// multipart form carrying up to five files under "attachments".
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)

	var req createRequest
	uploads, err := h.Attach.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	groupID, err := respond.ParseID(req.GroupID, "group")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	title := htmlsanitize.Plain(req.Title)
	content := htmlsanitize.Rich(req.Content)
	if title == "" || content == "" {
		respond.Error(w, r, h.Log, apperr.Validation("title and content are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	_, facts, err := grouppolicy.Load(ctx, h.DB, groupID, actor.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := access.Require(actor, access.Create, access.Resource{Kind: access.KindAnnouncement, Group: facts}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	batch, err := h.Attach.Prepare(ctx, actor.ID, groupID, req.AttachmentIDs, uploads)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var created models.Announcement
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := batch.Insert(ctx); err != nil {
			return err
		}
		var err error
		created, err = h.Store.Create(ctx, models.Announcement{
			GroupID:     groupID,
			CreatedBy:   actor.ID,
			Title:       title,
			Content:     content,
			Priority:    req.Priority,
			Pinned:      req.Pinned,
			Attachments: batch.IDs,
		})
		return err
	})
	if err != nil {
		batch.Discard(ctx)
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("announcement created",
		zap.String("announcement_id", created.ID.Hex()),
		zap.String("group_id", groupID.Hex()),
		zap.Int("uploads", len(batch.Uploaded())))
	respond.Created(w, map[string]any{"message": "Announcement created", "announcement": created})
}

// ServeList handles GET /api/announcements. Pinned announcements come
// first, then newest first. groupId narrows the list to one group.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)
	page, limit := respond.Page(r, 20, 100)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var groupIDs []primitive.ObjectID
	if hex := query.Get(r, "groupId"); hex != "" {
		groupID, err := respond.ParseID(hex, "group")
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		_, facts, err := grouppolicy.Load(ctx, h.DB, groupID, actor.ID)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		if err := access.Require(actor, access.Read, access.Resource{Kind: access.KindAnnouncement, Group: facts}); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		groupIDs = []primitive.ObjectID{groupID}
	} else if !authz.IsAdmin(r) {
		var err error
		groupIDs, err = grouppolicy.GroupIDsFor(ctx, h.DB, actor.ID)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
	}

	items, total, err := h.Store.List(ctx, groupIDs, respond.Skip(page, limit), int64(limit))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, respond.NewPaged(items, total, page, limit))
}

// ServeAnnouncement handles GET /api/announcements/{id}.
func (h *Handler) ServeAnnouncement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := l.require(access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, l.ann)
}

// HandleUpdate handles PATCH /api/announcements/{id}. New files append to
// the attachment list.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	uploads, err := h.Attach.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	l, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := l.require(access.Update); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	upd := announcementstore.Update{Priority: req.Priority, Pinned: req.Pinned}
	if req.Title != nil {
		t := htmlsanitize.Plain(*req.Title)
		if t == "" {
			respond.Error(w, r, h.Log, apperr.Validation("title cannot be empty"))
			return
		}
		upd.Title = &t
	}
	if req.Content != nil {
		c := htmlsanitize.Rich(*req.Content)
		if c == "" {
			respond.Error(w, r, h.Log, apperr.Validation("content cannot be empty"))
			return
		}
		upd.Content = &c
	}
	if len(l.ann.Attachments)+len(req.AttachmentIDs)+len(uploads) > maxAttachments {
		respond.Error(w, r, h.Log, apperr.Validation("too many attachments").WithCode("TOO_MANY_FILES"))
		return
	}

	batch, err := h.Attach.Prepare(ctx, l.actor.ID, l.ann.GroupID, req.AttachmentIDs, uploads)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	upd.AddAttachments = batch.IDs

	var updated models.Announcement
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := batch.Insert(ctx); err != nil {
			return err
		}
		var err error
		updated, err = h.Store.Update(ctx, l.ann.ID, upd)
		return err
	})
	if err != nil {
		batch.Discard(ctx)
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Announcement updated", "announcement": updated})
}

// HandleDelete handles DELETE /api/announcements/{id}. Replies to the
// announcement and attachments nothing else uses are removed with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	l, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := l.require(access.Delete); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	res, err := h.Cascade.DeleteAnnouncement(ctx, l.ann.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("announcement deleted",
		zap.String("announcement_id", l.ann.ID.Hex()),
		zap.String("by", l.actor.ID.Hex()),
		zap.Any("removed", res))
	respond.OK(w, map[string]any{"message": "Announcement deleted", "removed": res})
}
