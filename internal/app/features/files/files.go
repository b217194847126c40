// internal/app/features/files/files.go
package files

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type uploadForm struct {
	GroupID string `json:"groupId" validate:"required"`
}

// HandleUpload handles POST /api/files, a multipart form with groupId and
// up to five files under "attachments". Only group authority may upload.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)

	var form uploadForm
	uploads, err := h.Attach.Decode(r, &form)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if len(uploads) == 0 {
		respond.Error(w, r, h.Log, apperr.Validation("no files uploaded").WithCode("NO_FILES"))
		return
	}
	groupID, err := respond.ParseID(form.GroupID, "group")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	if err := h.check(ctx, actor, groupID, primitive.NilObjectID, access.Create); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	batch, err := h.Attach.Prepare(ctx, actor.ID, groupID, nil, uploads)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := txn.Run(ctx, h.DB, h.Log, batch.Insert); err != nil {
		batch.Discard(ctx)
		respond.Error(w, r, h.Log, err)
		return
	}
	stored := batch.Uploaded()
	h.Log.Info("files uploaded",
		zap.String("group_id", groupID.Hex()),
		zap.String("by", actor.ID.Hex()),
		zap.Int("count", len(stored)))
	respond.Created(w, map[string]any{"message": "Files uploaded", "files": stored})
}

// ServeList handles GET /api/files?groupId=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)
	hex := query.Get(r, "groupId")
	if hex == "" {
		respond.Error(w, r, h.Log, apperr.Validation("groupId is required"))
		return
	}
	groupID, err := respond.ParseID(hex, "group")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.check(ctx, actor, groupID, primitive.NilObjectID, access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	list, err := h.Files.ListByGroup(ctx, groupID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"success": true, "count": len(list), "data": list})
}

// ServeLink handles GET /api/files/{id}/link. It returns a short-lived URL
// a browser can fetch without the bearer header.
func (h *Handler) ServeLink(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	f, err := h.fileFromPath(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.check(ctx, actor, f.GroupID, f.UploadedBy, access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	token, err := h.Links.Sign(f.ID, actor.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{
		"url":       "/api/files/download?token=" + url.QueryEscape(token),
		"expiresIn": int(h.Links.TTL().Seconds()),
		"file":      f,
	})
}

// ServeDownload handles GET /api/files/download?token=. The token's user
// must still be active and still able to read the file's group.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	fileID, userID, err := h.Links.Verify(query.Get(r, "token"))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.InvalidToken(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || u.Status != models.StatusActive {
		respond.Error(w, r, h.Log, apperr.InvalidToken(errors.New("token user is no longer active")))
		return
	}
	f, err := h.loadFile(ctx, fileID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	actor := access.Actor{ID: u.ID, Role: u.Role}
	if err := h.check(ctx, actor, f.GroupID, f.UploadedBy, access.Read); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	storage := h.Attach.Storage
	if f.Backend == filestore.BackendDrive || storage == nil || storage.Name() != f.Backend {
		if f.DownloadLink != "" {
			http.Redirect(w, r, f.DownloadLink, http.StatusFound)
			return
		}
		respond.Error(w, r, h.Log, apperr.NotFound("file content"))
		return
	}
	rc, err := storage.Open(ctx, f.StorageID)
	switch {
	case errors.Is(err, filestore.ErrNotSupported) && f.DownloadLink != "":
		http.Redirect(w, r, f.DownloadLink, http.StatusFound)
		return
	case errors.Is(err, filestore.ErrNotFound):
		respond.Error(w, r, h.Log, apperr.NotFound("file content"))
		return
	case err != nil:
		respond.Error(w, r, h.Log, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename}))
	if f.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("download interrupted", zap.String("file_id", f.ID.Hex()), zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/files/{id}. The admin, the uploader or
// group authority may delete a file that no content still attaches.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	f, err := h.fileFromPath(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.check(ctx, actor, f.GroupID, f.UploadedBy, access.Delete); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	res, err := h.Cascade.DeleteFile(ctx, f.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("file deleted", zap.String("file_id", f.ID.Hex()), zap.String("by", actor.ID.Hex()))
	respond.OK(w, map[string]any{"message": "File deleted", "removed": res})
}
