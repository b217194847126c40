// internal/app/features/files/handler.go
package files

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/features/shared/attachments"
	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	filemeta "github.com/dalemusser/learnportal/internal/app/store/files"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/downloadlink"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves group file uploads, listings and downloads.
type Handler struct {
	DB      *mongo.Database
	Files   *filemeta.Store
	Users   *userstore.Store
	Attach  *attachments.Service
	Links   *downloadlink.Signer
	Cascade *cascade.Enforcer
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, attach *attachments.Service, links *downloadlink.Signer, enforcer *cascade.Enforcer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Files:   filemeta.New(db),
		Users:   userstore.New(db),
		Attach:  attach,
		Links:   links,
		Cascade: enforcer,
		Log:     logger,
	}
}

// check loads actor's standing in groupID and applies action to a file
// resource uploaded by owner.
func (h *Handler) check(ctx context.Context, actor access.Actor, groupID, owner primitive.ObjectID, action access.Action) error {
	_, facts, err := grouppolicy.Load(ctx, h.DB, groupID, actor.ID)
	if err != nil {
		return err
	}
	return access.Require(actor, action, access.Resource{Kind: access.KindFile, OwnerID: owner, Group: facts})
}

func (h *Handler) loadFile(ctx context.Context, id primitive.ObjectID) (models.File, error) {
	f, err := h.Files.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return f, apperr.NotFound("file")
	}
	return f, err
}

func (h *Handler) fileFromPath(ctx context.Context, r *http.Request) (models.File, error) {
	id, err := respond.PathID(r, "id", "file")
	if err != nil {
		return models.File{}, err
	}
	return h.loadFile(ctx, id)
}
