// internal/app/features/discussions/handler.go
package discussions

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/features/shared/attachments"
	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	discussionstore "github.com/dalemusser/learnportal/internal/app/store/discussions"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves discussion posts and replies.
type Handler struct {
	DB      *mongo.Database
	Store   *discussionstore.Store
	Attach  *attachments.Service
	Cascade *cascade.Enforcer
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, attach *attachments.Service, enforcer *cascade.Enforcer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Store:   discussionstore.New(db),
		Attach:  attach,
		Cascade: enforcer,
		Log:     logger,
	}
}

type contentRequest struct {
	Content       *string  `json:"content" validate:"omitempty,max=20000"`
	AttachmentIDs []string `json:"attachmentIds"`
}

// authorize loads the caller's standing in groupID and checks action on a
// resource of kind owned by owner.
func (h *Handler) authorize(ctx context.Context, r *http.Request, groupID primitive.ObjectID, kind access.Kind, owner primitive.ObjectID, action access.Action) (access.Actor, error) {
	actor, _ := grouppolicy.Actor(r)
	_, facts, err := grouppolicy.Load(ctx, h.DB, groupID, actor.ID)
	if err != nil {
		return actor, err
	}
	return actor, access.Require(actor, action, access.Resource{Kind: kind, OwnerID: owner, Group: facts})
}

func groupParam(v string) (primitive.ObjectID, error) {
	return respond.ParseID(v, "group")
}
