// internal/app/features/announcements/handler.go
package announcements

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/features/shared/attachments"
	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	announcementstore "github.com/dalemusser/learnportal/internal/app/store/announcements"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all announcement handlers.
type Handler struct {
	DB      *mongo.Database
	Store   *announcementstore.Store
	Attach  *attachments.Service
	Cascade *cascade.Enforcer
	Log     *zap.Logger
}

// NewHandler constructs an announcements Handler.
func NewHandler(db *mongo.Database, attach *attachments.Service, enforcer *cascade.Enforcer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Store:   announcementstore.New(db),
		Attach:  attach,
		Cascade: enforcer,
		Log:     logger,
	}
}

// loaded is an announcement with the caller's standing in its group.
type loaded struct {
	actor access.Actor
	ann   models.Announcement
	facts *access.Group
}

func (l loaded) require(action access.Action) error {
	return access.Require(l.actor, action, access.Resource{
		Kind:    access.KindAnnouncement,
		OwnerID: l.ann.CreatedBy,
		Group:   l.facts,
	})
}

func (h *Handler) load(ctx context.Context, r *http.Request) (loaded, error) {
	actor, _ := grouppolicy.Actor(r)
	id, err := respond.PathID(r, "id", "announcement")
	if err != nil {
		return loaded{}, err
	}
	a, err := h.Store.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return loaded{}, apperr.NotFound("announcement")
	}
	if err != nil {
		return loaded{}, err
	}
	_, facts, err := grouppolicy.Load(ctx, h.DB, a.GroupID, actor.ID)
	if err != nil {
		return loaded{}, err
	}
	return loaded{actor: actor, ann: a, facts: facts}, nil
}
