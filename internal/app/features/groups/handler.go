// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	groupstore "github.com/dalemusser/learnportal/internal/app/store/groups"
	membershipstore "github.com/dalemusser/learnportal/internal/app/store/memberships"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Cascade     *cascade.Enforcer
}

func NewHandler(db *mongo.Database, enforcer *cascade.Enforcer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Cascade:     enforcer,
	}
}

// target is the group named by {id} together with the caller and the
// caller's standing in it.
type target struct {
	actor access.Actor
	group models.Group
	facts *access.Group
}

func (h *Handler) loadGroup(ctx context.Context, r *http.Request) (target, error) {
	actor, _ := grouppolicy.Actor(r)
	id, err := respond.PathID(r, "id", "group")
	if err != nil {
		return target{}, err
	}
	g, facts, err := grouppolicy.Load(ctx, h.DB, id, actor.ID)
	if err != nil {
		return target{}, err
	}
	return target{actor: actor, group: g, facts: facts}, nil
}

// require checks action on the group itself.
func (t target) require(action access.Action) error {
	return access.Require(t.actor, action, access.Resource{
		Kind:    access.KindGroup,
		OwnerID: t.group.CreatedBy,
		Group:   t.facts,
	})
}
