// internal/app/features/systemusers/handler.go
package systemusers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves account administration for admins and teachers.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Users    *userstore.Store
	Profiles *profilestore.Store
	Cascade  *cascade.Enforcer
}

func NewHandler(db *mongo.Database, enforcer *cascade.Enforcer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Users:    userstore.New(db),
		Profiles: profilestore.New(db),
		Cascade:  enforcer,
	}
}

// loadTarget resolves the {id} user and checks that the caller may perform
// action on it.
func (h *Handler) loadTarget(ctx context.Context, r *http.Request, action access.Action) (access.Actor, models.User, error) {
	actor, _ := grouppolicy.Actor(r)
	id, err := respond.PathID(r, "id", "user")
	if err != nil {
		return actor, models.User{}, err
	}
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return actor, models.User{}, apperr.NotFound("user")
	}
	if err != nil {
		return actor, models.User{}, err
	}
	if err := access.Require(actor, action, access.Resource{Kind: access.KindUser, TargetRole: u.Role}); err != nil {
		return actor, models.User{}, err
	}
	return actor, u, nil
}
